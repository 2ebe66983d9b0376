package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindspace/gotcha/internal/logging"
)

// LogNotifier records schedules through the logger. It is the headless
// implementation used when no notification surface exists.
type LogNotifier struct {
	logger logging.Logger
	now    func() time.Time

	mu        sync.Mutex
	scheduled []Notification
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger, now: time.Now}
}

func (n *LogNotifier) Schedule(ctx context.Context, title, body string, at time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title, at = prepare(title, at, n.now())
	nt := Notification{ID: uuid.NewString(), Title: title, Body: body, At: at}

	n.mu.Lock()
	n.scheduled = append(n.scheduled, nt)
	n.mu.Unlock()

	n.logger.Info(ctx, "notification scheduled", "id", nt.ID, "title", nt.Title, "at", nt.At.Format(time.RFC3339))
	return nt.ID, nil
}

// Scheduled returns the notifications recorded since the last CancelAll.
func (n *LogNotifier) Scheduled() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.scheduled...)
}

func (n *LogNotifier) CancelAll(ctx context.Context) error {
	n.mu.Lock()
	count := len(n.scheduled)
	n.scheduled = nil
	n.mu.Unlock()

	n.logger.Info(ctx, "notifications cancelled", "count", count)
	return nil
}

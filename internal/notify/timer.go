package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindspace/gotcha/internal/logging"
)

// TimerNotifier fires notifications in-process with time.AfterFunc. A nil
// deliver callback means notifications are not permitted; Schedule then
// returns an empty handle.
type TimerNotifier struct {
	logger  logging.Logger
	deliver func(Notification)
	now     func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerNotifier(logger logging.Logger, deliver func(Notification)) *TimerNotifier {
	return &TimerNotifier{
		logger:  logger,
		deliver: deliver,
		now:     time.Now,
		timers:  make(map[string]*time.Timer),
	}
}

func (n *TimerNotifier) Schedule(ctx context.Context, title, body string, at time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if n.deliver == nil {
		n.logger.Warn(ctx, "notifications not permitted")
		return "", nil
	}

	now := n.now()
	title, at = prepare(title, at, now)
	nt := Notification{ID: uuid.NewString(), Title: title, Body: body, At: at}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.timers[nt.ID] = time.AfterFunc(at.Sub(now), func() {
		n.mu.Lock()
		_, pending := n.timers[nt.ID]
		delete(n.timers, nt.ID)
		n.mu.Unlock()
		if pending {
			n.deliver(nt)
		}
	})

	n.logger.Debug(ctx, "notification armed", "id", nt.ID, "in", at.Sub(now).String())
	return nt.ID, nil
}

// Pending returns the number of armed timers.
func (n *TimerNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.timers)
}

func (n *TimerNotifier) CancelAll(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	return nil
}

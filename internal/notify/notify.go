// Package notify schedules local reminder notifications. The implementation
// is chosen once at startup; callers only see Notifier.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mindspace/gotcha/internal/logging"
)

// TitlePrefix is prepended to every notification title.
const TitlePrefix = "🧠 Mindspace: "

// minLead is how far ahead a notification is moved when its time has passed.
const minLead = time.Minute

const (
	ModeLog   = "log"
	ModeTimer = "timer"
)

// Notification is what gets delivered when a schedule fires.
type Notification struct {
	ID    string
	Title string
	Body  string
	At    time.Time
}

// Notifier schedules notifications. Schedule returns an empty handle and no
// error when notifications are not permitted on this device.
type Notifier interface {
	Schedule(ctx context.Context, title, body string, at time.Time) (string, error)
	CancelAll(ctx context.Context) error
}

// New returns the notifier for mode. deliver is only used by the timer mode.
func New(mode string, logger logging.Logger, deliver func(Notification)) (Notifier, error) {
	switch mode {
	case "", ModeLog:
		return NewLogNotifier(logger), nil
	case ModeTimer:
		return NewTimerNotifier(logger, deliver), nil
	default:
		return nil, fmt.Errorf("unknown notifier mode %q", mode)
	}
}

// prepare applies the title prefix and moves at into the future.
func prepare(title string, at, now time.Time) (string, time.Time) {
	if !at.After(now) {
		at = now.Add(minLead)
	}
	return TitlePrefix + title, at
}

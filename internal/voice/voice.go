// Package voice records voice notes. A Session owns exactly one recording
// from Start to Stop; the device side is abstracted by Capture.
package voice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// MinDuration is reported for recordings too short to measure.
const MinDuration = 100 * time.Millisecond

// Recording is a finished voice note.
type Recording struct {
	URI       string
	Duration  time.Duration
	Timestamp time.Time
}

// Capture is the device recording capability.
type Capture interface {
	// Begin starts capturing audio.
	Begin(ctx context.Context) error
	// End stops capturing and returns the URI of the stored audio and, when
	// the device knows it, its duration.
	End(ctx context.Context) (uri string, d time.Duration, err error)
}

type Session struct {
	capture Capture
	now     func() time.Time

	mu        sync.Mutex
	recording bool
	started   time.Time
}

func NewSession(c Capture) *Session {
	return &Session{capture: c, now: time.Now}
}

func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return ErrAlreadyRecording
	}
	if err := s.capture.Begin(ctx); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	s.recording = true
	s.started = s.now()
	return nil
}

// Recording reports whether Start was called without a matching Stop.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Stop ends the recording. The session is idle afterwards even when the
// capture fails.
func (s *Session) Stop(ctx context.Context) (Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return Recording{}, ErrNotRecording
	}
	s.recording = false

	uri, d, err := s.capture.End(ctx)
	if err != nil {
		return Recording{}, fmt.Errorf("stopping capture: %w", err)
	}

	end := s.now()
	if d <= 0 {
		d = end.Sub(s.started)
	}
	return Recording{URI: uri, Duration: max(d, MinDuration), Timestamp: end.UTC()}, nil
}

// FormatDuration renders seconds as m:ss. Negative input renders as 0:00.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

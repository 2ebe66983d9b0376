// Package reminders persists reminders confirmed by the user. The whole list
// lives in one JSON document, most recent first.
package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/storage/blobs"
)

// StoreKey names the blob holding the reminder list.
const StoreKey = "@gotcha_reminders_v1"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Candidate is a reminder suggested by the detector and not yet saved.
type Candidate struct {
	Day            string
	Time           string
	Text           string
	ConversationID string
	DueAt          *time.Time
}

type Reminder struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"createdAt"`
	Status         Status     `json:"status"`
	Day            string     `json:"day"`
	Time           string     `json:"time"`
	Text           string     `json:"text"`
	ConversationID string     `json:"conversationId,omitempty"`
	DueAt          *time.Time `json:"dueAt,omitempty"`
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	blobs  blobs.Repository
	logger logging.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewStore(b blobs.Repository, logger logging.Logger, opts ...Option) *Store {
	s := &Store{blobs: b, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save stores c as a new pending reminder at the head of the list.
func (s *Store) Save(ctx context.Context, c Candidate) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Reminder{}, err
	}

	r := Reminder{
		ID:             uuid.NewString(),
		CreatedAt:      s.now().UTC(),
		Status:         StatusPending,
		Day:            c.Day,
		Time:           c.Time,
		Text:           c.Text,
		ConversationID: c.ConversationID,
		DueAt:          c.DueAt,
	}
	list = append([]Reminder{r}, list...)

	if err := s.save(ctx, list); err != nil {
		return Reminder{}, err
	}
	s.logger.Info(ctx, "reminder saved", "reminder_id", r.ID)
	return r, nil
}

// List returns all reminders, most recent first.
func (s *Store) List(ctx context.Context) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// SetStatus changes the status of reminder id and returns the updated list.
// An unknown id leaves the list as it is.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) ([]Reminder, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range list {
		if list[i].ID == id && list[i].Status != status {
			list[i].Status = status
			changed = true
		}
	}
	if !changed {
		return list, nil
	}
	if err := s.save(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete removes reminder id and returns the remaining list.
func (s *Store) Delete(ctx context.Context, id string) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	kept := list[:0]
	for _, r := range list {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(list) {
		return kept, nil
	}
	if err := s.save(ctx, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (s *Store) load(ctx context.Context) ([]Reminder, error) {
	raw, err := s.blobs.Get(ctx, StoreKey)
	if err != nil {
		s.logger.Error(ctx, "reading reminders failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	list := []Reminder{}
	if len(raw) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: decoding reminders: %w", common.ErrStorageUnavailable, err)
	}
	return list, nil
}

func (s *Store) save(ctx context.Context, list []Reminder) error {
	doc, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encoding reminders: %w", common.ErrPersistenceFailed, err)
	}
	if err := s.blobs.Set(ctx, StoreKey, doc); err != nil {
		s.logger.Error(ctx, "writing reminders failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	return nil
}

// Package notes persists free-form notes and the actions the user confirmed
// from them. Notes live in one JSON document, most recent first; confirmed
// actions are appended to a second document.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/detect"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/storage/blobs"
)

const (
	// StoreKey names the blob holding the note list.
	StoreKey = "@gotcha_notes"
	// ActionsKey names the blob holding confirmed actions.
	ActionsKey = "@gotcha_actions"

	// DefaultTitle is used when a note is created without one.
	DefaultTitle = "Untitled"
	// Retention is how long an expiring note survives its last update.
	Retention = 7 * 24 * time.Hour
)

// DetectedAction is an action found in a note's content.
type DetectedAction struct {
	Type      detect.Intent `json:"type"`
	Title     string        `json:"title"`
	Date      time.Time     `json:"date"`
	Line      string        `json:"line,omitempty"`
	Confirmed bool          `json:"confirmed"`
}

type Note struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Content         string           `json:"content"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	Expires         bool             `json:"expires,omitempty"`
	DetectedActions []DetectedAction `json:"detectedActions"`
}

// Update carries the fields to change; nil fields are left as they are.
type Update struct {
	Title           *string
	Content         *string
	Expires         *bool
	DetectedActions []DetectedAction
}

// Action is an action the user confirmed from a note.
type Action struct {
	ID        string        `json:"id"`
	NoteID    string        `json:"noteId,omitempty"`
	Type      detect.Intent `json:"type"`
	Title     string        `json:"title"`
	Date      time.Time     `json:"date"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns both documents. One mutex covers every read-modify-write.
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

// Create stores a new note at the head of the list.
func (s *Store) Create(ctx context.Context, title, content string, actions []DetectedAction) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Note{}, err
	}

	if title == "" {
		title = DefaultTitle
	}
	if actions == nil {
		actions = []DetectedAction{}
	}
	now := s.now().UTC()
	n := Note{
		ID:              uuid.NewString(),
		Title:           title,
		Content:         content,
		CreatedAt:       now,
		UpdatedAt:       now,
		DetectedActions: actions,
	}
	list = append([]Note{n}, list...)

	if err := s.save(ctx, list); err != nil {
		return Note{}, err
	}
	s.logger.Info(ctx, "note created", "note_id", n.ID, "actions", len(actions))
	return n, nil
}

// List returns all notes, most recent first.
func (s *Store) List(ctx context.Context) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns note id or common.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Note{}, err
	}
	if i := indexByID(list, id); i >= 0 {
		return list[i], nil
	}
	return Note{}, fmt.Errorf("note %s: %w", id, common.ErrNotFound)
}

// Update applies u to note id and bumps its update time. ok is false for an
// unknown id, in which case nothing is written.
func (s *Store) Update(ctx context.Context, id string, u Update) (n Note, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Note{}, false, err
	}
	i := indexByID(list, id)
	if i < 0 {
		return Note{}, false, nil
	}

	n = list[i]
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.Expires != nil {
		n.Expires = *u.Expires
	}
	if u.DetectedActions != nil {
		n.DetectedActions = u.DetectedActions
	}
	n.UpdatedAt = s.now().UTC()
	list[i] = n

	if err := s.save(ctx, list); err != nil {
		return Note{}, false, err
	}
	return n, true, nil
}

// Delete removes note id and returns the remaining list.
func (s *Store) Delete(ctx context.Context, id string) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	kept := list[:0]
	for _, n := range list {
		if n.ID != id {
			kept = append(kept, n)
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

// CleanupExpired drops expiring notes last updated at least Retention before
// now and reports how many were removed. Notes without the expires flag are
// kept forever. The document is written only when something was removed.
func (s *Store) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-Retention)
	kept := make([]Note, 0, len(list))
	for _, n := range list {
		if n.Expires && !n.UpdatedAt.After(cutoff) {
			continue
		}
		kept = append(kept, n)
	}

	removed := len(list) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "expired notes removed", "count", removed)
	return removed, nil
}

// ConfirmAction marks the action at index of note noteID confirmed and
// appends it to the confirmed actions. Confirming twice records it once.
func (s *Store) ConfirmAction(ctx context.Context, noteID string, index int) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Action{}, err
	}
	i := indexByID(list, noteID)
	if i < 0 {
		return Action{}, fmt.Errorf("note %s: %w", noteID, common.ErrNotFound)
	}
	n := &list[i]
	if index < 0 || index >= len(n.DetectedActions) {
		return Action{}, fmt.Errorf("note %s action %d: %w", noteID, index+1, common.ErrNotFound)
	}
	d := &n.DetectedActions[index]

	a := Action{
		ID:        uuid.NewString(),
		NoteID:    noteID,
		Type:      d.Type,
		Title:     d.Title,
		Date:      d.Date,
		CreatedAt: s.now().UTC(),
	}
	if d.Confirmed {
		return a, nil
	}

	actions, err := s.loadActions(ctx)
	if err != nil {
		return Action{}, err
	}
	actions = append(actions, a)

	d.Confirmed = true
	notesDoc, err := json.Marshal(list)
	if err != nil {
		return Action{}, fmt.Errorf("%w: encoding notes: %w", common.ErrPersistenceFailed, err)
	}
	actionsDoc, err := json.Marshal(actions)
	if err != nil {
		return Action{}, fmt.Errorf("%w: encoding actions: %w", common.ErrPersistenceFailed, err)
	}
	if err := s.blobs.SetMany(ctx, map[string][]byte{StoreKey: notesDoc, ActionsKey: actionsDoc}); err != nil {
		s.logger.Error(ctx, "writing confirmed action failed", "error", err)
		return Action{}, fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	s.logger.Info(ctx, "action confirmed", "note_id", noteID, "action_id", a.ID)
	return a, nil
}

// Actions returns the confirmed actions in confirmation order.
func (s *Store) Actions(ctx context.Context) ([]Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadActions(ctx)
}

func (s *Store) load(ctx context.Context) ([]Note, error) {
	list := []Note{}
	if err := s.read(ctx, StoreKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) loadActions(ctx context.Context) ([]Action, error) {
	list := []Action{}
	if err := s.read(ctx, ActionsKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) read(ctx context.Context, key string, v any) error {
	raw, err := s.blobs.Get(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "reading notes failed", "blob", key, "error", err)
		return fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", common.ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, list []Note) error {
	doc, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encoding notes: %w", common.ErrPersistenceFailed, err)
	}
	if err := s.blobs.Set(ctx, StoreKey, doc); err != nil {
		s.logger.Error(ctx, "writing notes failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	return nil
}

func indexByID(list []Note, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// FromDetected converts detector output into note actions.
func FromDetected(actions []detect.Action) []DetectedAction {
	out := make([]DetectedAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, DetectedAction{Type: a.Type, Title: a.Title, Date: a.Date, Line: a.Line})
	}
	return out
}

// Package chats is the single source of truth for conversations and their
// messages. All conversations live in one JSON document; message text and
// previews are encrypted with the conversation key before the document is
// written, and decrypted again when a projection is built for the caller.
package chats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/cryptox"
	"github.com/mindspace/gotcha/internal/keystore"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/storage/blobs"
)

// StoreKey names the blob holding the conversation collection.
const StoreKey = "@gotcha_chats_v1"

// activityLayout formats the activity label and the per-message time label.
const activityLayout = "3:04 PM"

// Keys is the subset of the key store the repository needs.
type Keys interface {
	GetOrCreateKey(ctx context.Context, conversationID string) ([]byte, error)
	NewKeys(ctx context.Context, conversationIDs []string) (*keystore.Pending, error)
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository owns the conversation document. Every operation holds one
// mutex for its whole read-modify-write cycle, so a mutation that returned
// is visible to every later call and concurrent sends never drop each
// other's appends.
type Repository struct {
	blobs  blobs.Repository
	keys   Keys
	logger logging.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewRepository(b blobs.Repository, keys Keys, logger logging.Logger, opts ...Option) *Repository {
	r := &Repository{blobs: b, keys: keys, logger: logger, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ListConversations returns the decrypted projection of every conversation,
// seeding the store on first run. Listing never rewrites the document.
func (r *Repository) ListConversations(ctx context.Context) ([]Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.loadOrSeed(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Conversation, 0, len(recs))
	for i := range recs {
		c, err := r.project(ctx, &recs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// GetConversation returns one decrypted conversation or common.ErrNotFound.
func (r *Repository) GetConversation(ctx context.Context, id string) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.loadOrSeed(ctx)
	if err != nil {
		return Conversation{}, err
	}
	i := indexByID(recs, id)
	if i < 0 {
		return Conversation{}, fmt.Errorf("conversation %s: %w", id, common.ErrNotFound)
	}
	return r.project(ctx, &recs[i])
}

// CreateConversation returns the conversation of contact, creating an empty
// one when neither the id nor the phone number matches an existing record.
func (r *Repository) CreateConversation(ctx context.Context, contact Contact) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.loadOrSeed(ctx)
	if err != nil {
		return Conversation{}, fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}

	if i := findContact(recs, contact); i >= 0 {
		return r.project(ctx, &recs[i])
	}

	id := strings.TrimSpace(contact.ID)
	if id == "" {
		id = uuid.NewString()
	}
	rec := conversationRecord{
		ID:          id,
		Name:        contact.Name,
		Time:        "Now",
		Avatar:      contact.Avatar,
		PhoneNumber: contact.PhoneNumber,
		Messages:    []messageRecord{},
	}
	recs = append(recs, rec)

	// The key is written in the same batch as the record, so a stored
	// conversation always has its key.
	pending, err := r.keys.NewKeys(ctx, []string{id})
	if err != nil {
		return Conversation{}, fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	defer pending.Discard()

	if err := r.saveWith(ctx, recs, pending.Blobs); err != nil {
		return Conversation{}, err
	}
	pending.Commit()
	r.logger.Info(ctx, "conversation created", "conversation_id", id)

	c, err := r.project(ctx, &rec)
	if err != nil {
		// the conversation is stored; only its projection failed
		return Conversation{}, fmt.Errorf("%w: conversation %s stored: %w", common.ErrPersistenceFailed, id, err)
	}
	return c, nil
}

// SendMessage encrypts text, appends it to the conversation and persists the
// whole document. The returned message is the plaintext echo for the UI.
// On any failure the stored document is left untouched and the error wraps
// common.ErrPersistenceFailed.
func (r *Repository) SendMessage(ctx context.Context, conversationID, text string, kind Kind) (Message, error) {
	if kind == "" {
		kind = KindText
	}
	if kind != KindText && kind != KindAudio {
		return Message{}, fmt.Errorf("%w: %w: %q", common.ErrPersistenceFailed, common.ErrInvalidKind, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.loadOrSeed(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	i := indexByID(recs, conversationID)
	if i < 0 {
		return Message{}, fmt.Errorf("%w: conversation %s: %w", common.ErrPersistenceFailed, conversationID, common.ErrNotFound)
	}
	rec := &recs[i]

	key, err := r.keys.GetOrCreateKey(ctx, conversationID)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}

	ciphertext, err := cryptox.Encrypt(text, key)
	if err != nil {
		return Message{}, fmt.Errorf("%w: encrypting message: %w", common.ErrPersistenceFailed, err)
	}

	preview := text
	if kind == KindAudio {
		preview = VoicePreview
	}
	previewCiphertext, err := cryptox.Encrypt(preview, key)
	if err != nil {
		return Message{}, fmt.Errorf("%w: encrypting preview: %w", common.ErrPersistenceFailed, err)
	}

	now := r.now()
	sentAt := now.UTC()
	label := now.Format(activityLayout)
	m := messageRecord{
		ID:          uuid.NewString(),
		Sender:      SenderSelf,
		Ciphertext:  ciphertext,
		Time:        label,
		SentAt:      &sentAt,
		Type:        kind,
		IsEncrypted: true,
	}
	rec.Messages = append(rec.Messages, m)
	rec.LastMessage = previewCiphertext
	rec.LastMessageEncrypted = true
	rec.Time = label

	if err := r.save(ctx, recs); err != nil {
		return Message{}, err
	}
	r.logger.Debug(ctx, "message stored", "conversation_id", conversationID, "message_id", m.ID, "kind", string(kind))

	return Message{
		ID:          m.ID,
		Sender:      m.Sender,
		Text:        text,
		SentAtLabel: label,
		SentAt:      sentAt,
		Kind:        kind,
		IsEncrypted: true,
	}, nil
}

// MarkRead clears the unread counter. Unknown ids are ignored.
func (r *Repository) MarkRead(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.loadOrSeed(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	i := indexByID(recs, conversationID)
	if i < 0 || recs[i].Unread == 0 {
		return nil
	}
	recs[i].Unread = 0
	return r.save(ctx, recs)
}

// load reads the document. found is false when the store was never written.
func (r *Repository) load(ctx context.Context) (recs []conversationRecord, found bool, err error) {
	raw, err := r.blobs.Get(ctx, StoreKey)
	if err != nil {
		r.logger.Error(ctx, "reading conversation store failed", "error", err)
		return nil, false, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &recs); err != nil {
		r.logger.Error(ctx, "conversation store is corrupt", "error", err)
		return nil, false, fmt.Errorf("%w: decoding conversation store: %w", common.ErrStorageUnavailable, err)
	}
	return recs, true, nil
}

func (r *Repository) loadOrSeed(ctx context.Context) ([]conversationRecord, error) {
	recs, found, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		return recs, nil
	}
	return r.seed(ctx)
}

// seed encrypts the first-run dataset and writes it together with the new
// conversation keys in one batch.
func (r *Repository) seed(ctx context.Context) ([]conversationRecord, error) {
	ids := make([]string, len(seedData))
	for i, s := range seedData {
		ids[i] = s.id
	}

	pending, err := r.keys.NewKeys(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer pending.Discard()

	recs := make([]conversationRecord, 0, len(seedData))
	for _, s := range seedData {
		key, ok := pending.Key(s.id)
		if !ok {
			return nil, fmt.Errorf("seed key for %s missing", s.id)
		}
		rec, err := encryptSeed(s, key)
		if err != nil {
			return nil, fmt.Errorf("encrypting seed data: %w", err)
		}
		recs = append(recs, rec)
	}

	doc, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encoding seed data: %w", err)
	}

	batch := make(map[string][]byte, len(pending.Blobs)+1)
	for k, v := range pending.Blobs {
		batch[k] = v
	}
	batch[StoreKey] = doc

	if err := r.blobs.SetMany(ctx, batch); err != nil {
		r.logger.Error(ctx, "writing seed data failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	pending.Commit()

	r.logger.Info(ctx, "conversation store seeded", "conversations", len(recs))
	return recs, nil
}

func encryptSeed(s seedConversation, key []byte) (conversationRecord, error) {
	preview, err := cryptox.Encrypt(s.lastMessage, key)
	if err != nil {
		return conversationRecord{}, err
	}
	rec := conversationRecord{
		ID:                   s.id,
		Name:                 s.name,
		LastMessage:          preview,
		LastMessageEncrypted: true,
		Time:                 s.time,
		Unread:               s.unread,
		IsPrivate:            s.private,
		Avatar:               s.avatar,
		Messages:             make([]messageRecord, 0, len(s.messages)),
	}
	for _, m := range s.messages {
		ct, err := cryptox.Encrypt(m.text, key)
		if err != nil {
			return conversationRecord{}, err
		}
		rec.Messages = append(rec.Messages, messageRecord{
			ID:          m.id,
			Sender:      m.sender,
			Ciphertext:  ct,
			Time:        m.time,
			Type:        KindText,
			IsEncrypted: true,
		})
	}
	return rec, nil
}

func (r *Repository) save(ctx context.Context, recs []conversationRecord) error {
	doc, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("%w: encoding conversation store: %w", common.ErrPersistenceFailed, err)
	}
	if err := r.blobs.Set(ctx, StoreKey, doc); err != nil {
		r.logger.Error(ctx, "writing conversation store failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	return nil
}

// saveWith writes the document together with extra blobs in one batch.
func (r *Repository) saveWith(ctx context.Context, recs []conversationRecord, extra map[string][]byte) error {
	if len(extra) == 0 {
		return r.save(ctx, recs)
	}
	doc, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("%w: encoding conversation store: %w", common.ErrPersistenceFailed, err)
	}
	batch := make(map[string][]byte, len(extra)+1)
	for k, v := range extra {
		batch[k] = v
	}
	batch[StoreKey] = doc
	if err := r.blobs.SetMany(ctx, batch); err != nil {
		r.logger.Error(ctx, "writing conversation store failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrPersistenceFailed, err)
	}
	return nil
}

// project decrypts one record. A message that fails to decrypt is replaced
// by the placeholder, and so is every encrypted message when the key itself
// is unreadable. Only a storage failure aborts.
func (r *Repository) project(ctx context.Context, rec *conversationRecord) (Conversation, error) {
	key, err := r.keys.GetOrCreateKey(ctx, rec.ID)
	if err != nil {
		if !errors.Is(err, common.ErrDecryptionFailed) {
			return Conversation{}, err
		}
		r.logger.Warn(ctx, "conversation key unreadable", "conversation_id", rec.ID, "error", err)
		key = nil
	}

	open := func(ciphertext string) (string, bool) {
		if key == nil {
			return cryptox.DecryptionPlaceholder, false
		}
		text, err := cryptox.Decrypt(ciphertext, key)
		if err != nil {
			return cryptox.DecryptionPlaceholder, false
		}
		return text, true
	}

	c := Conversation{
		ID:                 rec.ID,
		DisplayName:        rec.Name,
		IsPrivate:          rec.IsPrivate,
		LastMessagePreview: rec.LastMessage,
		LastActivityLabel:  rec.Time,
		UnreadCount:        max(rec.Unread, 0),
		Avatar:             rec.Avatar,
		PhoneNumber:        rec.PhoneNumber,
		Messages:           make([]Message, 0, len(rec.Messages)),
	}

	if rec.LastMessageEncrypted {
		preview, ok := open(rec.LastMessage)
		if !ok && key != nil {
			r.logger.Warn(ctx, "preview unreadable", "conversation_id", rec.ID)
		}
		c.LastMessagePreview = preview
	}

	for _, m := range rec.Messages {
		msg := Message{
			ID:          m.ID,
			Sender:      m.Sender,
			Text:        m.Text,
			SentAtLabel: m.Time,
			Kind:        m.Type,
			IsEncrypted: m.IsEncrypted,
		}
		if msg.Kind == "" {
			msg.Kind = KindText
		}
		if m.SentAt != nil {
			msg.SentAt = *m.SentAt
		}
		if m.IsEncrypted {
			text, ok := open(m.Ciphertext)
			if !ok {
				if key != nil {
					r.logger.Warn(ctx, "message unreadable", "conversation_id", rec.ID, "message_id", m.ID)
				}
				msg.Unavailable = true
			}
			msg.Text = text
		}
		c.Messages = append(c.Messages, msg)
	}
	return c, nil
}

func indexByID(recs []conversationRecord, id string) int {
	for i := range recs {
		if recs[i].ID == id {
			return i
		}
	}
	return -1
}

func findContact(recs []conversationRecord, contact Contact) int {
	if id := strings.TrimSpace(contact.ID); id != "" {
		if i := indexByID(recs, id); i >= 0 {
			return i
		}
	}
	if phone := strings.TrimSpace(contact.PhoneNumber); phone != "" {
		for i := range recs {
			if recs[i].PhoneNumber == phone {
				return i
			}
		}
	}
	return -1
}

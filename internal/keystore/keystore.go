// Package keystore hands out one symmetric key per conversation. A key is
// generated on first request, persisted under its own blob and never rotated.
package keystore

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/cryptox"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/storage/blobs"
)

const (
	// KeyPrefix namespaces conversation keys in the blob repository.
	KeyPrefix = "@gotcha_keys_"
	// SaltKey holds the salt for passphrase-derived master keys.
	SaltKey = "@gotcha_salt"

	saltSize = 16
)

// BlobKey returns the blob name holding the key of conversationID.
func BlobKey(conversationID string) string {
	return KeyPrefix + conversationID
}

// Option configures a KeyStore.
type Option func(*KeyStore)

// WithMasterKey seals key material with master before persisting it.
func WithMasterKey(master []byte) Option {
	return func(ks *KeyStore) { ks.master = master }
}

// KeyStore implements get-or-create over a blobs.Repository.
//
// Lookups and creations are serialised by a single mutex, so two concurrent
// first requests for the same conversation observe the same key.
type KeyStore struct {
	repo   blobs.Repository
	logger logging.Logger
	master []byte

	mu    sync.Mutex
	cache map[string][]byte
}

func New(repo blobs.Repository, logger logging.Logger, opts ...Option) *KeyStore {
	ks := &KeyStore{repo: repo, logger: logger, cache: make(map[string][]byte)}
	for _, o := range opts {
		o(ks)
	}
	return ks
}

// GetOrCreateKey returns the key of conversationID, creating and persisting
// a fresh 256-bit key when none exists. Storage failures are reported as
// common.ErrStorageUnavailable. A stored key that cannot be decoded or
// unwrapped is reported as common.ErrDecryptionFailed and is never replaced;
// no default key is ever substituted.
func (ks *KeyStore) GetOrCreateKey(ctx context.Context, conversationID string) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if k, ok := ks.cache[conversationID]; ok {
		return clone(k), nil
	}

	key, err := ks.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if key != nil {
		ks.cache[conversationID] = key
		return clone(key), nil
	}

	key, err = cryptox.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	encoded, err := ks.encode(key)
	if err != nil {
		return nil, err
	}
	if err := ks.repo.Set(ctx, BlobKey(conversationID), encoded); err != nil {
		ks.logger.Error(ctx, "persisting conversation key failed", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}

	ks.logger.Debug(ctx, "conversation key created", "conversation_id", conversationID)
	ks.cache[conversationID] = key
	return clone(key), nil
}

// NewKeys generates keys for every id that has none yet and returns their
// encoded blobs without persisting them, so the caller can write them in the
// same transaction as the records they protect. Commit must be called after
// a successful write.
func (ks *KeyStore) NewKeys(ctx context.Context, conversationIDs []string) (*Pending, error) {
	ks.mu.Lock()
	p := &Pending{ks: ks, keys: make(map[string][]byte), Blobs: make(map[string][]byte)}

	for _, id := range conversationIDs {
		if _, ok := ks.cache[id]; ok {
			continue
		}
		existing, err := ks.load(ctx, id)
		if err != nil {
			ks.mu.Unlock()
			return nil, err
		}
		if existing != nil {
			ks.cache[id] = existing
			continue
		}

		key, err := cryptox.GenerateKey()
		if err != nil {
			ks.mu.Unlock()
			return nil, fmt.Errorf("generating key: %w", err)
		}
		encoded, err := ks.encode(key)
		if err != nil {
			ks.mu.Unlock()
			return nil, err
		}
		p.keys[id] = key
		p.Blobs[BlobKey(id)] = encoded
	}
	return p, nil
}

// Pending is a batch of generated but not yet persisted keys. It holds the
// KeyStore lock until Commit or Discard is called.
type Pending struct {
	ks    *KeyStore
	keys  map[string][]byte
	done  bool
	Blobs map[string][]byte
}

// Key returns the key for id from the batch or from the store cache.
func (p *Pending) Key(id string) ([]byte, bool) {
	if k, ok := p.keys[id]; ok {
		return k, true
	}
	k, ok := p.ks.cache[id]
	return k, ok
}

// Commit publishes the batch to the cache after the blobs were written.
func (p *Pending) Commit() {
	if p.done {
		return
	}
	for id, k := range p.keys {
		p.ks.cache[id] = k
	}
	p.done = true
	p.ks.mu.Unlock()
}

// Discard drops the batch after a failed write.
func (p *Pending) Discard() {
	if p.done {
		return
	}
	p.done = true
	p.ks.mu.Unlock()
}

func (ks *KeyStore) load(ctx context.Context, conversationID string) ([]byte, error) {
	raw, err := ks.repo.Get(ctx, BlobKey(conversationID))
	if err != nil {
		ks.logger.Error(ctx, "reading conversation key failed", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	key, err := ks.decode(raw)
	if err != nil {
		ks.logger.Error(ctx, "conversation key unreadable", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("key for %s: %w", conversationID, err)
	}
	return key, nil
}

// encode renders key material as hex, or as base64 of the sealed bytes when
// a master key is configured.
func (ks *KeyStore) encode(key []byte) ([]byte, error) {
	if ks.master == nil {
		return []byte(hex.EncodeToString(key)), nil
	}
	sealed, err := cryptox.Seal(key, ks.master)
	if err != nil {
		return nil, fmt.Errorf("sealing key: %w", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (ks *KeyStore) decode(raw []byte) ([]byte, error) {
	if ks.master == nil {
		key, err := hex.DecodeString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed key: %v", common.ErrDecryptionFailed, err)
		}
		return checkSize(key)
	}

	sealed, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed sealed key: %v", common.ErrDecryptionFailed, err)
	}
	key, err := cryptox.Open(sealed, ks.master)
	if err != nil {
		return nil, err
	}
	return checkSize(key)
}

func checkSize(key []byte) ([]byte, error) {
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("%w: unexpected key length %d", common.ErrDecryptionFailed, len(key))
	}
	return key, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// MasterKey derives the master key for passphrase from the device salt,
// creating the salt on first use.
func MasterKey(ctx context.Context, repo blobs.Repository, passphrase []byte) ([]byte, error) {
	salt, err := repo.Get(ctx, SaltKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	if len(salt) == 0 {
		salt, err = common.RandBytes(saltSize)
		if err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}
		if err := repo.Set(ctx, SaltKey, salt); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
		}
	}
	return cryptox.DeriveMasterKey(passphrase, salt), nil
}

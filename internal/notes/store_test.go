package notes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/detect"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/storage/blobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct {
	blobs.Repository
	failGet     bool
	failSet     bool
	failSetMany bool
}

var errDisk = errors.New("disk I/O error")

func (f *failingRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errDisk
	}
	return f.Repository.Get(ctx, key)
}

func (f *failingRepo) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errDisk
	}
	return f.Repository.Set(ctx, key, value)
}

func (f *failingRepo) SetMany(ctx context.Context, values map[string][]byte) error {
	if f.failSetMany {
		return errDisk
	}
	return f.Repository.SetMany(ctx, values)
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

var start = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func newStore(b blobs.Repository) (*Store, *clock) {
	c := &clock{t: start}
	return NewStore(b, logging.Discard(), WithClock(c.now)), c
}

func TestCreate_PrependsAndDefaultsTitle(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, _ := newStore(b)
	ctx := context.Background()

	first, err := s.Create(ctx, "", "buy milk", nil)
	require.NoError(t, err)
	second, err := s.Create(ctx, "Trip", "pack bags", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, first.Title)
	assert.Equal(t, start, first.CreatedAt)
	assert.Equal(t, start, first.UpdatedAt)
	assert.NotNil(t, first.DetectedActions)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := NewStore(b, logging.Discard()).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first, list[1])
}

func TestList_EmptyStore(t *testing.T) {
	s, _ := newStore(blobs.NewMemoryRepository())
	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGet(t *testing.T) {
	s, _ := newStore(blobs.NewMemoryRepository())
	ctx := context.Background()

	n, err := s.Create(ctx, "Ideas", "a b c", nil)
	require.NoError(t, err)

	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, c := newStore(b)
	ctx := context.Background()

	n, err := s.Create(ctx, "Draft", "first", nil)
	require.NoError(t, err)

	c.t = start.Add(time.Hour)
	content := "second"
	expires := true
	updated, ok, err := s.Update(ctx, n.ID, Update{Content: &content, Expires: &expires})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, "second", updated.Content)
	assert.True(t, updated.Expires)
	assert.Equal(t, start, updated.CreatedAt)
	assert.Equal(t, start.Add(time.Hour), updated.UpdatedAt)

	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdate_UnknownIDDoesNotWrite(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, _ := newStore(b)
	ctx := context.Background()

	_, err := s.Create(ctx, "x", "y", nil)
	require.NoError(t, err)
	before, err := b.Get(ctx, StoreKey)
	require.NoError(t, err)

	title := "nope"
	_, ok, err := NewStore(&failingRepo{Repository: b, failSet: true}, logging.Discard()).
		Update(ctx, "missing", Update{Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := b.Get(ctx, StoreKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDelete(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, _ := newStore(b)
	ctx := context.Background()

	a, err := s.Create(ctx, "a", "", nil)
	require.NoError(t, err)
	keep, err := s.Create(ctx, "b", "", nil)
	require.NoError(t, err)

	list, err := s.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	// unknown ids are a no-op and never touch the store
	list, err = NewStore(&failingRepo{Repository: b, failSet: true}, logging.Discard()).Delete(ctx, "missing")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCleanupExpired(t *testing.T) {
	now := start.Add(30 * 24 * time.Hour)

	tests := []struct {
		name      string
		expires   bool
		updatedAt time.Time
		removed   bool
	}{
		{name: "expiring and stale", expires: true, updatedAt: now.Add(-8 * 24 * time.Hour), removed: true},
		{name: "expiring exactly at retention", expires: true, updatedAt: now.Add(-Retention), removed: true},
		{name: "expiring but recent", expires: true, updatedAt: now.Add(-6 * 24 * time.Hour)},
		{name: "not expiring and stale", expires: false, updatedAt: now.Add(-365 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := blobs.NewMemoryRepository()
			s, c := newStore(b)
			ctx := context.Background()

			n, err := s.Create(ctx, "t", "c", nil)
			require.NoError(t, err)
			c.t = tt.updatedAt
			_, _, err = s.Update(ctx, n.ID, Update{Expires: &tt.expires})
			require.NoError(t, err)

			removed, err := s.CleanupExpired(ctx, now)
			require.NoError(t, err)

			list, err := s.List(ctx)
			require.NoError(t, err)
			if tt.removed {
				assert.Equal(t, 1, removed)
				assert.Empty(t, list)
			} else {
				assert.Equal(t, 0, removed)
				assert.Len(t, list, 1)
			}
		})
	}
}

func TestCleanupExpired_NothingToRemoveDoesNotWrite(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, _ := newStore(b)
	ctx := context.Background()
	_, err := s.Create(ctx, "keep", "", nil)
	require.NoError(t, err)

	removed, err := NewStore(&failingRepo{Repository: b, failSet: true}, logging.Discard()).CleanupExpired(ctx, start)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestConfirmAction(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, _ := newStore(b)
	ctx := context.Background()

	detected := FromDetected(detect.DetectNote("call mom tomorrow at 5pm\nbuy milk", start))
	require.Len(t, detected, 1)

	n, err := s.Create(ctx, "Errands", "call mom tomorrow at 5pm\nbuy milk", detected)
	require.NoError(t, err)
	assert.Equal(t, detect.IntentCall, n.DetectedActions[0].Type)
	assert.Equal(t, "call mom tomorrow at 5pm", n.DetectedActions[0].Line)

	a, err := s.ConfirmAction(ctx, n.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, n.ID, a.NoteID)
	assert.Equal(t, time.Date(2026, 10, 15, 17, 0, 0, 0, time.UTC), a.Date)

	// confirming again does not duplicate the action
	_, err = s.ConfirmAction(ctx, n.ID, 0)
	require.NoError(t, err)

	actions, err := s.Actions(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, a.ID, actions[0].ID)

	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.DetectedActions[0].Confirmed)
}

func TestConfirmAction_Errors(t *testing.T) {
	b := blobs.NewMemoryRepository()
	s, _ := newStore(b)
	ctx := context.Background()

	n, err := s.Create(ctx, "t", "call bob tomorrow at 9am", FromDetected(detect.DetectNote("call bob tomorrow at 9am", start)))
	require.NoError(t, err)

	_, err = s.ConfirmAction(ctx, "missing", 0)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.ConfirmAction(ctx, n.ID, 5)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = NewStore(&failingRepo{Repository: b, failSetMany: true}, logging.Discard()).ConfirmAction(ctx, n.ID, 0)
	require.ErrorIs(t, err, common.ErrPersistenceFailed)

	// the failed write left both documents unchanged
	actions, err := s.Actions(ctx)
	require.NoError(t, err)
	assert.Empty(t, actions)
	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.DetectedActions[0].Confirmed)
}

func TestStorageErrors(t *testing.T) {
	ctx := context.Background()

	broken := NewStore(&failingRepo{Repository: blobs.NewMemoryRepository(), failGet: true}, logging.Discard())
	_, err := broken.List(ctx)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	_, err = broken.Create(ctx, "t", "c", nil)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)

	readOnly := NewStore(&failingRepo{Repository: blobs.NewMemoryRepository(), failSet: true}, logging.Discard())
	_, err = readOnly.Create(ctx, "t", "c", nil)
	assert.ErrorIs(t, err, common.ErrPersistenceFailed)

	corrupt := blobs.NewMemoryRepository()
	require.NoError(t, corrupt.Set(ctx, StoreKey, []byte("{not json")))
	_, err = NewStore(corrupt, logging.Discard()).List(ctx)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestCreate_Concurrent(t *testing.T) {
	s, _ := newStore(blobs.NewMemoryRepository())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, "", "note", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

package voice

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapture struct {
	beginErr error
	endErr   error
	uri      string
	duration time.Duration
	begun    int
}

func (f *fakeCapture) Begin(context.Context) error {
	f.begun++
	return f.beginErr
}

func (f *fakeCapture) End(context.Context) (string, time.Duration, error) {
	return f.uri, f.duration, f.endErr
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func TestSession_Lifecycle(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	fc := &fakeCapture{uri: "file:///r/1.m4a"}
	s := NewSession(fc)
	s.now = fixedClock(start, start.Add(12*time.Second))
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.Recording())
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyRecording)

	rec, err := s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file:///r/1.m4a", rec.URI)
	assert.Equal(t, 12*time.Second, rec.Duration)
	assert.False(t, s.Recording())

	_, err = s.Stop(ctx)
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestSession_DeviceDurationAndMinimum(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	s := NewSession(&fakeCapture{duration: 3 * time.Second})
	s.now = fixedClock(now)
	require.NoError(t, s.Start(ctx))
	rec, err := s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, rec.Duration)

	s = NewSession(&fakeCapture{})
	s.now = fixedClock(now)
	require.NoError(t, s.Start(ctx))
	rec, err = s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, MinDuration, rec.Duration)
}

func TestSession_CaptureErrors(t *testing.T) {
	ctx := context.Background()
	denied := errors.New("microphone permission denied")

	s := NewSession(&fakeCapture{beginErr: denied})
	assert.ErrorIs(t, s.Start(ctx), denied)
	assert.False(t, s.Recording())

	failing := &fakeCapture{endErr: denied}
	s = NewSession(failing)
	require.NoError(t, s.Start(ctx))
	_, err := s.Stop(ctx)
	assert.ErrorIs(t, err, denied)
	assert.False(t, s.Recording(), "failed stop leaves the session idle")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{0.1, "0:00"},
		{12, "0:12"},
		{59.9, "0:59"},
		{60, "1:00"},
		{754, "12:34"},
		{-5, "0:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), "FormatDuration(%v)", tt.in)
	}
}

func TestFileCapture(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "note.m4a")
	require.NoError(t, os.WriteFile(src, []byte("fake-audio"), 0o600))

	fc, err := NewFileCapture(filepath.Join(dir, "recordings"), src)
	require.NoError(t, err)

	s := NewSession(fc)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	rec, err := s.Stop(ctx)
	require.NoError(t, err)

	u, err := url.Parse(rec.URI)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.True(t, strings.HasSuffix(u.Path, ".m4a"))

	got, err := os.ReadFile(filepath.FromSlash(u.Path))
	require.NoError(t, err)
	assert.Equal(t, "fake-audio", string(got))
	assert.GreaterOrEqual(t, rec.Duration, MinDuration)
}

func TestFileCapture_MissingSource(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCapture(filepath.Join(dir, "recordings"), filepath.Join(dir, "missing.m4a"))
	require.NoError(t, err)

	s := NewSession(fc)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Recording())
}

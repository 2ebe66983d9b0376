package voice

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mindspace/gotcha/internal/filex"
)

// FileCapture "records" by importing an existing audio file into the
// recordings directory. It stands in for a microphone on headless hosts.
type FileCapture struct {
	dir    string
	source string
}

// NewFileCapture imports source into dir, creating dir when needed.
func NewFileCapture(dir, source string) (*FileCapture, error) {
	abs, err := filex.EnsureSubDir("", dir)
	if err != nil {
		return nil, err
	}
	return &FileCapture{dir: abs, source: source}, nil
}

func (f *FileCapture) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fi, err := os.Stat(f.source)
	if err != nil {
		return fmt.Errorf("audio source: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("audio source %s is a directory", f.source)
	}
	return nil
}

// End copies the source into the recordings directory. The duration is
// unknown to a plain file copy and reported as zero.
func (f *FileCapture) End(ctx context.Context) (string, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	dst := filepath.Join(f.dir, "rec-"+uuid.NewString()+filepath.Ext(f.source))
	if _, err := filex.CopyFile(dst, f.source); err != nil {
		return "", 0, err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}
	return u.String(), 0, nil
}

// Package backup exports the app's store documents to an S3-compatible
// bucket. Conversation keys and the key salt never leave the device.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/keystore"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/storage/blobs"
	"golang.org/x/sync/errgroup"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("backup is not configured")

// storePrefix namespaces every blob the app writes.
const storePrefix = "@gotcha_"

// exported reports whether blob belongs in a backup.
func exported(blob string) bool {
	return !strings.HasPrefix(blob, keystore.KeyPrefix) && blob != keystore.SaltKey
}

// Uploader is the part of the S3 client the exporter uses.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Exporter struct {
	blobs    blobs.Repository
	uploader Uploader
	bucket   string
	logger   logging.Logger
	now      func() time.Time
}

func NewExporter(b blobs.Repository, uploader Uploader, bucket string, logger logging.Logger) (*Exporter, error) {
	if bucket == "" || uploader == nil {
		return nil, ErrDisabled
	}
	return &Exporter{blobs: b, uploader: uploader, bucket: bucket, logger: logger, now: time.Now}, nil
}

// Export uploads every store document under a timestamped prefix and
// returns the object keys written. Key material is left out, as are stores
// never written.
func (e *Exporter) Export(ctx context.Context) ([]string, error) {
	prefix := Prefix(e.now())

	stored, err := e.blobs.List(ctx, storePrefix)
	if err != nil {
		e.logger.Error(ctx, "listing stores failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}

	var (
		mu   sync.Mutex
		keys []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, data := range stored {
		if !exported(name) || len(data) == 0 {
			continue
		}
		g.Go(func() error {
			key := prefix + ObjectName(name)
			_, err := e.uploader.PutObject(gctx, &s3.PutObjectInput{
				Bucket:      aws.String(e.bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(data),
				ContentType: aws.String("application/json"),
			})
			if err != nil {
				return fmt.Errorf("uploading %s: %w", key, err)
			}

			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error(ctx, "backup failed", "error", err)
		return nil, err
	}

	sort.Strings(keys)
	e.logger.Info(ctx, "backup exported", "bucket", e.bucket, "objects", len(keys))
	return keys, nil
}

// Prefix is the object key prefix of a backup taken at t.
func Prefix(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("backups/%d/%02d/%02d/%s/", t.Year(), t.Month(), t.Day(), t.Format("20060102T150405Z"))
}

// ObjectName turns a blob name into an object file name.
func ObjectName(blob string) string {
	return strings.TrimPrefix(blob, "@") + ".json"
}

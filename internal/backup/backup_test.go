package backup

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mindspace/gotcha/internal/chats"
	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/keystore"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/notes"
	"github.com/mindspace/gotcha/internal/reminders"
	"github.com/mindspace/gotcha/internal/storage/blobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	bucket  string
	err     error
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.bucket = aws.ToString(in.Bucket)
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestNewExporter_Disabled(t *testing.T) {
	_, err := NewExporter(blobs.NewMemoryRepository(), &fakeUploader{}, "", logging.Discard())
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewExporter(blobs.NewMemoryRepository(), nil, "bucket", logging.Discard())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestExport_UploadsStoresButNotKeys(t *testing.T) {
	repo := blobs.NewMemoryRepository()
	ctx := context.Background()

	_, err := keystore.MasterKey(ctx, repo, []byte("pass"))
	require.NoError(t, err)
	conv := chats.NewRepository(repo, keystore.New(repo, logging.Discard()), logging.Discard())
	_, err = conv.SendMessage(ctx, "3", "see you at 5pm", chats.KindText)
	require.NoError(t, err)
	_, err = reminders.NewStore(repo, logging.Discard()).Save(ctx, reminders.Candidate{Text: "see you at 5pm"})
	require.NoError(t, err)
	_, err = notes.NewStore(repo, logging.Discard()).Create(ctx, "", "pack bags", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, "unrelated", []byte("x")))

	up := &fakeUploader{}
	e, err := NewExporter(repo, up, "gotcha-backups", logging.Discard())
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC) }

	keys, err := e.Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"backups/2026/10/15/20261015T083000Z/gotcha_chats_v1.json",
		"backups/2026/10/15/20261015T083000Z/gotcha_notes.json",
		"backups/2026/10/15/20261015T083000Z/gotcha_reminders_v1.json",
	}, keys)
	assert.Equal(t, "gotcha-backups", up.bucket)
	require.Len(t, up.objects, 3)

	raw, err := repo.Get(ctx, chats.StoreKey)
	require.NoError(t, err)
	assert.Equal(t, raw, up.objects[keys[0]])
	assert.NotContains(t, string(up.objects[keys[0]]), "see you at 5pm")

	keyBlob, err := repo.Get(ctx, keystore.BlobKey("3"))
	require.NoError(t, err)
	for _, body := range up.objects {
		assert.NotContains(t, string(body), string(keyBlob))
	}
}

func TestExport_SkipsMissingStores(t *testing.T) {
	up := &fakeUploader{}
	e, err := NewExporter(blobs.NewMemoryRepository(), up, "b", logging.Discard())
	require.NoError(t, err)

	keys, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Empty(t, up.objects)
}

type unlistableRepo struct {
	blobs.Repository
}

func (unlistableRepo) List(context.Context, string) (map[string][]byte, error) {
	return nil, errors.New("database is locked")
}

func TestExport_ListError(t *testing.T) {
	e, err := NewExporter(unlistableRepo{blobs.NewMemoryRepository()}, &fakeUploader{}, "b", logging.Discard())
	require.NoError(t, err)

	_, err = e.Export(context.Background())
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestExport_UploadError(t *testing.T) {
	repo := blobs.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, reminders.StoreKey, []byte("[]")))

	boom := errors.New("access denied")
	e, err := NewExporter(repo, &fakeUploader{err: boom}, "b", logging.Discard())
	require.NoError(t, err)

	_, err = e.Export(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "gotcha_chats_v1.json", ObjectName("@gotcha_chats_v1"))
	assert.Equal(t, "plain.json", ObjectName("plain"))
}

func TestNewS3Client(t *testing.T) {
	c, err := NewS3Client(context.Background(), S3Settings{
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)

	o := c.Options()
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(o.BaseEndpoint))
	assert.True(t, o.UsePathStyle)
	assert.Equal(t, "us-east-1", o.Region)
}

func TestNewS3Client_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	boom := errors.New("no shared config")
	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}

	_, err := NewS3Client(context.Background(), S3Settings{Region: "us-east-1"})
	assert.ErrorIs(t, err, boom)
}

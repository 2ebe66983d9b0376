package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mindspace/gotcha/internal/backup"
	"github.com/mindspace/gotcha/internal/chats"
	"github.com/mindspace/gotcha/internal/common"
	"github.com/mindspace/gotcha/internal/config"
	"github.com/mindspace/gotcha/internal/detect"
	"github.com/mindspace/gotcha/internal/filex"
	"github.com/mindspace/gotcha/internal/keystore"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/mindspace/gotcha/internal/notes"
	"github.com/mindspace/gotcha/internal/notify"
	"github.com/mindspace/gotcha/internal/reminders"
	"github.com/mindspace/gotcha/internal/storage/blobs"
)

// passphraseEnv lets scripts unlock wrapped keys without a terminal.
const passphraseEnv = "GOTCHA_PASSPHRASE"

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	blobs     blobs.Repository
	chats     *chats.Repository
	reminders *reminders.Store
	notes     *notes.Store
	notifier  notify.Notifier
	exporter  *backup.Exporter
	now       func() time.Time

	out io.Writer
	in  *bufio.Reader

	// suggestion is the reminder detected in the last sent message.
	suggestion *reminders.Candidate
}

// NewApp opens the store described by c and wires every component.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	a := &App{config: c, logger: logger, out: &syncWriter{w: out}, in: bufio.NewReader(in), now: time.Now}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var opts []keystore.Option
	if c.LockKeys {
		master, err := a.masterKey(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, keystore.WithMasterKey(master))
	}
	keys := keystore.New(a.blobs, logger.With("component", "keystore"), opts...)

	a.chats = chats.NewRepository(a.blobs, keys, logger.With("component", "chats"))
	a.reminders = reminders.NewStore(a.blobs, logger.With("component", "reminders"))
	a.notes = notes.NewStore(a.blobs, logger.With("component", "notes"))

	n, err := notify.New(c.Notifier, logger, a.deliver)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.notifier = n

	if c.BackupEnabled() {
		client, err := backup.NewS3Client(ctx, backup.S3Settings{
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating backup client: %w", err)
		}
		if a.exporter, err = backup.NewExporter(a.blobs, client, c.S3Bucket, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.config.InMemory {
		a.blobs = blobs.NewMemoryRepository()
		return nil
	}

	dir, err := filex.EnsureSubDir("", a.config.DataDir)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	db, err := blobs.Open(ctx, filepath.Join(dir, a.config.DatabaseFile))
	if err != nil {
		a.logger.Error(ctx, "error initializing database", "error", err)
		return fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	a.db = db
	a.blobs = blobs.NewSQLiteRepository(db)
	return nil
}

func (a *App) masterKey(ctx context.Context) ([]byte, error) {
	pass := []byte(os.Getenv(passphraseEnv))
	if len(pass) == 0 {
		var err error
		if pass, err = GetPassword(a.out); err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
	}
	defer common.WipeByteArray(pass)

	return keystore.MasterKey(ctx, a.blobs, pass)
}

// recordingsDir resolves the recordings directory under the data directory.
func (a *App) recordingsDir() string {
	if filepath.IsAbs(a.config.RecordingsDir) {
		return a.config.RecordingsDir
	}
	base := a.config.DataDir
	if a.config.InMemory {
		base = os.TempDir()
	}
	return filepath.Join(base, a.config.RecordingsDir)
}

// deliver prints a fired notification.
func (a *App) deliver(n notify.Notification) {
	a.printf("\n🔔 %s\n   %s\n", n.Title, n.Body)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// syncWriter serialises writes; notifications fire from timer goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Close cancels pending notifications and closes the database.
func (a *App) Close() error {
	if a.notifier != nil {
		_ = a.notifier.CancelAll(context.Background())
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// suggestionFor builds a reminder candidate from a sent message, resolving
// a due date when the detector finds one.
func (a *App) suggestionFor(conversationID, text string) (*reminders.Candidate, bool) {
	s, ok := detect.Suggest(text)
	if !ok {
		return nil, false
	}
	c := &reminders.Candidate{Day: s.Day, Time: s.Time, Text: s.Text, ConversationID: conversationID}
	if actions := detect.Detect(text, a.now()); len(actions) > 0 {
		due := actions[0].Date
		c.DueAt = &due
	}
	return c, true
}

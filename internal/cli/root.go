package cli

import (
	"context"
	"io"
	"strings"

	"github.com/mindspace/gotcha/internal/config"
	"github.com/mindspace/gotcha/internal/logging"
	"github.com/spf13/cobra"
)

// Streams are the terminal endpoints of a command run.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewRootCommand builds the gotcha command tree. args is the argument list
// the command will execute with; configuration is loaded from it before the
// App is built. The global flags are declared here so cobra accepts them,
// their values are read by config.LoadConfig.
func NewRootCommand(args []string, s Streams) *cobra.Command {
	root := &cobra.Command{
		Use:           "gotcha",
		Short:         "Encrypted on-device chats and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetArgs(args)
	root.SetIn(s.In)
	root.SetOut(s.Out)
	root.SetErr(s.Err)

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to JSON config file")
	pf.StringP("data-dir", "d", "", "data directory")
	pf.StringP("notifier", "n", "", "notifier: log or timer")
	pf.StringP("log-level", "l", "", "log level: debug, info, warn, error")
	pf.BoolP("in-memory", "m", false, "keep data in memory only")

	run := func(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, cmdArgs []string) error {
			cfg, err := config.LoadConfig(args)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.LogFormat, s.Err)

			a, err := NewApp(cmd.Context(), cfg, logger, s.In, s.Out)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd.Context(), a, cmdArgs)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "chats",
			Short: "List conversations",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, a *App, _ []string) error {
				return a.ListChats(ctx)
			}),
		},
		&cobra.Command{
			Use:   "open <id>",
			Short: "Show a conversation and mark it read",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Open(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "send <id> <text...>",
			Short: "Send an encrypted text message",
			Args:  cobra.MinimumNArgs(2),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Send(ctx, args[0], strings.Join(args[1:], " "))
			}),
		},
		&cobra.Command{
			Use:   "voice <id> <file>",
			Short: "Send an audio file as a voice note",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Voice(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "new <id> <name> [phone]",
			Short: "Start a conversation with a contact",
			Args:  cobra.RangeArgs(2, 3),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				phone := ""
				if len(args) == 3 {
					phone = args[2]
				}
				return a.NewChat(ctx, args[0], args[1], phone)
			}),
		},
		&cobra.Command{
			Use:   "reminders",
			Short: "List reminders",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, a *App, _ []string) error {
				return a.Reminders(ctx)
			}),
		},
		&cobra.Command{
			Use:   "remind <text...>",
			Short: "Save a reminder and schedule its notification",
			Args:  cobra.MinimumNArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Remind(ctx, strings.Join(args, " "))
			}),
		},
		&cobra.Command{
			Use:   "done <id>",
			Short: "Mark a reminder completed",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Done(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a reminder",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Remove(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "note <line...>",
			Short: "Save a note, one argument per line, and detect actions in it",
			Args:  cobra.MinimumNArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Note(ctx, args)
			}),
		},
		&cobra.Command{
			Use:   "notes",
			Short: "List notes, removing expired ones",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, a *App, _ []string) error {
				return a.Notes(ctx)
			}),
		},
		&cobra.Command{
			Use:   "confirm <note-id> <n>",
			Short: "Turn a detected note action into a reminder",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.Confirm(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "note-rm <id>",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.RemoveNote(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "note-expire <id>",
			Short: "Let a note expire a week after its last edit",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, a *App, args []string) error {
				return a.ExpireNote(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Export the encrypted stores to S3",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, a *App, _ []string) error {
				return a.Backup(ctx)
			}),
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, a *App, _ []string) error {
				a.Shell(ctx)
				return nil
			}),
		},
	)

	return root
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a recording stub.
type execIface interface {
	ListChats(ctx context.Context) error
	Open(ctx context.Context, id string) error
	Send(ctx context.Context, id, text string) error
	Voice(ctx context.Context, id, file string) error
	NewChat(ctx context.Context, id, name, phone string) error
	Reminders(ctx context.Context) error
	Remind(ctx context.Context, text string) error
	Done(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Backup(ctx context.Context) error
	Note(ctx context.Context, lines []string) error
	Notes(ctx context.Context) error
	Confirm(ctx context.Context, noteID, pos string) error
	RemoveNote(ctx context.Context, id string) error
	ExpireNote(ctx context.Context, id string) error
}

const helpText = `Available commands:
  chats                      list conversations
  open <id>                  show a conversation
  send <id> <text>           send a message
  voice <id> <file>          send an audio file as a voice note
  new <id> <name> [phone]    start a conversation
  reminders                  list reminders
  remind [text]              save a reminder (last suggestion when empty)
  done <id>                  complete a reminder
  rm <id>                    delete a reminder
  note <line>[; <line>...]   save a note and detect actions in it
  notes                      list notes, dropping expired ones
  confirm <note-id> <n>      turn action n of a note into a reminder
  note-rm <id>               delete a note
  note-expire <id>           let a note expire a week after its last edit
  backup                     export encrypted stores
  exit | quit                leave the shell`

// runREPL reads commands line by line from reader and dispatches them to a.
// Command errors are printed and the loop continues. It returns on EOF, on
// "exit"/"quit", or when ctx is cancelled.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := GetSimpleText(reader, "gotcha", w)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			fmt.Fprintln(w, "error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "chats", "l", "list":
		return a.ListChats(ctx)
	case "open":
		if len(args) != 1 {
			return usage("open <id>")
		}
		return a.Open(ctx, args[0])
	case "send":
		if len(args) < 2 {
			return usage("send <id> <text>")
		}
		return a.Send(ctx, args[0], strings.Join(args[1:], " "))
	case "voice":
		if len(args) != 2 {
			return usage("voice <id> <file>")
		}
		return a.Voice(ctx, args[0], args[1])
	case "new":
		if len(args) < 2 || len(args) > 3 {
			return usage("new <id> <name> [phone]")
		}
		phone := ""
		if len(args) == 3 {
			phone = args[2]
		}
		return a.NewChat(ctx, args[0], args[1], phone)
	case "reminders":
		return a.Reminders(ctx)
	case "remind":
		return a.Remind(ctx, strings.Join(args, " "))
	case "done":
		if len(args) != 1 {
			return usage("done <id>")
		}
		return a.Done(ctx, args[0])
	case "rm":
		if len(args) != 1 {
			return usage("rm <id>")
		}
		return a.Remove(ctx, args[0])
	case "note":
		if len(args) == 0 {
			return usage("note <line> [line...]")
		}
		return a.Note(ctx, strings.Split(strings.Join(args, " "), ";"))
	case "notes":
		return a.Notes(ctx)
	case "confirm":
		if len(args) != 2 {
			return usage("confirm <note-id> <n>")
		}
		return a.Confirm(ctx, args[0], args[1])
	case "note-rm":
		if len(args) != 1 {
			return usage("note-rm <id>")
		}
		return a.RemoveNote(ctx, args[0])
	case "note-expire":
		if len(args) != 1 {
			return usage("note-expire <id>")
		}
		return a.ExpireNote(ctx, args[0])
	case "backup":
		return a.Backup(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// Shell runs the interactive REPL on the App's input and output.
func (a *App) Shell(ctx context.Context) {
	a.println("Gotcha shell (type 'help' for commands)")
	runREPL(ctx, a, a.in, a.out)
}

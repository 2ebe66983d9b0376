package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mindspace/gotcha/internal/detect"
	"github.com/mindspace/gotcha/internal/notes"
	"github.com/mindspace/gotcha/internal/reminders"
)

// actionLayout renders the due date of a detected action.
const actionLayout = "Mon Jan 2 3:04 PM"

// Note saves a note made of lines and lists the actions found in it. The
// first line is the title when the note has more than one line.
func (a *App) Note(ctx context.Context, lines []string) error {
	var kept []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return usage("note <line> [line...]")
	}

	title := ""
	if len(kept) > 1 {
		title = kept[0]
	}
	content := strings.Join(kept, "\n")
	detected := notes.FromDetected(detect.DetectNote(content, a.now()))

	n, err := a.notes.Create(ctx, title, content, detected)
	if err != nil {
		return err
	}
	a.printf("Note %s saved\n", n.ID)
	a.printActions(n)
	if len(n.DetectedActions) > 0 {
		a.printf("Run \"confirm %s <n>\" to turn an action into a reminder.\n", n.ID)
	}
	return nil
}

// Notes drops expired notes and lists the rest.
func (a *App) Notes(ctx context.Context) error {
	if removed, err := a.notes.CleanupExpired(ctx, a.now()); err != nil {
		return err
	} else if removed > 0 {
		a.printf("%d expired note(s) removed\n", removed)
	}

	list, err := a.notes.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No notes.")
		return nil
	}
	for _, n := range list {
		mark := ""
		if n.Expires {
			mark = " ⏳"
		}
		a.printf("%s  %s  (%s)%s\n", n.ID, n.Title, n.UpdatedAt.Local().Format(time.DateTime), mark)
		a.printActions(n)
	}
	return nil
}

// Confirm records action number pos of a note and saves it as a reminder.
func (a *App) Confirm(ctx context.Context, noteID, pos string) error {
	i, err := strconv.Atoi(pos)
	if err != nil || i < 1 {
		return usage("confirm <note-id> <n>")
	}

	act, err := a.notes.ConfirmAction(ctx, noteID, i-1)
	if err != nil {
		return err
	}

	due := act.Date
	return a.saveReminder(ctx, reminders.Candidate{
		Day:   due.Format("Monday"),
		Time:  due.Format("3:04 PM"),
		Text:  act.Title,
		DueAt: &due,
	})
}

func (a *App) RemoveNote(ctx context.Context, id string) error {
	list, err := a.notes.Delete(ctx, id)
	if err != nil {
		return err
	}
	a.printf("%d note(s) left\n", len(list))
	return nil
}

// ExpireNote flags a note for removal once it has not changed for a week.
func (a *App) ExpireNote(ctx context.Context, id string) error {
	expires := true
	n, ok, err := a.notes.Update(ctx, id, notes.Update{Expires: &expires})
	if err != nil {
		return err
	}
	if !ok {
		a.printf("No note %s\n", id)
		return nil
	}
	a.printf("Note %s expires %s\n", n.ID, n.UpdatedAt.Add(notes.Retention).Local().Format(time.DateOnly))
	return nil
}

func (a *App) printActions(n notes.Note) {
	for i, d := range n.DetectedActions {
		mark := " "
		if d.Confirmed {
			mark = "✓"
		}
		a.printf("  %s %d. %s: %s (%s)\n", mark, i+1, d.Type, d.Title, d.Date.Local().Format(actionLayout))
	}
}

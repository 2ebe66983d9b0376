package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mindspace/gotcha/internal/backup"
	"github.com/mindspace/gotcha/internal/chats"
	"github.com/mindspace/gotcha/internal/reminders"
	"github.com/mindspace/gotcha/internal/voice"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// ListChats prints one line per conversation.
func (a *App) ListChats(ctx context.Context) error {
	convs, err := a.chats.ListConversations(ctx)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		a.println("No conversations.")
		return nil
	}
	for _, c := range convs {
		var flags []string
		if c.IsPrivate {
			flags = append(flags, "🔒")
		}
		if c.UnreadCount > 0 {
			flags = append(flags, fmt.Sprintf("(%d)", c.UnreadCount))
		}
		a.printf("%-6s %-16s %-10s %s %s\n", c.ID, c.DisplayName, c.LastActivityLabel, c.LastMessagePreview, strings.Join(flags, " "))
	}
	return nil
}

// Open prints a conversation and clears its unread badge.
func (a *App) Open(ctx context.Context, id string) error {
	c, err := a.chats.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if err := a.chats.MarkRead(ctx, id); err != nil {
		return err
	}

	a.printf("== %s ==\n", c.DisplayName)
	for _, m := range c.Messages {
		a.printf("[%s] %s: %s\n", m.SentAtLabel, senderLabel(m.Sender, c.DisplayName), messageText(m))
	}
	return nil
}

// Send stores a text message and offers a reminder when the text mentions
// a day or a time.
func (a *App) Send(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return usage("send <id> <text>")
	}
	m, err := a.chats.SendMessage(ctx, id, text, chats.KindText)
	if err != nil {
		return err
	}
	a.printf("[%s] me: %s\n", m.SentAtLabel, m.Text)

	if c, ok := a.suggestionFor(id, text); ok {
		a.suggestion = c
		a.printf("💡 Reminder detected: %s at %s. Run \"remind\" to save it.\n", c.Day, c.Time)
	}
	return nil
}

// Voice records a voice note from an audio file and sends it.
func (a *App) Voice(ctx context.Context, id, file string) error {
	capture, err := voice.NewFileCapture(a.recordingsDir(), file)
	if err != nil {
		return err
	}
	session := voice.NewSession(capture)
	if err := session.Start(ctx); err != nil {
		return err
	}
	rec, err := session.Stop(ctx)
	if err != nil {
		return err
	}

	m, err := a.chats.SendMessage(ctx, id, rec.URI, chats.KindAudio)
	if err != nil {
		return err
	}
	a.printf("[%s] me: 🎤 %s (%s)\n", m.SentAtLabel, chats.VoicePreview, voice.FormatDuration(rec.Duration.Seconds()))
	return nil
}

// NewChat opens (or finds) the conversation with a contact.
func (a *App) NewChat(ctx context.Context, id, name, phone string) error {
	c, err := a.chats.CreateConversation(ctx, chats.Contact{ID: id, Name: name, PhoneNumber: phone})
	if err != nil {
		return err
	}
	a.printf("Conversation %s with %s\n", c.ID, c.DisplayName)
	return nil
}

func (a *App) Reminders(ctx context.Context) error {
	list, err := a.reminders.List(ctx)
	if err != nil {
		return err
	}
	a.printReminders(list)
	return nil
}

// Remind saves a reminder for text, or for the last detected suggestion when
// text is empty, and schedules a notification for it.
func (a *App) Remind(ctx context.Context, text string) error {
	var c *reminders.Candidate
	switch {
	case strings.TrimSpace(text) != "":
		var ok bool
		if c, ok = a.suggestionFor("", text); !ok {
			c = &reminders.Candidate{Day: "today", Time: "undetermined", Text: text}
		}
	case a.suggestion != nil:
		c = a.suggestion
	default:
		return usage("remind <text>")
	}

	if err := a.saveReminder(ctx, *c); err != nil {
		return err
	}
	a.suggestion = nil
	return nil
}

// saveReminder stores c and schedules its notification. A scheduling failure
// is logged; the reminder stays saved.
func (a *App) saveReminder(ctx context.Context, c reminders.Candidate) error {
	r, err := a.reminders.Save(ctx, c)
	if err != nil {
		return err
	}

	at := a.now()
	if r.DueAt != nil {
		at = *r.DueAt
	}
	if _, err := a.notifier.Schedule(ctx, "Reminder", r.Text, at); err != nil {
		a.logger.Warn(ctx, "scheduling notification failed", "reminder_id", r.ID, "error", err)
	}

	a.printf("Reminder saved: %s (%s at %s)\n", r.Text, r.Day, r.Time)
	return nil
}

func (a *App) Done(ctx context.Context, id string) error {
	list, err := a.reminders.SetStatus(ctx, id, reminders.StatusCompleted)
	if err != nil {
		return err
	}
	a.printReminders(list)
	return nil
}

func (a *App) Remove(ctx context.Context, id string) error {
	list, err := a.reminders.Delete(ctx, id)
	if err != nil {
		return err
	}
	a.printReminders(list)
	return nil
}

// Backup exports the encrypted stores to the configured bucket.
func (a *App) Backup(ctx context.Context) error {
	if a.exporter == nil {
		return backup.ErrDisabled
	}
	keys, err := a.exporter.Export(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		a.printf("uploaded %s\n", k)
	}
	return nil
}

func (a *App) printReminders(list []reminders.Reminder) {
	if len(list) == 0 {
		a.println("No reminders.")
		return
	}
	for _, r := range list {
		mark := "[ ]"
		if r.Status == reminders.StatusCompleted {
			mark = "[x]"
		}
		due := r.Day + " " + r.Time
		if r.DueAt != nil {
			due = r.DueAt.Local().Format(time.DateTime)
		}
		a.printf("%s %s  %s  (%s)\n", mark, r.ID, r.Text, due)
	}
}

func senderLabel(s chats.Sender, name string) string {
	if s == chats.SenderSelf {
		return "me"
	}
	return name
}

func messageText(m chats.Message) string {
	if m.Kind == chats.KindAudio && !m.Unavailable {
		return "🎤 " + chats.VoicePreview + " " + m.Text
	}
	return m.Text
}

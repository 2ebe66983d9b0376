// Package detect finds actionable intents (reminders, calls, meetings) in
// free text. Everything here is pure: no storage, no clock reads.
package detect

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Intent string

const (
	IntentReminder Intent = "reminder"
	IntentCall     Intent = "call"
	IntentMeeting  Intent = "meeting"
	IntentTask     Intent = "task"
	IntentDeadline Intent = "deadline"
	IntentEvent    Intent = "event"
	IntentCancel   Intent = "cancel"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Action is one detected candidate reminder.
type Action struct {
	Type       Intent
	Title      string
	Date       time.Time
	Confidence Confidence
	// Matched is the date expression found in the text.
	Matched string
	// Line is the source line, set by DetectNote.
	Line string
}

var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentReminder, []string{"remind", "remember", "don't forget", "alert", "notify"}},
	{IntentCall, []string{"call", "phone", "ring", "dial"}},
	{IntentMeeting, []string{"meet", "meeting", "zoom", "sync", "standup", "catch up"}},
	{IntentTask, []string{"todo", "task", "finish", "complete", "do", "need to"}},
	{IntentDeadline, []string{"deadline", "due", "submit", "deliver", "by"}},
	{IntentEvent, []string{"appointment", "event", "schedule", "book"}},
	{IntentCancel, []string{"cancel", "unsubscribe", "stop"}},
}

type intentMatcher struct {
	intent   Intent
	keywords []*regexp.Regexp
}

// intents is checked in order; the first intent with a matching keyword wins.
var intents = compileIntents()

func compileIntents() []intentMatcher {
	out := make([]intentMatcher, 0, len(intentKeywords))
	for _, ik := range intentKeywords {
		m := intentMatcher{intent: ik.intent}
		for _, kw := range ik.keywords {
			m.keywords = append(m.keywords, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		out = append(out, m)
	}
	return out
}

var (
	dayRe    = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|next week)\b`)
	clock12  = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})(?::([0-5]\d))?\s*(am|pm)\b`)
	clock24  = regexp.MustCompile(`\b(?:at\s+)?([01]?\d|2[0-3]):([0-5]\d)\b`)
	trimLead = regexp.MustCompile(`^[.,\-:;•\s]+`)
	trimTail = regexp.MustCompile(`[.,\-:;\s]+$`)
	spaces   = regexp.MustCompile(`\s{2,}`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

const (
	minTextLen  = 5
	defaultHour = 12
	tonightHour = 20
)

// Detect analyses a single sentence. It returns no action for short texts,
// texts without a date cue, dates before now, and texts that carry neither
// an intent keyword nor an explicit time.
func Detect(text string, now time.Time) []Action {
	if len(strings.TrimSpace(text)) < minTextLen {
		return nil
	}

	date, matched, hasTime, ok := resolveDate(text, now)
	if !ok || date.Before(now) {
		return nil
	}

	intent, confidence := IntentReminder, ConfidenceMedium
	lower := strings.ToLower(text)
	for _, in := range intents {
		if containsAnyWord(lower, in.keywords) {
			intent, confidence = in.intent, ConfidenceHigh
			break
		}
	}
	if !hasTime && confidence == ConfidenceMedium {
		return nil
	}

	return []Action{{
		Type:       intent,
		Title:      title(text, matched, intent),
		Date:       date,
		Confidence: confidence,
		Matched:    strings.Join(matched, " "),
	}}
}

// DetectNote runs Detect over every non-blank line of a note.
func DetectNote(content string, now time.Time) []Action {
	var actions []Action
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, a := range Detect(line, now) {
			a.Line = line
			actions = append(actions, a)
		}
	}
	return actions
}

// resolveDate finds the day and clock expressions in text and turns them into
// an absolute time. A time-only expression that already passed today rolls
// over to tomorrow, and a weekday naming today rolls over to next week.
func resolveDate(text string, now time.Time) (date time.Time, matched []string, hasTime, ok bool) {
	dayMatch := dayRe.FindString(text)
	hour, minute, clockText, hasTime := findClock(text)
	if dayMatch == "" && !hasTime {
		return time.Time{}, nil, false, false
	}

	d := strings.ToLower(dayMatch)
	if !hasTime {
		hour, minute = defaultHour, 0
		if d == "tonight" {
			hour = tonightHour
		}
	}

	day := startOfDay(now)
	ahead := 0
	switch d {
	case "", "today", "tonight":
	case "tomorrow":
		day = day.AddDate(0, 0, 1)
	case "next week":
		day = day.AddDate(0, 0, 7)
	default:
		ahead = (int(weekdays[d]) - int(now.Weekday()) + 7) % 7
		day = day.AddDate(0, 0, ahead)
	}
	date = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())

	if date.Before(now) {
		switch {
		case d == "":
			date = date.AddDate(0, 0, 1)
		case isWeekday(d) && ahead == 0:
			date = date.AddDate(0, 0, 7)
		}
	}

	if dayMatch != "" {
		matched = append(matched, dayMatch)
	}
	if clockText != "" {
		matched = append(matched, clockText)
	}
	return date, matched, hasTime, true
}

func findClock(text string) (hour, minute int, matched string, ok bool) {
	if m := clock12.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h < 1 || h > 12 {
			return 0, 0, "", false
		}
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		h %= 12
		if strings.EqualFold(m[3], "pm") {
			h += 12
		}
		return h, minute, m[0], true
	}
	if m := clock24.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		return hour, minute, m[0], true
	}
	return 0, 0, "", false
}

func isWeekday(s string) bool {
	_, ok := weekdays[strings.ToLower(s)]
	return ok
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func containsAnyWord(lower string, keywords []*regexp.Regexp) bool {
	for _, re := range keywords {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func title(text string, matched []string, intent Intent) string {
	t := text
	for _, m := range matched {
		t = strings.Replace(t, m, "", 1)
	}
	t = spaces.ReplaceAllString(t, " ")
	t = trimTail.ReplaceAllString(trimLead.ReplaceAllString(t, ""), "")
	t = strings.TrimSpace(t)
	if t != "" {
		return t
	}
	switch intent {
	case IntentCall:
		return "Call"
	case IntentMeeting:
		return "Meeting"
	default:
		return "Reminder"
	}
}

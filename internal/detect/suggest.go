package detect

import (
	"regexp"
	"strings"
)

// Suggestion is the lightweight reminder prompt shown after sending a chat
// message. Day and Time are the raw matched words, lower-cased.
type Suggestion struct {
	Day  string
	Time string
	Text string
}

const (
	UndeterminedTime = "undetermined"
	DefaultDay       = "today"
)

var suggestTimeRe = regexp.MustCompile(`(?i)(\d{1,2}(?::\d{2})?\s*(?:am|pm))`)

// Suggest reports whether text mentions a day or a 12-hour clock time and
// builds the reminder prompt for it.
func Suggest(text string) (Suggestion, bool) {
	lower := strings.ToLower(text)
	tm := suggestTimeRe.FindString(lower)
	day := dayRe.FindString(lower)
	if tm == "" && day == "" {
		return Suggestion{}, false
	}

	s := Suggestion{Day: DefaultDay, Time: UndeterminedTime, Text: text}
	if tm != "" {
		s.Time = tm
	}
	if day != "" {
		s.Day = day
	}
	return s, true
}

package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-10-14 10:00 UTC.
var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantType   Intent
		wantTitle  string
		wantDate   time.Time
		wantConfid Confidence
	}{
		{
			name:       "call tomorrow at 5pm",
			text:       "Call mom tomorrow at 5pm",
			wantType:   IntentCall,
			wantTitle:  "Call mom",
			wantDate:   time.Date(2026, 10, 15, 17, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
		{
			name:       "meeting on a weekday without time",
			text:       "Team meeting friday",
			wantType:   IntentMeeting,
			wantTitle:  "Team meeting",
			wantDate:   time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
		{
			name:       "explicit time without keyword",
			text:       "Pizza with Alex 7:30 pm",
			wantType:   IntentReminder,
			wantTitle:  "Pizza with Alex",
			wantDate:   time.Date(2026, 10, 14, 19, 30, 0, 0, time.UTC),
			wantConfid: ConfidenceMedium,
		},
		{
			name:       "24 hour clock",
			text:       "remind me 17:00",
			wantType:   IntentReminder,
			wantTitle:  "remind me",
			wantDate:   time.Date(2026, 10, 14, 17, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
		{
			name:       "time already passed rolls to tomorrow",
			text:       "standup at 9am",
			wantType:   IntentMeeting,
			wantTitle:  "standup",
			wantDate:   time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
		{
			name:       "tonight defaults to evening",
			text:       "don't forget the tickets tonight",
			wantType:   IntentReminder,
			wantTitle:  "don't forget the tickets",
			wantDate:   time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
		{
			name:       "same weekday moves to next week",
			text:       "submit report wednesday 8am",
			wantType:   IntentDeadline,
			wantTitle:  "submit report",
			wantDate:   time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
		{
			name:       "keyword with day only",
			text:       "call tomorrow",
			wantType:   IntentCall,
			wantTitle:  "call",
			wantDate:   time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
			wantConfid: ConfidenceHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text, now)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantType, got[0].Type)
			assert.Equal(t, tt.wantTitle, got[0].Title)
			assert.Equal(t, tt.wantDate, got[0].Date)
			assert.Equal(t, tt.wantConfid, got[0].Confidence)
		})
	}
}

func TestDetect_NoAction(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "too short", text: "5pm"},
		{name: "no date cue", text: "call me when you can"},
		{name: "day without time or keyword", text: "lovely weather tomorrow"},
		{name: "today without time or keyword", text: "Hello there today"},
		{name: "time already passed today", text: "remind me 9:00 today"},
		{name: "empty", text: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Detect(tt.text, now))
		})
	}
}

func TestDetect_TitleDefault(t *testing.T) {
	got := Detect("meeting - tomorrow 3pm", now)
	require.Len(t, got, 1)
	assert.Equal(t, "meeting", got[0].Title)

	got = Detect("Tomorrow at 3pm", now)
	require.Len(t, got, 1)
	assert.Equal(t, "Reminder", got[0].Title)
}

func TestDetectNote(t *testing.T) {
	note := "Groceries\n\nCall dentist tomorrow 10am\nnothing here\nMeet Sarah friday at 6pm"
	got := DetectNote(note, now)
	require.Len(t, got, 2)
	assert.Equal(t, IntentCall, got[0].Type)
	assert.Equal(t, "Call dentist tomorrow 10am", got[0].Line)
	assert.Equal(t, IntentMeeting, got[1].Type)
	assert.Equal(t, time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC), got[1].Date)
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Suggestion
		ok   bool
	}{
		{
			name: "day and time",
			text: "Let's meet Tomorrow at 5PM",
			want: Suggestion{Day: "tomorrow", Time: "5pm", Text: "Let's meet Tomorrow at 5PM"},
			ok:   true,
		},
		{
			name: "time only",
			text: "ping me 10:30 am",
			want: Suggestion{Day: DefaultDay, Time: "10:30 am", Text: "ping me 10:30 am"},
			ok:   true,
		},
		{
			name: "day only",
			text: "see you next week",
			want: Suggestion{Day: "next week", Time: UndeterminedTime, Text: "see you next week"},
			ok:   true,
		},
		{
			name: "nothing",
			text: "how are you?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Suggest(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

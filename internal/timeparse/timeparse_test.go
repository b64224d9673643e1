package timeparse

import (
	"errors"
	"testing"
	"time"
)

// Wednesday, 08:00 local.
func refTime(loc *time.Location) time.Time {
	return time.Date(2026, time.March, 4, 8, 0, 0, 0, loc)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{input: "21:00", hour: 21},
		{input: "9:30", hour: 9, minute: 30},
		{input: "0:05", hour: 0, minute: 5},
		{input: "8", hour: 8},
		{input: "17", hour: 17},
		{input: "0", hour: 0},
		{input: "23", hour: 23},
		{input: "7am", hour: 7},
		{input: "7AM", hour: 7},
		{input: "6 PM", hour: 18},
		{input: "12am", hour: 0},
		{input: "12pm", hour: 12},
		{input: "2100", hour: 21},
		{input: "0700", hour: 7},
		{input: "0000", hour: 0},
		{input: "25:00", wantErr: true},
		{input: "7:60", wantErr: true},
		{input: "13pm", wantErr: true},
		{input: "0am", wantErr: true},
		{input: "24", wantErr: true},
		{input: "2460", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hour, minute, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) = %d:%d, want error", tt.input, hour, minute)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) unexpected error: %v", tt.input, err)
			}
			if hour != tt.hour || minute != tt.minute {
				t.Errorf("ParseTimeOfDay(%q) = %d:%d, want %d:%d",
					tt.input, hour, minute, tt.hour, tt.minute)
			}
		})
	}
}

func TestResolveDueInstant_NoDayToken(t *testing.T) {
	ref := refTime(time.UTC)

	t.Run("future time stays on the same day", func(t *testing.T) {
		due, err := ResolveDueInstant("", "9:15", ref, time.UTC)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, time.March, 4, 9, 15, 0, 0, time.UTC)
		if !due.Equal(want) {
			t.Errorf("due = %v, want %v", due, want)
		}
	})

	t.Run("elapsed time rolls forward one day", func(t *testing.T) {
		due, err := ResolveDueInstant("", "7:30", ref, time.UTC)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, time.March, 5, 7, 30, 0, 0, time.UTC)
		if !due.Equal(want) {
			t.Errorf("due = %v, want %v", due, want)
		}
	})

	t.Run("exactly now rolls forward", func(t *testing.T) {
		due, err := ResolveDueInstant("", "8:00", ref, time.UTC)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if due.Day() != 5 {
			t.Errorf("due on day %d, want rollover to day 5", due.Day())
		}
	})
}

func TestResolveDueInstant_RelativeDays(t *testing.T) {
	ref := refTime(time.UTC)

	tests := []struct {
		token string
		day   int
	}{
		{token: "tomorrow", day: 5},
		{token: "sutra", day: 5},
		{token: "dat", day: 6},
		{token: "prekosutra", day: 6},
	}

	for _, tt := range tests {
		due, err := ResolveDueInstant(tt.token, "10:00", ref, time.UTC)
		if err != nil {
			t.Fatalf("ResolveDueInstant(%q): %v", tt.token, err)
		}
		if due.Day() != tt.day || due.Hour() != 10 {
			t.Errorf("ResolveDueInstant(%q) = %v, want day %d at 10:00", tt.token, due, tt.day)
		}
	}
}

// A weekday token must always land strictly in the future, even when the
// reference day already is that weekday.
func TestResolveDueInstant_WeekdayNeverSameDay(t *testing.T) {
	ref := refTime(time.UTC)

	tokens := []string{
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"pon", "uto", "sre", "cet", "pet", "sub", "ned",
	}

	for _, token := range tokens {
		due, err := ResolveDueInstant(token, "10:00", ref, time.UTC)
		if err != nil {
			t.Fatalf("ResolveDueInstant(%q): %v", token, err)
		}
		if target, ok := weekdayTokens[token]; !ok || due.Weekday() != target {
			t.Errorf("ResolveDueInstant(%q) landed on %v", token, due.Weekday())
		}
		if !due.After(ref) || due.YearDay() == ref.YearDay() {
			t.Errorf("ResolveDueInstant(%q) = %v, not strictly after reference day", token, due)
		}
	}

	// Reference is a Wednesday: "wed" means next week, not today.
	due, err := ResolveDueInstant("wed", "23:00", ref, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, time.March, 11, 23, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("wed from Wednesday = %v, want %v", due, want)
	}
}

func TestResolveDueInstant_ExplicitDates(t *testing.T) {
	ref := refTime(time.UTC)

	tests := []struct {
		name  string
		token string
		want  time.Time
	}{
		{
			name:  "full date with trailing dot",
			token: "23.12.2026.",
			want:  time.Date(2026, time.December, 23, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "full date keeps an explicit past year",
			token: "15.01.2026",
			want:  time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "short date ahead stays in the current year",
			token: "25.12.",
			want:  time.Date(2026, time.December, 25, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "short date already passed rolls to next year",
			token: "01.02",
			want:  time.Date(2027, time.February, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "short date today stays today",
			token: "04.03",
			want:  time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "slash separators",
			token: "24/12",
			want:  time.Date(2026, time.December, 24, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "slash full date",
			token: "01/01/2027",
			want:  time.Date(2027, time.January, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, err := ResolveDueInstant(tt.token, "10:00", ref, time.UTC)
			if err != nil {
				t.Fatalf("ResolveDueInstant(%q): %v", tt.token, err)
			}
			if !due.Equal(tt.want) {
				t.Errorf("ResolveDueInstant(%q) = %v, want %v", tt.token, due, tt.want)
			}
		})
	}

	// Impossible calendar dates are not date tokens at all.
	for _, token := range []string{"30.02.2026", "32.01", "00.05", "15.13"} {
		if _, err := ResolveDueInstant(token, "10:00", ref, time.UTC); !errors.Is(err, ErrUnknownDay) {
			t.Errorf("ResolveDueInstant(%q) error = %v, want ErrUnknownDay", token, err)
		}
	}
}

func TestResolveDueInstant_Errors(t *testing.T) {
	ref := refTime(time.UTC)

	if _, err := ResolveDueInstant("", "garbage", ref, time.UTC); !errors.Is(err, ErrNoTimeToken) {
		t.Errorf("expected ErrNoTimeToken, got %v", err)
	}
	if _, err := ResolveDueInstant("someday", "10:00", ref, time.UTC); !errors.Is(err, ErrUnknownDay) {
		t.Errorf("expected ErrUnknownDay, got %v", err)
	}
}

func TestParseReminderText(t *testing.T) {
	ref := refTime(time.UTC)

	tests := []struct {
		name     string
		message  string
		wantText string
		wantDue  time.Time
		wantErr  error
	}{
		{
			name:     "plain trailing time",
			message:  "Pozovi Jovana 18:30",
			wantText: "Pozovi Jovana",
			wantDue:  time.Date(2026, time.March, 4, 18, 30, 0, 0, time.UTC),
		},
		{
			name:     "relative day plus time",
			message:  "Coffee tomorrow 16:00",
			wantText: "Coffee",
			wantDue:  time.Date(2026, time.March, 5, 16, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekday plus time",
			message:  "Meeting mon 10:00",
			wantText: "Meeting",
			wantDue:  time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "two-word meridiem time",
			message:  "Call John 6 PM",
			wantText: "Call John",
			wantDue:  time.Date(2026, time.March, 4, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "military time",
			message:  "Test 2100",
			wantText: "Test",
			wantDue:  time.Date(2026, time.March, 4, 21, 0, 0, 0, time.UTC),
		},
		{
			name:     "elapsed meridiem rolls to tomorrow",
			message:  "Something 7am",
			wantText: "Something",
			wantDue:  time.Date(2026, time.March, 5, 7, 0, 0, 0, time.UTC),
		},
		{
			name:     "full date plus time",
			message:  "Sastanak 23.12.2026. 9:00",
			wantText: "Sastanak",
			wantDue:  time.Date(2026, time.December, 23, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "short date plus time",
			message:  "Event 31.12 18:00",
			wantText: "Event",
			wantDue:  time.Date(2026, time.December, 31, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "slash date plus time",
			message:  "Party 01/01/2027 20:00",
			wantText: "Party",
			wantDue:  time.Date(2027, time.January, 1, 20, 0, 0, 0, time.UTC),
		},
		{
			name:     "impossible date folds into the text",
			message:  "Meeting 99.99 10:00",
			wantText: "Meeting 99.99",
			wantDue:  time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "time before day token",
			message: "Review 9:00 tomorrow",
			wantErr: ErrTimeNotLast,
		},
		{
			name:    "time before date token",
			message: "Review 9:00 23.12",
			wantErr: ErrTimeNotLast,
		},
		{
			name:    "date and time without text",
			message: "23.12 16:00",
			wantErr: ErrEmptyMessage,
		},
		{
			name:    "no time token",
			message: "just some words",
			wantErr: ErrNoTimeToken,
		},
		{
			name:    "single word",
			message: "hello",
			wantErr: ErrNoTimeToken,
		},
		{
			name:    "day and time without text",
			message: "tomorrow 16:00",
			wantErr: ErrEmptyMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, due, err := ParseReminderText(tt.message, ref, time.UTC)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseReminderText(%q) error = %v, want %v", tt.message, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReminderText(%q): %v", tt.message, err)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if !due.Equal(tt.wantDue) {
				t.Errorf("due = %v, want %v", due, tt.wantDue)
			}
		})
	}
}

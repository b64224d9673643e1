// Package timeparse resolves day/time tokens and recurrence rules into
// absolute due instants. All calendar math is done in the owner's civil
// timezone and converted to an instant only at the boundary.
package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoTimeToken  = errors.New("no recognized time token")
	ErrTimeNotLast  = errors.New("time must be the trailing token")
	ErrUnknownDay   = errors.New("unknown day token")
	ErrEmptyMessage = errors.New("reminder text is empty")
)

// Relative-day tokens and the number of civil days they add.
var dayOffsets = map[string]int{
	"tomorrow":   1,
	"sutra":      1,
	"dat":        2,
	"prekosutra": 2,
}

// Weekday tokens: English full and short forms plus Serbian short forms.
var weekdayTokens = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday, "pon": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "uto": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "sre": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "cet": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "pet": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "sub": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday, "ned": time.Sunday,
}

var (
	reClock    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reMeridiem = regexp.MustCompile(`^(\d{1,2})\s*(am|pm)$`)
	reMilitary = regexp.MustCompile(`^(\d{4})$`)
	reBareHour = regexp.MustCompile(`^(\d{1,2})$`)

	reDateFull  = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})[./](\d{4})$`)
	reDateShort = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})$`)
)

// ParseTimeOfDay parses the four supported time syntaxes: "H:MM", bare hour,
// "H AM"/"HPM" and 4-digit military time.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if m := reClock.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, fmt.Errorf("time %q out of range: %w", s, ErrNoTimeToken)
		}
		return hour, minute, nil
	}

	if m := reMeridiem.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("hour %q out of range: %w", s, ErrNoTimeToken)
		}
		switch m[2] {
		case "am":
			if hour == 12 {
				hour = 0
			}
		case "pm":
			if hour != 12 {
				hour += 12
			}
		}
		return hour, 0, nil
	}

	if m := reMilitary.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1][:2])
		minute, _ = strconv.Atoi(m[1][2:])
		if hour > 23 || minute > 59 {
			return 0, 0, fmt.Errorf("time %q out of range: %w", s, ErrNoTimeToken)
		}
		return hour, minute, nil
	}

	if m := reBareHour.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if hour > 23 {
			return 0, 0, fmt.Errorf("hour %q out of range: %w", s, ErrNoTimeToken)
		}
		return hour, 0, nil
	}

	return 0, 0, ErrNoTimeToken
}

// IsDayToken reports whether word is a relative-day or weekday token.
func IsDayToken(word string) bool {
	w := strings.ToLower(word)
	if _, ok := dayOffsets[w]; ok {
		return true
	}
	_, ok := weekdayTokens[w]
	return ok
}

// parseDate resolves an explicit date token ("23.12.2026.", "25.12.", "24/12")
// to midnight in loc. A date without a year takes the current year, or the
// next one when that date has already passed.
func parseDate(token string, ref time.Time, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(token), ".")

	if m := reDateFull.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		return civilDate(y, mo, d, loc)
	}

	if m := reDateShort.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])

		now := ref.In(loc)
		date, ok := civilDate(now.Year(), mo, d, loc)
		if !ok {
			return time.Time{}, false
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		if date.Before(today) {
			return civilDate(now.Year()+1, mo, d, loc)
		}
		return date, true
	}

	return time.Time{}, false
}

// civilDate rejects impossible calendar dates instead of letting time.Date
// normalize them (30.02 must not become March 2).
func civilDate(y, mo, d int, loc *time.Location) (time.Time, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// ResolveDueInstant turns an optional day token and a time token into an
// absolute instant, evaluated against ref in loc. The day token may be a
// relative day, a weekday or an explicit date.
//
// With no day token, a time-of-day that has already elapsed on ref's civil
// date rolls forward one day. A weekday token always resolves to the next
// strictly-future occurrence of that weekday, never the same day.
func ResolveDueInstant(dayToken, timeToken string, ref time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeToken)
	if err != nil {
		return time.Time{}, err
	}

	now := ref.In(loc)
	y, mo, d := now.Date()

	if dayToken == "" {
		due := time.Date(y, mo, d, hour, minute, 0, 0, loc)
		if !due.After(now) {
			due = time.Date(y, mo, d+1, hour, minute, 0, 0, loc)
		}
		return due, nil
	}

	token := strings.ToLower(strings.TrimSpace(dayToken))
	if offset, ok := dayOffsets[token]; ok {
		return time.Date(y, mo, d+offset, hour, minute, 0, 0, loc), nil
	}
	if target, ok := weekdayTokens[token]; ok {
		ahead := int(target-now.Weekday()+7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return time.Date(y, mo, d+ahead, hour, minute, 0, 0, loc), nil
	}
	if date, ok := parseDate(token, ref, loc); ok {
		dy, dmo, dd := date.Date()
		return time.Date(dy, dmo, dd, hour, minute, 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownDay, dayToken)
}

// ParseReminderText splits a message into payload text and a due instant.
// The grammar is "<text> [day] <time>": the time token must be trailing, an
// optional day token (relative day, weekday or explicit date) sits right
// before it.
func ParseReminderText(message string, ref time.Time, loc *time.Location) (string, time.Time, error) {
	words := strings.Fields(strings.TrimSpace(message))
	if len(words) < 2 {
		return "", time.Time{}, ErrNoTimeToken
	}

	isDayOrDate := func(word string) bool {
		if IsDayToken(word) {
			return true
		}
		_, ok := parseDate(word, ref, loc)
		return ok
	}

	var text, dayToken, timeToken string

	last := words[len(words)-1]
	if _, _, err := ParseTimeOfDay(last); err == nil {
		timeToken = last
		rest := words[:len(words)-1]
		if len(rest) >= 1 && isDayOrDate(rest[len(rest)-1]) {
			dayToken = rest[len(rest)-1]
			rest = rest[:len(rest)-1]
		}
		text = strings.Join(rest, " ")
	} else if len(words) >= 3 {
		// "6 PM" style: the time token spans the last two words.
		lastTwo := words[len(words)-2] + " " + last
		if _, _, err := ParseTimeOfDay(lastTwo); err == nil {
			timeToken = lastTwo
			text = strings.Join(words[:len(words)-2], " ")
		}
	}

	if timeToken == "" {
		// Day token after the time is an ordering violation, not a miss.
		if isDayOrDate(last) {
			if _, _, err := ParseTimeOfDay(words[len(words)-2]); err == nil {
				return "", time.Time{}, ErrTimeNotLast
			}
		}
		return "", time.Time{}, ErrNoTimeToken
	}
	if text == "" {
		return "", time.Time{}, ErrEmptyMessage
	}

	due, err := ResolveDueInstant(dayToken, timeToken, ref, loc)
	if err != nil {
		return "", time.Time{}, err
	}
	return text, due, nil
}

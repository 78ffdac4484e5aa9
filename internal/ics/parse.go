// Package ics reads and writes the calendar interchange grammar
// (line-folded, colon-delimited properties inside BEGIN:VEVENT blocks).
//
// Parsing is deliberately lenient: a malformed block is dropped and the
// rest of the payload is still processed, because feeds exported by other
// tools routinely contain blocks this system cannot use.
package ics

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/daysync/daysync/internal/classify"
)

// ParsedEvent is one usable VEVENT from an interchange payload.
type ParsedEvent struct {
	UID             string
	Title           string
	Description     string
	StartsAt        time.Time
	AllDay          bool
	LooksSpecial    bool
	RecurringYearly bool
}

// Parse scans text for VEVENT blocks and returns the usable ones. Blocks
// missing a title or a parseable start are dropped silently; the caller
// decides whether an overall empty result is an error.
func Parse(text string, cfg classify.Config) []ParsedEvent {
	var events []ParsedEvent

	var cur map[string]string
	for _, line := range unfold(text) {
		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VEVENT":
			cur = make(map[string]string)
			continue
		case upper == "END:VEVENT":
			if cur != nil {
				if ev, ok := finishEvent(cur, cfg); ok {
					events = append(events, ev)
				}
			}
			cur = nil
			continue
		}
		if cur == nil {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Drop property parameters: "DTSTART;VALUE=DATE" keys as "DTSTART".
		if i := strings.IndexByte(name, ';'); i >= 0 {
			name = name[:i]
		}
		cur[strings.ToUpper(strings.TrimSpace(name))] = value
	}
	return events
}

// unfold splits text into logical lines, joining continuation lines (those
// beginning with a space or tab) onto their predecessor.
func unfold(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var lines []string
	for _, l := range raw {
		if len(l) > 0 && (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func finishEvent(props map[string]string, cfg classify.Config) (ParsedEvent, bool) {
	title := Unescape(props["SUMMARY"])
	if strings.TrimSpace(title) == "" {
		return ParsedEvent{}, false
	}
	start, allDay, ok := parseStart(props["DTSTART"])
	if !ok {
		return ParsedEvent{}, false
	}

	return ParsedEvent{
		UID:             strings.TrimSpace(props["UID"]),
		Title:           title,
		Description:     Unescape(props["DESCRIPTION"]),
		StartsAt:        start,
		AllDay:          allDay,
		LooksSpecial:    cfg.Classify(title, "").LooksSpecial,
		RecurringYearly: yearlyRule(props["RRULE"]),
	}, true
}

// parseStart handles the two start shapes: an 8-digit pure date, stored at
// local noon, and date "T" time, optionally suffixed with the UTC marker.
func parseStart(v string) (time.Time, bool, bool) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, false, false
	case len(v) == 8 && !strings.Contains(v, "T"):
		d, err := time.ParseInLocation("20060102", v, time.Local)
		if err != nil {
			return time.Time{}, false, false
		}
		noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.Local)
		return noon, true, true
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, false, true
	default:
		t, err := time.ParseInLocation("20060102T150405", v, time.Local)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, false, true
	}
}

// yearlyRule reports whether a recurrence rule carries a yearly frequency.
func yearlyRule(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	opt, err := rrule.StrToROption(v)
	if err != nil {
		// Keep the annotation useful even for rules the library rejects.
		return strings.Contains(strings.ToUpper(v), "FREQ=YEARLY")
	}
	return opt.Freq == rrule.YEARLY
}

// Unescape reverses the interchange text escapes: \n, \, \; and \\.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

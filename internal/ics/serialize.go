package ics

import (
	"strings"

	"github.com/daysync/daysync/internal"
)

// FeedOptions controls the serialized feed. TitleTemplate may reference
// {title}, {person} and {group}; literal text passes through. An empty
// template renders the bare title.
type FeedOptions struct {
	CalendarName  string
	GroupName     string
	TitleTemplate string
}

const crlf = "\r\n"

// Serialize renders events as an interchange calendar with CRLF line
// endings. Recurring categories get a yearly recurrence rule so consumers
// repeat them without this system re-exporting every year.
func Serialize(events []*internal.Event, opts FeedOptions) string {
	var b strings.Builder

	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:-//daysync//daysync//EN")
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "METHOD:PUBLISH")
	if opts.CalendarName != "" {
		writeLine(&b, "X-WR-CALNAME:"+Escape(opts.CalendarName))
	}

	for _, ev := range events {
		writeLine(&b, "BEGIN:VEVENT")
		writeLine(&b, "UID:"+ev.ID+"@daysync")
		writeLine(&b, "DTSTART;VALUE=DATE:"+ev.OccursAt.Format("20060102"))
		writeLine(&b, "SUMMARY:"+Escape(renderTitle(ev, opts)))
		if ev.Notes != "" {
			writeLine(&b, "DESCRIPTION:"+Escape(ev.Notes))
		}
		if ev.Category.Recurring() {
			writeLine(&b, "RRULE:FREQ=YEARLY")
		}
		writeLine(&b, "END:VEVENT")
	}

	writeLine(&b, "END:VCALENDAR")
	return b.String()
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString(crlf)
}

func renderTitle(ev *internal.Event, opts FeedOptions) string {
	if opts.TitleTemplate == "" {
		return ev.Title
	}
	return strings.NewReplacer(
		"{title}", ev.Title,
		"{person}", ev.Person,
		"{group}", opts.GroupName,
	).Replace(opts.TitleTemplate)
}

// Escape applies the interchange text escapes for backslash, newline,
// comma and semicolon.
func Escape(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		"\n", `\n`,
		"\r", "",
		",", `\,`,
		";", `\;`,
	).Replace(s)
}

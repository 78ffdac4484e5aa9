// Package classify holds the keyword heuristics that turn free-text event
// titles into categories, classification buckets, and person names. The
// keyword tables are configuration data so callers can extend them without
// touching the matching code.
package classify

import (
	"strings"

	"github.com/daysync/daysync/internal"
)

// Config maps categories and buckets to their trigger keywords. Matching is
// case-insensitive substring search over the title.
type Config struct {
	// Categories triggers category derivation; first match in the fixed
	// category order wins.
	Categories map[internal.Category][]string

	// Reminder triggers the reminder-like bucket.
	Reminder []string

	// BirthdayEventTypes are provider event-type markers that force the
	// birthday-like bucket regardless of title.
	BirthdayEventTypes []string

	// AutomatedEventTypes are provider event-type markers for generated
	// or reminder-style entries.
	AutomatedEventTypes []string
}

// categoryOrder fixes derivation precedence: a "wedding anniversary" title
// should land on anniversary, so anniversary is checked before wedding.
var categoryOrder = []internal.Category{
	internal.CategoryBirthday,
	internal.CategoryAnniversary,
	internal.CategoryWedding,
	internal.CategoryMemorial,
}

// DefaultConfig returns the stock keyword tables, including common
// misspellings seen in real titles.
func DefaultConfig() Config {
	return Config{
		Categories: map[internal.Category][]string{
			internal.CategoryBirthday:    {"birthday", "bday", "b-day", "birthdy", "bithday"},
			internal.CategoryAnniversary: {"anniversary", "aniversary", "anniversery"},
			internal.CategoryWedding:     {"wedding"},
			internal.CategoryMemorial:    {"memorial", "remembrance", "in memory"},
		},
		Reminder:            []string{"reminder", "todo", "to-do", "to do", "task", "deadline", "due"},
		BirthdayEventTypes:  []string{"birthday"},
		AutomatedEventTypes: []string{"fromGmail", "workingLocation", "outOfOffice", "focusTime"},
	}
}

// Result is the bucket assignment for one title. The buckets are mutually
// exclusive; meeting-like is the default when nothing else matches.
type Result struct {
	BirthdayLike bool
	ReminderLike bool
	MeetingLike  bool
	LooksSpecial bool
}

// Classify buckets a raw title plus the provider's event-type marker.
func (c Config) Classify(title, providerEventType string) Result {
	lower := strings.ToLower(title)

	birthday := containsType(c.BirthdayEventTypes, providerEventType)
	if !birthday {
		for _, words := range c.Categories {
			if matchAny(lower, words) {
				birthday = true
				break
			}
		}
	}
	if birthday {
		return Result{BirthdayLike: true, LooksSpecial: true}
	}

	if matchAny(lower, c.Reminder) || containsType(c.AutomatedEventTypes, providerEventType) {
		return Result{ReminderLike: true}
	}

	return Result{MeetingLike: true}
}

// Category derives the semantic category from a title. Unmatched titles are
// CategoryOther.
func (c Config) Category(title string) internal.Category {
	lower := strings.ToLower(title)
	for _, cat := range categoryOrder {
		if matchAny(lower, c.Categories[cat]) {
			return cat
		}
	}
	return internal.CategoryOther
}

// Person strips category keywords and possessive markers from a title,
// leaving the person (or couple) the day belongs to. An empty result means
// no person could be derived.
func (c Config) Person(title string) string {
	keywords := make(map[string]struct{})
	for _, words := range c.Categories {
		for _, w := range words {
			keywords[w] = struct{}{}
		}
	}

	var kept []string
	for _, field := range strings.Fields(title) {
		word := strings.Trim(field, ",.:;!-–()")
		word = strings.TrimSuffix(word, "'s")
		word = strings.TrimSuffix(word, "’s")
		if word == "" {
			continue
		}
		if _, ok := keywords[strings.ToLower(word)]; ok {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func matchAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func containsType(types []string, eventType string) bool {
	if eventType == "" {
		return false
	}
	for _, t := range types {
		if strings.EqualFold(t, eventType) {
			return true
		}
	}
	return false
}

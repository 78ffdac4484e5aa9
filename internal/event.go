package internal

import "time"

// Category is the semantic kind of a special day, derived from free-text
// titles by the classifier.
type Category string

const (
	CategoryBirthday    Category = "birthday"
	CategoryAnniversary Category = "anniversary"
	CategoryWedding     Category = "wedding"
	CategoryMemorial    Category = "memorial"
	CategoryOther       Category = "other"
)

func (c Category) String() string {
	return string(c)
}

// Recurring reports whether events of this category repeat yearly.
func (c Category) Recurring() bool {
	switch c {
	case CategoryBirthday, CategoryAnniversary, CategoryWedding, CategoryMemorial:
		return true
	}
	return false
}

type Origin string

const (
	OriginManual   Origin = "manual"
	OriginExternal Origin = "external"
)

// Event is a persisted special-day record. All-day events are stored at
// local noon so a timezone shift cannot move them across a date boundary.
//
// When ExternalID is set, the (OwnerGroupID, ExternalID, ExternalCalendarID)
// triple is unique and acts as the idempotency key for synchronized records.
type Event struct {
	ID                 string
	OwnerGroupID       string // empty means personal
	CreatorUserID      string
	Title              string
	Category           Category
	OccursAt           time.Time
	Person             string
	Notes              string
	Origin             Origin
	ExternalID         string
	ExternalCalendarID string
}

// EventPatch carries the mutable fields written by an update. Merge
// decisions are made by the caller before the patch is built.
type EventPatch struct {
	Title    string
	Category Category
	OccursAt time.Time
	Person   string
	Notes    string
}

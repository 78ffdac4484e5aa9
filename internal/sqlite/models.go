package sqlite

import (
	"database/sql"
	"time"

	"github.com/daysync/daysync/internal"
)

type Event struct {
	ID                 string         `db:"id"`
	OwnerGroupID       sql.NullString `db:"owner_group_id"`
	CreatorUserID      string         `db:"creator_user_id"`
	Title              string         `db:"title"`
	Category           string         `db:"category"`
	OccursAt           time.Time      `db:"occurs_at"`
	Person             sql.NullString `db:"person"`
	Notes              sql.NullString `db:"notes"`
	Origin             string         `db:"origin"`
	ExternalID         sql.NullString `db:"external_id"`
	ExternalCalendarID sql.NullString `db:"external_calendar_id"`
}

func (e Event) Convert() *internal.Event {
	return &internal.Event{
		ID:                 e.ID,
		OwnerGroupID:       e.OwnerGroupID.String,
		CreatorUserID:      e.CreatorUserID,
		Title:              e.Title,
		Category:           internal.Category(e.Category),
		OccursAt:           e.OccursAt,
		Person:             e.Person.String,
		Notes:              e.Notes.String,
		Origin:             internal.Origin(e.Origin),
		ExternalID:         e.ExternalID.String,
		ExternalCalendarID: e.ExternalCalendarID.String,
	}
}

type Credential struct {
	UserID       string       `db:"user_id"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	Expiry       sql.NullTime `db:"expiry"`
	Scope        string       `db:"scope"`
}

func (c Credential) Convert() *internal.Credential {
	return &internal.Credential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry.Time,
		Scope:        c.Scope,
	}
}

// nullStr maps the empty string onto NULL, matching the nullable columns.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

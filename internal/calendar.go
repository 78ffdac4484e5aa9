package internal

import "time"

// CalendarInfo describes one calendar on the provider side.
type CalendarInfo struct {
	ID      string
	Name    string
	Primary bool
}

// SyncCursor is the per-group incremental sync state. A group holds at most
// one resume token and it is only valid for the single calendar it was
// issued for; syncing any other set of calendars falls back to a windowed
// scan.
type SyncCursor struct {
	ResumeToken     string
	BoundCalendarID string
}

// Credential is the stored provider credential for one user.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scope        string
}

// Expired reports whether the access token is past (or within margin of)
// its expiry.
func (c Credential) Expired(now time.Time, margin time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry.Add(-margin))
}

// Account is a ready-to-use identity for provider calls: a user plus a
// usable credential. It is built per call, never shared process-wide.
type Account struct {
	UserID     string
	Credential Credential
}

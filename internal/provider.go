package internal

import (
	"context"
	"time"
)

// ProviderEvent is a raw event as returned by (or sent to) the external
// provider, before classification and upserting.
type ProviderEvent struct {
	ID          string
	Title       string
	Description string
	EventType   string // provider-specific marker, e.g. "birthday"
	Status      string
	StartsAt    time.Time
	HasStart    bool
	AllDay      bool
	RecurYearly bool // only meaningful on insert
}

// EventQuery selects either an incremental listing (ResumeToken set) or a
// windowed one (TimeMin/TimeMax set). PageToken continues a prior page.
type EventQuery struct {
	TimeMin     time.Time
	TimeMax     time.Time
	ResumeToken string
	PageToken   string
}

// EventPage is one page of provider results. NextResumeToken is only set on
// the terminal page.
type EventPage struct {
	Items           []*ProviderEvent
	NextPageToken   string
	NextResumeToken string
}

// Provider is the external calendar API consumed by the engine. Errors are
// translated into the sentinels in errors.go where the provider signals
// them; anything else passes through untouched.
type Provider interface {
	Calendars(ctx context.Context, acc *Account) ([]CalendarInfo, error)
	ListEvents(ctx context.Context, acc *Account, calendarID string, q EventQuery) (*EventPage, error)
	InsertEvent(ctx context.Context, acc *Account, calendarID string, ev *ProviderEvent) (string, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Credential, error)
}

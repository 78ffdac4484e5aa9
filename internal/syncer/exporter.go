package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/daysync/daysync/internal"
)

// Push outcome reasons. NotFound and Forbidden are results, not errors:
// the exporter fails closed without reaching the provider.
const (
	ReasonCreated       = "CREATED"
	ReasonAlreadyPushed = "ALREADY_PUSHED"
	ReasonNotFound      = "NOT_FOUND"
	ReasonForbidden     = "FORBIDDEN"
)

type PushResult struct {
	Pushed bool
	Reason string
}

// Exporter pushes single local events to the external provider, once.
type Exporter struct {
	provider internal.Provider
	storage  Storage
	accounts AccountSource
	logger   *slog.Logger
}

func NewExporter(provider internal.Provider, storage Storage, accounts AccountSource, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{provider: provider, storage: storage, accounts: accounts, logger: logger}
}

// PushEvent exports one event to the target calendar. Pushing an event that
// already carries an external identity bound to the same calendar is a
// no-op; the stored identity makes every later push idempotent.
func (e *Exporter) PushEvent(ctx context.Context, userID, eventID, targetCalendarID string) (*PushResult, error) {
	ev, err := e.storage.FindEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return &PushResult{Pushed: false, Reason: ReasonNotFound}, nil
	}

	owned, err := e.ownedBy(ctx, ev, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return &PushResult{Pushed: false, Reason: ReasonForbidden}, nil
	}

	if ev.ExternalID != "" && ev.ExternalCalendarID == targetCalendarID {
		e.logger.Debug("event already pushed",
			"event_id", eventID, "calendar_id", targetCalendarID)
		return &PushResult{Pushed: true, Reason: ReasonAlreadyPushed}, nil
	}

	acc, err := e.accounts.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	externalID, err := e.provider.InsertEvent(ctx, acc, targetCalendarID, &internal.ProviderEvent{
		Title:       ev.Title,
		Description: ev.Notes,
		StartsAt:    ev.OccursAt,
		HasStart:    true,
		AllDay:      storedAllDay(ev.OccursAt),
		RecurYearly: ev.Category.Recurring(),
	})
	if err != nil {
		return nil, err
	}

	if err := e.storage.BindExternalIdentity(ctx, ev.ID, externalID, targetCalendarID); err != nil {
		return nil, err
	}

	e.logger.Info("event pushed",
		"event_id", eventID, "external_id", externalID, "calendar_id", targetCalendarID)
	return &PushResult{Pushed: true, Reason: ReasonCreated}, nil
}

func (e *Exporter) ownedBy(ctx context.Context, ev *internal.Event, userID string) (bool, error) {
	if ev.OwnerGroupID == "" {
		return ev.CreatorUserID == userID, nil
	}
	return e.storage.IsGroupMember(ctx, ev.OwnerGroupID, userID)
}

// storedAllDay recognizes the local-noon storage convention for all-day
// events; anything carrying a real time-of-day is pushed as a timed event.
func storedAllDay(t time.Time) bool {
	h, m, s := t.In(time.Local).Clock()
	return h == 12 && m == 0 && s == 0
}

// Package syncer reconciles external provider events with locally stored
// special-day records. Imports are idempotent: repeated runs over the same
// provider data create nothing new.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daysync/daysync/internal"
	"github.com/daysync/daysync/internal/classify"
)

// importWindow bounds a full (non-incremental) scan: now through now+18
// months covers the next occurrence of every yearly special day.
const importWindowMonths = 18

// Storage is the record-access surface the engine needs. Group membership
// and ownership checks beyond IsGroupMember are the caller's job.
type Storage interface {
	FindByExternalIdentity(ctx context.Context, groupID, externalID, calendarID string) (*internal.Event, error)
	CreateEvent(ctx context.Context, ev *internal.Event) (string, error)
	UpdateEvent(ctx context.Context, id string, patch internal.EventPatch) error
	BindExternalIdentity(ctx context.Context, id, externalID, calendarID string) error
	FindEvent(ctx context.Context, id string) (*internal.Event, error)
	GroupEvents(ctx context.Context, groupID string) ([]*internal.Event, error)
	IsGroupMember(ctx context.Context, groupID, userID string) (bool, error)

	SyncCursor(ctx context.Context, groupID string) (*internal.SyncCursor, error)
	SaveSyncCursor(ctx context.Context, groupID string, cur *internal.SyncCursor) error
	ClearSyncCursor(ctx context.Context, groupID string) error
}

// AccountSource hands out per-call authenticated accounts.
type AccountSource interface {
	Account(ctx context.Context, userID string) (*internal.Account, error)
}

// CategoryToggles selects which classification buckets are imported.
type CategoryToggles struct {
	BirthdayLike bool
	ReminderLike bool
	MeetingLike  bool
}

type Options struct {
	// IncludeAllEvents bypasses the "all-day or looks special" filter.
	IncludeAllEvents bool
	// DryRun computes counts without writing records or cursors.
	DryRun bool
	Toggles CategoryToggles
}

// DefaultOptions imports every bucket; meeting-like events still only pass
// when all-day or explicitly included.
func DefaultOptions() Options {
	return Options{
		Toggles: CategoryToggles{BirthdayLike: true, ReminderLike: true, MeetingLike: true},
	}
}

// CalendarResult is the per-calendar slice of an import outcome.
type CalendarResult struct {
	CalendarID string
	Created    int
	Updated    int
	Skipped    int
}

// Result aggregates an import across all requested calendars.
type Result struct {
	Created     int
	Updated     int
	Skipped     int
	PerCalendar []CalendarResult
}

func (r *Result) add(c CalendarResult) {
	r.Created += c.Created
	r.Updated += c.Updated
	r.Skipped += c.Skipped
	r.PerCalendar = append(r.PerCalendar, c)
}

type Syncer struct {
	provider internal.Provider
	storage  Storage
	accounts AccountSource
	classify classify.Config
	logger   *slog.Logger

	now func() time.Time
}

func New(provider internal.Provider, storage Storage, accounts AccountSource, cfg classify.Config, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		provider: provider,
		storage:  storage,
		accounts: accounts,
		classify: cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ImportEvents pulls the requested calendars sequentially and upserts their
// events for the group. Incremental mode is used only when a single
// calendar is requested, a cursor bound to it exists, and the run is not a
// dry run; anything else is a full windowed scan.
//
// A provider error aborts the remaining work but counts accumulated for
// calendars already finished are still returned alongside the error.
// Callers must serialize concurrent imports for the same group.
func (s *Syncer) ImportEvents(ctx context.Context, userID, groupID string, calendarIDs []string, opts Options) (*Result, error) {
	acc, err := s.accounts.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	single := len(calendarIDs) == 1

	var cursor *internal.SyncCursor
	if single && !opts.DryRun {
		cursor, err = s.storage.SyncCursor(ctx, groupID)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{}
	var resume string
	for _, calID := range calendarIDs {
		calRes, calResume, err := s.importCalendar(ctx, acc, groupID, calID, cursor, opts)
		res.add(calRes)
		if err != nil {
			return res, err
		}
		resume = calResume
	}

	// The cursor binds one token to one calendar; a multi-calendar pass has
	// no unambiguous binding, so only single-calendar passes refresh it.
	if single && !opts.DryRun && resume != "" {
		cur := &internal.SyncCursor{ResumeToken: resume, BoundCalendarID: calendarIDs[0]}
		if err := s.storage.SaveSyncCursor(ctx, groupID, cur); err != nil {
			return res, err
		}
	}

	s.logger.Info("import finished",
		"group_id", groupID, "calendars", len(calendarIDs),
		"created", res.Created, "updated", res.Updated, "skipped", res.Skipped,
		"dry_run", opts.DryRun)
	return res, nil
}

func (s *Syncer) importCalendar(
	ctx context.Context,
	acc *internal.Account,
	groupID, calID string,
	cursor *internal.SyncCursor,
	opts Options,
) (CalendarResult, string, error) {
	res := CalendarResult{CalendarID: calID}

	incremental := cursor != nil && cursor.ResumeToken != "" && cursor.BoundCalendarID == calID
	q := s.query(incremental, cursor)
	if incremental {
		s.logger.Debug("incremental sync", "calendar_id", calID)
	}

	var resume string
	for {
		page, err := s.provider.ListEvents(ctx, acc, calID, q)
		if err != nil {
			if incremental && errors.Is(err, internal.ErrResumeTokenExpired) {
				s.logger.Info("resume token expired, rescanning",
					"group_id", groupID, "calendar_id", calID)
				if err := s.storage.ClearSyncCursor(ctx, groupID); err != nil {
					return res, "", err
				}
				incremental = false
				q = s.query(false, nil)
				res = CalendarResult{CalendarID: calID}
				resume = ""
				continue
			}
			return res, "", fmt.Errorf("syncer: listing events for %s: %w", calID, err)
		}

		for _, item := range page.Items {
			if err := s.upsert(ctx, acc.UserID, groupID, calID, item, opts, &res); err != nil {
				return res, "", err
			}
		}

		if page.NextResumeToken != "" {
			resume = page.NextResumeToken
		}
		q.PageToken = page.NextPageToken
		if q.PageToken == "" {
			break
		}
	}
	return res, resume, nil
}

func (s *Syncer) query(incremental bool, cursor *internal.SyncCursor) internal.EventQuery {
	if incremental {
		return internal.EventQuery{ResumeToken: cursor.ResumeToken}
	}
	now := s.now()
	return internal.EventQuery{TimeMin: now, TimeMax: now.AddDate(0, importWindowMonths, 0)}
}

// upsert classifies one raw event, applies the skip rules and writes it
// through the identity key. It never deletes.
func (s *Syncer) upsert(
	ctx context.Context,
	userID, groupID, calID string,
	item *internal.ProviderEvent,
	opts Options,
	res *CalendarResult,
) error {
	if item.ID == "" || !item.HasStart || strings.TrimSpace(item.Title) == "" {
		res.Skipped++
		return nil
	}
	if item.Status == "cancelled" {
		res.Skipped++
		return nil
	}

	cls := s.classify.Classify(item.Title, item.EventType)
	switch {
	case cls.BirthdayLike && !opts.Toggles.BirthdayLike,
		cls.ReminderLike && !opts.Toggles.ReminderLike,
		cls.MeetingLike && !opts.Toggles.MeetingLike:
		res.Skipped++
		return nil
	}
	if !opts.IncludeAllEvents && !item.AllDay && !cls.LooksSpecial {
		res.Skipped++
		return nil
	}

	category := s.classify.Category(item.Title)
	if category == internal.CategoryOther && cls.BirthdayLike {
		// Provider-flagged birthdays keep their category even when the
		// title has no keyword ("Grandma" from the contacts calendar).
		category = internal.CategoryBirthday
	}
	person := s.classify.Person(item.Title)

	existing, err := s.storage.FindByExternalIdentity(ctx, groupID, item.ID, calID)
	if err != nil {
		return err
	}

	if existing == nil {
		if opts.DryRun {
			res.Created++
			return nil
		}
		_, err := s.storage.CreateEvent(ctx, &internal.Event{
			OwnerGroupID:       groupID,
			CreatorUserID:      userID,
			Title:              item.Title,
			Category:           category,
			OccursAt:           item.StartsAt,
			Person:             person,
			Notes:              item.Description,
			Origin:             internal.OriginExternal,
			ExternalID:         item.ID,
			ExternalCalendarID: calID,
		})
		if err != nil {
			return err
		}
		res.Created++
		return nil
	}

	patch := internal.EventPatch{
		Title:    mergeKeepExisting(item.Title, existing.Title),
		Category: category,
		OccursAt: item.StartsAt,
		Person:   mergeKeepExisting(person, existing.Person),
		Notes:    mergeKeepExisting(item.Description, existing.Notes),
	}
	if unchanged(existing, patch) {
		res.Skipped++
		return nil
	}
	if opts.DryRun {
		res.Updated++
		return nil
	}
	if err := s.storage.UpdateEvent(ctx, existing.ID, patch); err != nil {
		return err
	}
	res.Updated++
	return nil
}

// mergeKeepExisting is the conflict-resolution rule for synced updates: the
// incoming value wins, but an empty incoming value never clears a field
// that was previously populated.
func mergeKeepExisting(incoming, existing string) string {
	if strings.TrimSpace(incoming) == "" {
		return existing
	}
	return incoming
}

func unchanged(ev *internal.Event, patch internal.EventPatch) bool {
	return ev.Title == patch.Title &&
		ev.Category == patch.Category &&
		ev.OccursAt.Equal(patch.OccursAt) &&
		ev.Person == patch.Person &&
		ev.Notes == patch.Notes
}

package syncer

import (
	"context"

	"github.com/daysync/daysync/internal"
	"github.com/daysync/daysync/internal/ics"
)

// FileCalendarID is the pseudo calendar id file imports bind to, so that
// re-importing the same payload dedups through the same identity triple as
// provider syncs.
const FileCalendarID = "file-import"

// ImportFile parses interchange text and runs it through the same upsert
// path as a provider sync. It never touches the sync cursor. A payload
// yielding nothing usable returns ErrNoUsableEvents.
func (s *Syncer) ImportFile(ctx context.Context, userID, groupID, text string, opts Options) (*Result, error) {
	parsed := ics.Parse(text, s.classify)
	if len(parsed) == 0 {
		return nil, internal.ErrNoUsableEvents
	}

	res := &Result{}
	calRes := CalendarResult{CalendarID: FileCalendarID}
	for _, pe := range parsed {
		item := &internal.ProviderEvent{
			ID:          ics.StableExternalID(pe),
			Title:       pe.Title,
			Description: pe.Description,
			StartsAt:    pe.StartsAt,
			HasStart:    true,
			AllDay:      pe.AllDay,
		}
		if err := s.upsert(ctx, userID, groupID, FileCalendarID, item, opts, &calRes); err != nil {
			res.add(calRes)
			return res, err
		}
	}
	res.add(calRes)

	s.logger.Info("file import finished",
		"group_id", groupID, "parsed", len(parsed),
		"created", res.Created, "updated", res.Updated, "skipped", res.Skipped,
		"dry_run", opts.DryRun)
	return res, nil
}

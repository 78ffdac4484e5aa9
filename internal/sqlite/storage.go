// Package sqlite is the record store behind the sync engine: event records,
// per-group sync cursors, per-user credentials and group membership.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/daysync/daysync/internal"
)

const DriverName = "sqlite3"

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sql.DB) *Storage {
	s := &Storage{
		db: sqlx.NewDb(db, DriverName),
	}
	err := s.RunMigrations()
	if err != nil {
		panic(fmt.Sprintf("sqlite: running migrations: %v", err))
	}
	return s
}

// FindByExternalIdentity looks an event up by its idempotency key. A nil
// event with nil error means no record exists.
func (s Storage) FindByExternalIdentity(ctx context.Context, groupID, externalID, calendarID string) (*internal.Event, error) {
	var ev Event
	err := s.db.GetContext(ctx, &ev, `
		SELECT * FROM events
		WHERE owner_group_id IS ? AND external_id = ? AND external_calendar_id = ?
	`, nullStr(groupID), externalID, calendarID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev.Convert(), nil
}

func (s Storage) CreateEvent(ctx context.Context, ev *internal.Event) (string, error) {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, owner_group_id, creator_user_id, title, category, occurs_at,
			person, notes, origin, external_id, external_calendar_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, nullStr(ev.OwnerGroupID), ev.CreatorUserID, ev.Title, ev.Category.String(),
		ev.OccursAt, nullStr(ev.Person), nullStr(ev.Notes), string(ev.Origin),
		nullStr(ev.ExternalID), nullStr(ev.ExternalCalendarID))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s Storage) UpdateEvent(ctx context.Context, id string, patch internal.EventPatch) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, category = ?, occurs_at = ?, person = ?, notes = ?
		WHERE id = ?
	`, patch.Title, patch.Category.String(), patch.OccursAt,
		nullStr(patch.Person), nullStr(patch.Notes), id)
	return err
}

func (s Storage) BindExternalIdentity(ctx context.Context, id, externalID, calendarID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET external_id = ?, external_calendar_id = ? WHERE id = ?
	`, nullStr(externalID), nullStr(calendarID), id)
	return err
}

func (s Storage) FindEvent(ctx context.Context, id string) (*internal.Event, error) {
	var ev Event
	err := s.db.GetContext(ctx, &ev, `SELECT * FROM events WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev.Convert(), nil
}

func (s Storage) GroupEvents(ctx context.Context, groupID string) ([]*internal.Event, error) {
	var evs []Event
	err := s.db.SelectContext(ctx, &evs, `
		SELECT * FROM events WHERE owner_group_id IS ? ORDER BY occurs_at, id
	`, nullStr(groupID))
	if err != nil {
		return nil, err
	}

	res := make([]*internal.Event, len(evs))
	for i, ev := range evs {
		res[i] = ev.Convert()
	}
	return res, nil
}

func (s Storage) IsGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID, userID)
	return n > 0, err
}

func (s Storage) AddGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES (?, ?)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID)
	return err
}

func (s Storage) SyncCursor(ctx context.Context, groupID string) (*internal.SyncCursor, error) {
	var cur struct {
		ResumeToken     string `db:"resume_token"`
		BoundCalendarID string `db:"bound_calendar_id"`
	}
	err := s.db.GetContext(ctx, &cur, `
		SELECT resume_token, bound_calendar_id FROM sync_cursors WHERE group_id = ?
	`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &internal.SyncCursor{ResumeToken: cur.ResumeToken, BoundCalendarID: cur.BoundCalendarID}, nil
}

func (s Storage) SaveSyncCursor(ctx context.Context, groupID string, cur *internal.SyncCursor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (group_id, resume_token, bound_calendar_id)
		VALUES (?, ?, ?)
		ON CONFLICT (group_id) DO UPDATE
			SET resume_token = excluded.resume_token,
			    bound_calendar_id = excluded.bound_calendar_id
	`, groupID, cur.ResumeToken, cur.BoundCalendarID)
	return err
}

func (s Storage) ClearSyncCursor(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_cursors WHERE group_id = ?`, groupID)
	return err
}

func (s Storage) Credential(ctx context.Context, userID string) (*internal.Credential, error) {
	var cred Credential
	err := s.db.GetContext(ctx, &cred, `SELECT * FROM credentials WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cred.Convert(), nil
}

func (s Storage) SaveCredential(ctx context.Context, userID string, cred *internal.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, access_token, refresh_token, expiry, scope)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
			SET access_token = excluded.access_token,
			    refresh_token = excluded.refresh_token,
			    expiry = excluded.expiry,
			    scope = excluded.scope
	`, userID, cred.AccessToken, cred.RefreshToken, cred.Expiry, cred.Scope)
	return err
}

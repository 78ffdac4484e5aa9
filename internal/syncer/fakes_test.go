package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/daysync/daysync/internal"
)

type listCall struct {
	calendarID string
	q          internal.EventQuery
}

type insertCall struct {
	calendarID string
	ev         *internal.ProviderEvent
}

type fakeProvider struct {
	events            map[string][]*internal.ProviderEvent
	pageSize          int
	resumeToken       string
	expireResumeToken bool
	listErr           map[string]error

	calls    []listCall
	inserts  []insertCall
	insertID string
}

func (p *fakeProvider) Calendars(context.Context, *internal.Account) ([]internal.CalendarInfo, error) {
	return nil, nil
}

func (p *fakeProvider) ListEvents(_ context.Context, _ *internal.Account, calendarID string, q internal.EventQuery) (*internal.EventPage, error) {
	p.calls = append(p.calls, listCall{calendarID, q})
	if err := p.listErr[calendarID]; err != nil {
		return nil, err
	}
	if q.ResumeToken != "" && p.expireResumeToken {
		return nil, fmt.Errorf("fake: 410: %w", internal.ErrResumeTokenExpired)
	}

	evs := p.events[calendarID]
	size := p.pageSize
	if size <= 0 {
		size = len(evs) + 1
	}
	start := 0
	if q.PageToken != "" {
		start, _ = strconv.Atoi(q.PageToken)
	}
	end := start + size
	if end > len(evs) {
		end = len(evs)
	}

	page := &internal.EventPage{Items: evs[start:end]}
	if end < len(evs) {
		page.NextPageToken = strconv.Itoa(end)
	} else {
		page.NextResumeToken = p.resumeToken
	}
	return page, nil
}

func (p *fakeProvider) InsertEvent(_ context.Context, _ *internal.Account, calendarID string, ev *internal.ProviderEvent) (string, error) {
	p.inserts = append(p.inserts, insertCall{calendarID, ev})
	if p.insertID == "" {
		return "ext-1", nil
	}
	return p.insertID, nil
}

func (p *fakeProvider) RefreshToken(context.Context, string) (*internal.Credential, error) {
	return nil, internal.ErrTokenInvalid
}

type fakeStorage struct {
	events  map[string]*internal.Event
	cursors map[string]*internal.SyncCursor
	members map[string]bool
	nextID  int

	updateCalls  int
	cursorSaves  int
	cursorClears int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		events:  make(map[string]*internal.Event),
		cursors: make(map[string]*internal.SyncCursor),
		members: make(map[string]bool),
	}
}

func (s *fakeStorage) FindByExternalIdentity(_ context.Context, groupID, externalID, calendarID string) (*internal.Event, error) {
	for _, ev := range s.events {
		if ev.OwnerGroupID == groupID && ev.ExternalID == externalID && ev.ExternalCalendarID == calendarID {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) CreateEvent(_ context.Context, ev *internal.Event) (string, error) {
	s.nextID++
	cp := *ev
	cp.ID = strconv.Itoa(s.nextID)
	s.events[cp.ID] = &cp
	return cp.ID, nil
}

func (s *fakeStorage) UpdateEvent(_ context.Context, id string, patch internal.EventPatch) error {
	s.updateCalls++
	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("fake: no event %s", id)
	}
	ev.Title = patch.Title
	ev.Category = patch.Category
	ev.OccursAt = patch.OccursAt
	ev.Person = patch.Person
	ev.Notes = patch.Notes
	return nil
}

func (s *fakeStorage) BindExternalIdentity(_ context.Context, id, externalID, calendarID string) error {
	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("fake: no event %s", id)
	}
	ev.ExternalID = externalID
	ev.ExternalCalendarID = calendarID
	return nil
}

func (s *fakeStorage) FindEvent(_ context.Context, id string) (*internal.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (s *fakeStorage) GroupEvents(_ context.Context, groupID string) ([]*internal.Event, error) {
	var res []*internal.Event
	for _, ev := range s.events {
		if ev.OwnerGroupID == groupID {
			cp := *ev
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *fakeStorage) IsGroupMember(_ context.Context, groupID, userID string) (bool, error) {
	return s.members[groupID+"|"+userID], nil
}

func (s *fakeStorage) SyncCursor(_ context.Context, groupID string) (*internal.SyncCursor, error) {
	cur, ok := s.cursors[groupID]
	if !ok {
		return nil, nil
	}
	cp := *cur
	return &cp, nil
}

func (s *fakeStorage) SaveSyncCursor(_ context.Context, groupID string, cur *internal.SyncCursor) error {
	s.cursorSaves++
	cp := *cur
	s.cursors[groupID] = &cp
	return nil
}

func (s *fakeStorage) ClearSyncCursor(_ context.Context, groupID string) error {
	s.cursorClears++
	delete(s.cursors, groupID)
	return nil
}

type fakeAccounts struct {
	err error
}

func (a fakeAccounts) Account(_ context.Context, userID string) (*internal.Account, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &internal.Account{UserID: userID}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func localNoon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}

func allDayEvent(id, title string) *internal.ProviderEvent {
	return &internal.ProviderEvent{
		ID:       id,
		Title:    title,
		StartsAt: localNoon(2026, time.June, 1),
		HasStart: true,
		AllDay:   true,
	}
}

package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daysync/daysync/internal"
)

func newTestExporter(provider *fakeProvider, storage *fakeStorage) *Exporter {
	return NewExporter(provider, storage, fakeAccounts{}, quietLogger())
}

func seedGroupEvent(t *testing.T, storage *fakeStorage, ev *internal.Event) string {
	t.Helper()
	id, err := storage.CreateEvent(context.Background(), ev)
	require.NoError(t, err)
	return id
}

func TestPushEventNotFound(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestExporter(provider, newFakeStorage())

	res, err := e.PushEvent(context.Background(), "u1", "missing", "primary")
	require.NoError(t, err)
	assert.Equal(t, &PushResult{Pushed: false, Reason: ReasonNotFound}, res)
	assert.Empty(t, provider.inserts)
}

func TestPushEventForbidden(t *testing.T) {
	provider := &fakeProvider{}
	storage := newFakeStorage()
	id := seedGroupEvent(t, storage, &internal.Event{
		OwnerGroupID:  "grp",
		CreatorUserID: "owner",
		Title:         "Grandma Birthday",
		Category:      internal.CategoryBirthday,
		OccursAt:      localNoon(2026, time.June, 1),
	})
	e := newTestExporter(provider, storage)

	// u1 is not a member of grp.
	res, err := e.PushEvent(context.Background(), "u1", id, "primary")
	require.NoError(t, err)
	assert.Equal(t, &PushResult{Pushed: false, Reason: ReasonForbidden}, res)
	assert.Empty(t, provider.inserts)
}

func TestPushPersonalEventOwnedByCreator(t *testing.T) {
	provider := &fakeProvider{insertID: "ext-9"}
	storage := newFakeStorage()
	id := seedGroupEvent(t, storage, &internal.Event{
		CreatorUserID: "u1",
		Title:         "Grandma Birthday",
		Category:      internal.CategoryBirthday,
		OccursAt:      localNoon(2026, time.June, 1),
	})
	e := newTestExporter(provider, storage)

	other, err := e.PushEvent(context.Background(), "u2", id, "primary")
	require.NoError(t, err)
	assert.Equal(t, ReasonForbidden, other.Reason)

	res, err := e.PushEvent(context.Background(), "u1", id, "primary")
	require.NoError(t, err)
	assert.Equal(t, &PushResult{Pushed: true, Reason: ReasonCreated}, res)
}

func TestPushEventAlreadyPushed(t *testing.T) {
	provider := &fakeProvider{}
	storage := newFakeStorage()
	storage.members["grp|u1"] = true
	id := seedGroupEvent(t, storage, &internal.Event{
		OwnerGroupID:       "grp",
		CreatorUserID:      "u1",
		Title:              "Grandma Birthday",
		Category:           internal.CategoryBirthday,
		OccursAt:           localNoon(2026, time.June, 1),
		ExternalID:         "abc",
		ExternalCalendarID: "primary",
	})
	e := newTestExporter(provider, storage)

	res, err := e.PushEvent(context.Background(), "u1", id, "primary")
	require.NoError(t, err)
	assert.Equal(t, &PushResult{Pushed: true, Reason: ReasonAlreadyPushed}, res)
	// The idempotent no-op never reaches the provider.
	assert.Empty(t, provider.inserts)
}

func TestPushEventCreatesAndBindsIdentity(t *testing.T) {
	provider := &fakeProvider{insertID: "ext-42"}
	storage := newFakeStorage()
	storage.members["grp|u1"] = true
	id := seedGroupEvent(t, storage, &internal.Event{
		OwnerGroupID:  "grp",
		CreatorUserID: "u1",
		Title:         "Grandma Birthday",
		Category:      internal.CategoryBirthday,
		OccursAt:      localNoon(2026, time.June, 1),
		Notes:         "cake",
	})
	e := newTestExporter(provider, storage)

	res, err := e.PushEvent(context.Background(), "u1", id, "primary")
	require.NoError(t, err)
	assert.Equal(t, &PushResult{Pushed: true, Reason: ReasonCreated}, res)

	require.Len(t, provider.inserts, 1)
	ins := provider.inserts[0]
	assert.Equal(t, "primary", ins.calendarID)
	assert.True(t, ins.ev.AllDay, "noon-stored events push as all-day")
	assert.True(t, ins.ev.RecurYearly, "birthdays recur yearly")
	assert.Equal(t, "cake", ins.ev.Description)

	ev, err := storage.FindEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ext-42", ev.ExternalID)
	assert.Equal(t, "primary", ev.ExternalCalendarID)

	// The persisted identity makes the second push a no-op.
	res, err = e.PushEvent(context.Background(), "u1", id, "primary")
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyPushed, res.Reason)
	assert.Len(t, provider.inserts, 1)
}

func TestPushTimedEventStaysTimed(t *testing.T) {
	provider := &fakeProvider{}
	storage := newFakeStorage()
	id := seedGroupEvent(t, storage, &internal.Event{
		CreatorUserID: "u1",
		Title:         "Dinner reservation",
		Category:      internal.CategoryOther,
		OccursAt:      time.Date(2026, time.June, 1, 19, 30, 0, 0, time.Local),
	})
	e := newTestExporter(provider, storage)

	_, err := e.PushEvent(context.Background(), "u1", id, "primary")
	require.NoError(t, err)
	require.Len(t, provider.inserts, 1)
	assert.False(t, provider.inserts[0].ev.AllDay)
	assert.False(t, provider.inserts[0].ev.RecurYearly)
}

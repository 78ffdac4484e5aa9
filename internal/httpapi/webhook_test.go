package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daysync/daysync/internal/syncer"
)

type importCall struct {
	userID      string
	groupID     string
	calendarIDs []string
}

type fakeImporter struct {
	calls []importCall
	err   error
}

func (f *fakeImporter) ImportEvents(_ context.Context, userID, groupID string, calendarIDs []string, _ syncer.Options) (*syncer.Result, error) {
	f.calls = append(f.calls, importCall{userID, groupID, calendarIDs})
	if f.err != nil {
		return nil, f.err
	}
	return &syncer.Result{Created: 1}, nil
}

func notify(h http.Handler, channelID, resourceID, token, state string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/notifications", nil)
	req.Header.Set("X-Goog-Channel-ID", channelID)
	req.Header.Set("X-Goog-Resource-ID", resourceID)
	req.Header.Set("X-Goog-Channel-Token", token)
	req.Header.Set("X-Goog-Resource-State", state)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookUnknownChannel(t *testing.T) {
	h := NewWebhookHandler(NewWatchRegistry(), &fakeImporter{}, nil)

	rec := notify(h, "nope", "res", "tok", "exists")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookTokenMismatch(t *testing.T) {
	watches := NewWatchRegistry()
	w := watches.Register("u1", "grp", "cal-a", "res-1")
	importer := &fakeImporter{}
	h := NewWebhookHandler(watches, importer, nil)

	rec := notify(h, w.ChannelID, w.ResourceID, "wrong-token", "exists")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, importer.calls)
}

func TestWebhookResourceMismatch(t *testing.T) {
	watches := NewWatchRegistry()
	w := watches.Register("u1", "grp", "cal-a", "res-1")
	importer := &fakeImporter{}
	h := NewWebhookHandler(watches, importer, nil)

	rec := notify(h, w.ChannelID, "res-other", w.Token, "exists")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, importer.calls)
}

func TestWebhookTriggersImport(t *testing.T) {
	watches := NewWatchRegistry()
	w := watches.Register("u1", "grp", "cal-a", "res-1")
	importer := &fakeImporter{}
	h := NewWebhookHandler(watches, importer, nil)

	for _, state := range []string{"sync", "exists"} {
		rec := notify(h, w.ChannelID, w.ResourceID, w.Token, state)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	require.Len(t, importer.calls, 2)
	assert.Equal(t, "u1", importer.calls[0].userID)
	assert.Equal(t, "grp", importer.calls[0].groupID)
	assert.Equal(t, []string{"cal-a"}, importer.calls[0].calendarIDs)
}

func TestWebhookIgnoresOtherStates(t *testing.T) {
	watches := NewWatchRegistry()
	w := watches.Register("u1", "grp", "cal-a", "res-1")
	importer := &fakeImporter{}
	h := NewWebhookHandler(watches, importer, nil)

	rec := notify(h, w.ChannelID, w.ResourceID, w.Token, "not_exists")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, importer.calls)
}

func TestWebhookAcksFailedImport(t *testing.T) {
	watches := NewWatchRegistry()
	w := watches.Register("u1", "grp", "cal-a", "res-1")
	importer := &fakeImporter{err: errors.New("provider down")}
	h := NewWebhookHandler(watches, importer, nil)

	rec := notify(h, w.ChannelID, w.ResourceID, w.Token, "exists")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, importer.calls, 1)
}

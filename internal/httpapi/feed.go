package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/daysync/daysync/internal"
	"github.com/daysync/daysync/internal/feedtoken"
	"github.com/daysync/daysync/internal/ics"
)

// EventLister is the slice of the record store the feed needs.
type EventLister interface {
	GroupEvents(ctx context.Context, groupID string) ([]*internal.Event, error)
}

type FeedHandler struct {
	tokens  *feedtoken.Authenticator
	storage EventLister
	opts    ics.FeedOptions
	logger  *slog.Logger
}

func NewFeedHandler(tokens *feedtoken.Authenticator, storage EventLister, opts ics.FeedOptions, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{tokens: tokens, storage: storage, opts: opts, logger: logger}
}

// ServeHTTP serves the group's calendar as interchange text. Registered
// under "GET /feeds/{group}". Authentication is the feed token alone;
// failures are answered with 404 so the endpoint does not confirm which
// group ids exist.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	groupID := strings.TrimSuffix(req.PathValue("group"), ".ics")
	token := req.URL.Query().Get("token")

	if groupID == "" || !h.tokens.Verify(groupID, token) {
		http.NotFound(w, req)
		return
	}

	events, err := h.storage.GroupEvents(req.Context(), groupID)
	if err != nil {
		h.logger.Error("feed listing failed", "group_id", groupID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.NotFound(w, req)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(ics.Serialize(events, h.opts)))
}

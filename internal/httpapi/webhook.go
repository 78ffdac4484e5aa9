// Package httpapi carries the two thin HTTP surfaces of the engine: the
// provider webhook receiver that triggers imports, and the anonymous feed
// endpoint gated by feed tokens.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/daysync/daysync/internal/syncer"
)

// Watch is one registered provider notification channel. The token is a
// shared secret issued at registration time; notifications that do not
// echo it back are rejected.
type Watch struct {
	ChannelID  string
	ResourceID string
	Token      string
	UserID     string
	GroupID    string
	CalendarID string
}

// WatchRegistry tracks active notification channels in memory. Channels are
// short-lived provider-side, so there is nothing to persist.
type WatchRegistry struct {
	mu        sync.Mutex
	byChannel map[string]Watch
}

func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{byChannel: make(map[string]Watch)}
}

// Register creates a channel record for a group's calendar and returns it,
// channel id and token freshly generated.
func (r *WatchRegistry) Register(userID, groupID, calendarID, resourceID string) Watch {
	w := Watch{
		ChannelID:  uuid.NewString(),
		ResourceID: resourceID,
		Token:      uuid.NewString(),
		UserID:     userID,
		GroupID:    groupID,
		CalendarID: calendarID,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChannel[w.ChannelID] = w
	return w
}

func (r *WatchRegistry) Lookup(channelID string) (Watch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byChannel[channelID]
	return w, ok
}

// Importer is the slice of the sync controller the webhook needs.
type Importer interface {
	ImportEvents(ctx context.Context, userID, groupID string, calendarIDs []string, opts syncer.Options) (*syncer.Result, error)
}

type WebhookHandler struct {
	watches  *WatchRegistry
	importer Importer
	logger   *slog.Logger
}

func NewWebhookHandler(watches *WatchRegistry, importer Importer, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{watches: watches, importer: importer, logger: logger}
}

// ServeHTTP handles a provider push notification. Only the initial
// handshake ("sync") and resource-changed ("exists") kinds trigger an
// import; every other kind is acknowledged and ignored. Notifications are
// acknowledged even when the triggered import fails, since the provider
// would otherwise retry a notification whose work already errored.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	channelID := req.Header.Get("X-Goog-Channel-ID")
	resourceID := req.Header.Get("X-Goog-Resource-ID")
	state := req.Header.Get("X-Goog-Resource-State")
	token := req.Header.Get("X-Goog-Channel-Token")

	watch, ok := h.watches.Lookup(channelID)
	if !ok {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}
	if watch.Token != token || (watch.ResourceID != "" && watch.ResourceID != resourceID) {
		h.logger.Warn("webhook token mismatch", "channel_id", channelID)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	switch state {
	case "sync", "exists":
		res, err := h.importer.ImportEvents(req.Context(),
			watch.UserID, watch.GroupID, []string{watch.CalendarID}, syncer.DefaultOptions())
		if err != nil {
			h.logger.Error("webhook-triggered import failed",
				"channel_id", channelID, "group_id", watch.GroupID, "err", err)
			break
		}
		h.logger.Info("webhook-triggered import",
			"channel_id", channelID, "group_id", watch.GroupID,
			"created", res.Created, "updated", res.Updated)
	default:
		h.logger.Debug("webhook notification ignored", "state", state)
	}

	w.WriteHeader(http.StatusOK)
}

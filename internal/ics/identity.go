package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// StableExternalID returns the identity used to dedup imported events. The
// event's own UID wins when present; otherwise the id is a hash of title,
// start instant and description, so re-importing the same payload always
// resolves to the same record.
func StableExternalID(ev ParsedEvent) string {
	if ev.UID != "" {
		return ev.UID
	}
	h := sha256.New()
	h.Write([]byte(ev.Title))
	h.Write([]byte{0})
	h.Write([]byte(ev.StartsAt.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(ev.Description))
	return hex.EncodeToString(h.Sum(nil))
}

package internal

import "errors"

var (
	// ErrNotConnected means no credential is on file for the user. The
	// caller should prompt for a reconnect; retrying is pointless.
	ErrNotConnected = errors.New("provider account is not connected")

	// ErrTokenInvalid means the provider rejected the stored token or the
	// refresh grant. The caller must clear stored tokens and require
	// re-authorization.
	ErrTokenInvalid = errors.New("provider token is no longer valid")

	// ErrResumeTokenExpired means the provider no longer honours the
	// stored resume token. Handled inside the sync controller by a full
	// rescan; callers should never observe it.
	ErrResumeTokenExpired = errors.New("resume token expired")

	// ErrNoUsableEvents means a parsed calendar file yielded nothing
	// importable.
	ErrNoUsableEvents = errors.New("no usable events in input")
)

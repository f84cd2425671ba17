// Package session owns authenticated browsing sessions against the scraped
// platforms. The Gateway serializes all operations on the one shared session
// through a single dispatcher; independently-authenticated worker sessions
// for detail fetching are created through a Factory.
package session

import "context"

// Session is an authenticated browsing session. Implementations carry
// mutable shared state (cookies, current page) and are NOT safe for
// concurrent use; the Gateway enforces one-at-a-time access to the shared
// session, and each fetch worker owns its session exclusively.
type Session interface {
	// Alive reports whether the session's authentication is believed valid.
	Alive(ctx context.Context) bool

	// Login (re-)authenticates the session.
	Login(ctx context.Context) error

	// Get performs an authenticated GET and returns the response body.
	// Returns ErrSessionExpired when the platform invalidated the session.
	Get(ctx context.Context, url string) ([]byte, error)

	// Close releases session resources.
	Close()
}

// Factory creates fresh, unauthenticated sessions. The detail fetcher pool
// uses it to give each worker an independent session.
type Factory interface {
	New() (Session, error)
}

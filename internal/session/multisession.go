package session

import (
	"context"
	"fmt"
)

// Route binds a URL prefix to the session that owns it. An empty prefix is
// the catch-all for public pages that need no particular login.
type Route struct {
	Prefix  string
	Session Session
}

// MultiSession presents several per-platform sessions as one logical session
// so the gateway can serialize work across platforms behind a single queue.
// Get routes by longest matching URL prefix; Login and Alive span all routes.
type MultiSession struct {
	routes []Route
}

var _ Session = (*MultiSession)(nil)

// NewMultiSession composes the routed sessions. Routes are matched in
// longest-prefix order regardless of the order given.
func NewMultiSession(routes []Route) *MultiSession {
	return &MultiSession{routes: routes}
}

// Alive reports whether every routed session is still authenticated, so one
// expired platform triggers a full re-login pass.
func (m *MultiSession) Alive(ctx context.Context) bool {
	for _, r := range m.routes {
		if !r.Session.Alive(ctx) {
			return false
		}
	}

	return true
}

// Login authenticates every routed session.
func (m *MultiSession) Login(ctx context.Context) error {
	for _, r := range m.routes {
		if r.Session.Alive(ctx) {
			continue
		}

		if err := r.Session.Login(ctx); err != nil {
			return fmt.Errorf("login %q route: %w", r.Prefix, err)
		}
	}

	return nil
}

// Get dispatches to the session owning the URL.
func (m *MultiSession) Get(ctx context.Context, url string) ([]byte, error) {
	s := m.match(url)
	if s == nil {
		return nil, fmt.Errorf("no session route for url %s", url)
	}

	return s.Get(ctx, url)
}

// Close closes every routed session.
func (m *MultiSession) Close() {
	for _, r := range m.routes {
		r.Session.Close()
	}
}

func (m *MultiSession) match(url string) Session {
	var (
		best    Session
		bestLen = -1
	)

	for _, r := range m.routes {
		if len(r.Prefix) > bestLen && hasPrefix(url, r.Prefix) {
			best = r.Session
			bestLen = len(r.Prefix)
		}
	}

	return best
}

func hasPrefix(url, prefix string) bool {
	return len(url) >= len(prefix) && url[:len(prefix)] == prefix
}

// FactoryRoute binds a URL prefix to a session factory.
type FactoryRoute struct {
	Prefix  string
	Factory Factory
}

// MultiFactory mints MultiSession instances, one fresh session per route, so
// each fetch worker gets independent cookie jars on every platform.
type MultiFactory struct {
	routes []FactoryRoute
}

var _ Factory = (*MultiFactory)(nil)

// NewMultiFactory creates a factory over the routed factories.
func NewMultiFactory(routes []FactoryRoute) *MultiFactory {
	return &MultiFactory{routes: routes}
}

// New builds a fresh session per route and composes them.
func (f *MultiFactory) New() (Session, error) {
	routes := make([]Route, 0, len(f.routes))

	for _, r := range f.routes {
		s, err := r.Factory.New()
		if err != nil {
			for _, built := range routes {
				built.Session.Close()
			}

			return nil, fmt.Errorf("create %q route session: %w", r.Prefix, err)
		}

		routes = append(routes, Route{Prefix: r.Prefix, Session: s})
	}

	return NewMultiSession(routes), nil
}

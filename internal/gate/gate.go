// Package gate redirects views based on session presence and re-evaluates
// the current view whenever the session changes.
package gate

import (
	"sync"

	"groupchat/internal/session"
)

type View string

const (
	Home     View = "/"
	Register View = "/register"
	Login    View = "/login"
	Profile  View = "/profile"
)

// Views lists every routable view.
var Views = []View{Home, Register, Login, Profile}

type rule struct {
	requiresAuth  bool
	anonymousOnly bool
}

// Home is reachable anonymously; it renders a sign-in prompt instead of
// redirecting.
var rules = map[View]rule{
	Home:     {},
	Register: {anonymousOnly: true},
	Login:    {anonymousOnly: true},
	Profile:  {requiresAuth: true},
}

// Decide returns the view to redirect to, if any, for showing v under s.
func Decide(s session.Session, v View) (View, bool) {
	r := rules[v]
	switch {
	case r.requiresAuth && !s.Authenticated():
		return Login, true
	case r.anonymousOnly && s.Member != nil:
		return Home, true
	}
	return "", false
}

type Navigator interface {
	Navigate(to View)
}

type NavigatorFunc func(View)

func (f NavigatorFunc) Navigate(to View) { f(to) }

type Source interface {
	Snapshot() session.Session
	Subscribe(fn func(session.Session)) (unsubscribe func())
}

type Gate struct {
	src Source
	nav Navigator

	mu      sync.Mutex
	current View
	unsub   func()
}

func New(src Source, nav Navigator) *Gate {
	g := &Gate{src: src, nav: nav, current: Home}
	g.unsub = src.Subscribe(g.onSession)
	return g
}

// Show makes v the current view, redirecting immediately if the session
// does not allow it. It returns the view that ends up shown.
func (g *Gate) Show(v View) View {
	return g.evaluate(v, g.src.Snapshot())
}

func (g *Gate) Current() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Gate) Close() {
	g.unsub()
}

func (g *Gate) onSession(s session.Session) {
	g.evaluate(g.Current(), s)
}

func (g *Gate) evaluate(v View, s session.Session) View {
	target := v
	if to, redirect := Decide(s, v); redirect {
		target = to
	}

	g.mu.Lock()
	changed := g.current != target
	g.current = target
	g.mu.Unlock()

	if target != v || changed {
		g.nav.Navigate(target)
	}
	return target
}

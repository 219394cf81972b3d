package gate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"groupchat/internal/model"
	"groupchat/internal/session"
)

type recorder struct{ visits []View }

func (r *recorder) Navigate(to View) { r.visits = append(r.visits, to) }

func TestDecide(t *testing.T) {
	anon := session.Session{}
	authed := session.Session{Token: "t", Member: &model.Member{ID: 1, Username: "alice"}}

	tests := []struct {
		name     string
		s        session.Session
		view     View
		redirect bool
		to       View
	}{
		{"anonymous home", anon, Home, false, ""},
		{"anonymous profile", anon, Profile, true, Login},
		{"anonymous login", anon, Login, false, ""},
		{"anonymous register", anon, Register, false, ""},
		{"authed login", authed, Login, true, Home},
		{"authed register", authed, Register, true, Home},
		{"authed profile", authed, Profile, false, ""},
		{"authed home", authed, Home, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, redirect := Decide(tt.s, tt.view)
			require.Equal(t, tt.redirect, redirect)
			require.Equal(t, tt.to, to)
		})
	}
}

func TestGate_ReevaluatesOnSessionChange(t *testing.T) {
	req := require.New(t)
	store := session.New(session.NewMemoryKV(), nil)
	nav := &recorder{}
	g := New(store, nav)
	defer g.Close()

	req.Equal(Login, g.Show(Login))

	// Session established elsewhere while the login form is shown.
	req.NoError(store.SetSession("tok", model.Member{ID: 1, Username: "alice"}))
	req.Equal(Home, g.Current())

	req.Equal(Profile, g.Show(Profile))
	req.NoError(store.ClearSession())
	req.Equal(Login, g.Current())

	req.Equal([]View{Login, Home, Profile, Login}, nav.visits)
}

func TestGate_ProfileRedirectsWhenAnonymous(t *testing.T) {
	store := session.New(session.NewMemoryKV(), nil)
	nav := &recorder{}
	g := New(store, nav)
	defer g.Close()

	require.Equal(t, Login, g.Show(Profile))
	require.Equal(t, []View{Login}, nav.visits)
}

func TestGate_CloseStopsReacting(t *testing.T) {
	store := session.New(session.NewMemoryKV(), nil)
	nav := &recorder{}
	g := New(store, nav)
	g.Show(Login)
	g.Close()

	require.NoError(t, store.SetSession("tok", model.Member{ID: 1, Username: "alice"}))
	require.Equal(t, Login, g.Current())
}

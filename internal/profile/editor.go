// Package profile backs the profile screen: loading the signed-in member's
// username and saving a new one into both the server and the session.
package profile

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"groupchat/internal/api"
	"groupchat/internal/model"
	"groupchat/internal/session"
)

const (
	LoadErrorText = "Could not load the profile."
	SaveErrorText = "Profile update failed."
	SavedText     = "Profile updated."
	LoadingText   = "Loading profile..."
)

type Gateway interface {
	Profile(ctx context.Context) (model.Member, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (model.MemberPatch, error)
}

type Sessions interface {
	Snapshot() session.Session
	UpdateMember(patch model.MemberPatch) error
}

type State struct {
	Username string
	Loading  bool
	Saving   bool
	Error    string
	Success  string
}

type Editor struct {
	gw       Gateway
	sessions Sessions
	log      *zap.Logger

	mu    sync.Mutex
	state State
}

func New(gw Gateway, sessions Sessions, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{gw: gw, sessions: sessions, log: log}
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) update(fn func(*State)) {
	e.mu.Lock()
	fn(&e.state)
	e.mu.Unlock()
}

// Load fetches the current profile. Any failure shows the fixed load error.
func (e *Editor) Load(ctx context.Context) error {
	if !e.sessions.Snapshot().Authenticated() {
		return session.ErrNoSession
	}
	e.update(func(s *State) { *s = State{Loading: true} })

	member, err := e.gw.Profile(ctx)
	if err != nil {
		e.log.Debug("load profile", zap.Error(err))
		e.update(func(s *State) {
			s.Loading = false
			s.Error = LoadErrorText
		})
		return err
	}
	e.update(func(s *State) {
		s.Loading = false
		s.Username = member.Username
	})
	return nil
}

// Save sends username to the server and merges the echoed fields into the
// stored member, keeping the token.
func (e *Editor) Save(ctx context.Context, username string) error {
	if !e.sessions.Snapshot().Authenticated() {
		return session.ErrNoSession
	}
	e.update(func(s *State) {
		s.Username = username
		s.Saving = true
		s.Error = ""
		s.Success = ""
	})

	patch, err := e.gw.UpdateProfile(ctx, api.ProfileUpdate{Username: username})
	if err == nil {
		err = e.sessions.UpdateMember(patch)
	}
	if err != nil {
		e.update(func(s *State) {
			s.Saving = false
			s.Error = api.Message(err, SaveErrorText)
		})
		return err
	}
	e.update(func(s *State) {
		s.Saving = false
		s.Success = SavedText
	})
	return nil
}

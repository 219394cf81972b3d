// Package account runs the login, registration and logout flows of the chat
// client on top of the gateway and the session store.
package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"groupchat/internal/api"
	"groupchat/internal/model"
)

const (
	LoginFailedText    = "Login failed."
	RegisterFailedText = "Registration failed."
)

type Gateway interface {
	Register(ctx context.Context, username, password string) (api.AuthResult, error)
	Login(ctx context.Context, username, password string) (api.AuthResult, error)
	CurrentMember(ctx context.Context) (model.Member, error)
}

type Sessions interface {
	SetSession(token string, member model.Member) error
	ClearSession() error
}

type Service struct {
	gw       Gateway
	sessions Sessions
	log      *zap.Logger
}

func New(gw Gateway, sessions Sessions, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gw: gw, sessions: sessions, log: log}
}

func (s *Service) Login(ctx context.Context, username, password string) (model.Member, error) {
	res, err := s.gw.Login(ctx, username, password)
	if err != nil {
		return model.Member{}, err
	}
	return s.establish(res)
}

// Register creates the member and signs in with the returned token.
func (s *Service) Register(ctx context.Context, username, password string) (model.Member, error) {
	res, err := s.gw.Register(ctx, username, password)
	if err != nil {
		return model.Member{}, err
	}
	return s.establish(res)
}

func (s *Service) establish(res api.AuthResult) (model.Member, error) {
	if err := s.sessions.SetSession(res.Token, res.Member); err != nil {
		return model.Member{}, fmt.Errorf("save session: %w", err)
	}
	return res.Member, nil
}

func (s *Service) Logout() error {
	return s.sessions.ClearSession()
}

// Verify checks the stored token against the server. A rejected token ends
// the session; transport failures leave it alone.
func (s *Service) Verify(ctx context.Context) (model.Member, error) {
	member, err := s.gw.CurrentMember(ctx)
	if err == nil {
		return member, nil
	}
	if api.IsAuth(err) {
		s.log.Info("stored token rejected, signing out", zap.Error(err))
		if cerr := s.sessions.ClearSession(); cerr != nil {
			return model.Member{}, errors.Join(err, cerr)
		}
	}
	return model.Member{}, err
}

// Package session owns the authenticated session of the chat client: the
// token and member identity, their persisted record, and change
// notification for the components that react to login and logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"groupchat/internal/api"
	"groupchat/internal/model"
)

// Keys of the persisted session record.
const (
	KeyToken  = "authToken"
	KeyMember = "authMember"
)

var (
	ErrNoSession  = errors.New("no active session")
	ErrEmptyToken = errors.New("session token is empty")
)

// Session is a read-only snapshot. Token and Member are both set or both
// empty.
type Session struct {
	Token  string
	Member *model.Member
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.Member != nil
}

type Store struct {
	kv  KV
	log *zap.Logger

	mu     sync.RWMutex
	token  string
	member *model.Member

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(Session)
}

func New(kv KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log, subs: make(map[int]func(Session))}
}

// Restore loads the persisted record. Anything short of a complete, decodable
// record purges both entries and leaves the session anonymous.
func (s *Store) Restore() {
	token, member, err := s.readRecord()
	if err != nil {
		s.log.Debug("discarding persisted session", zap.Error(err))
		s.purgeRecord()
		s.replace("", nil)
		return
	}
	s.replace(token, &member)
}

func (s *Store) readRecord() (string, model.Member, error) {
	token, okToken, err := s.kv.Get(KeyToken)
	if err != nil {
		return "", model.Member{}, fmt.Errorf("%w: read token: %v", api.ErrCorruptedState, err)
	}
	raw, okMember, err := s.kv.Get(KeyMember)
	if err != nil {
		return "", model.Member{}, fmt.Errorf("%w: read member: %v", api.ErrCorruptedState, err)
	}
	if !okToken || !okMember || token == "" {
		return "", model.Member{}, fmt.Errorf("%w: incomplete record", api.ErrCorruptedState)
	}

	var member model.Member
	if err := json.Unmarshal([]byte(raw), &member); err != nil {
		return "", model.Member{}, fmt.Errorf("%w: decode member: %v", api.ErrCorruptedState, err)
	}
	return token, member, nil
}

func (s *Store) purgeRecord() {
	if err := s.kv.Delete(KeyToken); err != nil {
		s.log.Warn("purge persisted token failed", zap.Error(err))
	}
	if err := s.kv.Delete(KeyMember); err != nil {
		s.log.Warn("purge persisted member failed", zap.Error(err))
	}
}

// SetSession replaces token and member together and persists both. On a
// persistence failure the in-memory session is left as it was.
func (s *Store) SetSession(token string, member model.Member) error {
	if token == "" {
		return ErrEmptyToken
	}
	encoded, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("encode member: %w", err)
	}
	if err := s.kv.Set(KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.kv.Set(KeyMember, string(encoded)); err != nil {
		// A lone token is an invalid record; drop it rather than leave it half written.
		_ = s.kv.Delete(KeyToken)
		return fmt.Errorf("persist member: %w", err)
	}

	m := member
	s.replace(token, &m)
	s.log.Info("session established", zap.Int64("member_id", member.ID), zap.String("username", member.Username))
	return nil
}

// UpdateMember merges patch into the current member. The token is kept and
// only the member entry is rewritten.
func (s *Store) UpdateMember(patch model.MemberPatch) error {
	s.mu.RLock()
	token, current := s.token, s.member
	s.mu.RUnlock()
	if current == nil {
		return ErrNoSession
	}

	merged := patch.Apply(*current)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode member: %w", err)
	}
	if err := s.kv.Set(KeyMember, string(encoded)); err != nil {
		return fmt.Errorf("persist member: %w", err)
	}

	s.replace(token, &merged)
	return nil
}

// ClearSession drops the session and its persisted record. Calling it on an
// anonymous store is a no-op apart from re-deleting the entries.
func (s *Store) ClearSession() error {
	errToken := s.kv.Delete(KeyToken)
	errMember := s.kv.Delete(KeyMember)

	s.mu.RLock()
	had := s.member != nil
	s.mu.RUnlock()
	if had {
		s.replace("", nil)
		s.log.Info("session cleared")
	}
	return errors.Join(errToken, errMember)
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Session {
	if s.member == nil {
		return Session{}
	}
	m := *s.member
	return Session{Token: s.token, Member: &m}
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn to run after every session change with the new
// snapshot. Listeners run on the goroutine that made the change.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) replace(token string, member *model.Member) {
	s.mu.Lock()
	changed := s.token != token || !sameMember(s.member, member)
	s.token = token
	s.member = member
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

func (s *Store) notify(snap Session) {
	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func sameMember(a, b *model.Member) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Username == b.Username && a.CreatedAt.Equal(b.CreatedAt)
}

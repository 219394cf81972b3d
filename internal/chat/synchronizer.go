// Package chat keeps a local copy of the chat message log in step with the
// server by polling, and appends locally sent messages until the next poll
// replaces the list.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"groupchat/internal/model"
	"groupchat/internal/session"
)

const (
	DefaultPollInterval = 7 * time.Second

	LoadErrorText = "Could not load chat messages."
	SendErrorText = "Could not send the message."
	EmptyText     = "No messages yet. Write the first one!"
	LoadingText   = "Loading messages..."
)

var ErrInactive = errors.New("chat is not active")

// Source is the slice of the API gateway the synchronizer needs.
type Source interface {
	Messages(ctx context.Context) ([]model.Message, error)
	SendMessage(ctx context.Context, content string) (model.Message, error)
}

type SessionSource interface {
	Snapshot() session.Session
	Subscribe(fn func(session.Session)) (unsubscribe func())
}

// State is what a chat view renders.
type State struct {
	Active    bool
	Loading   bool
	Sending   bool
	Messages  []model.Message
	Input     string
	LoadError string
	SendError string
}

// Empty reports whether the view should show the empty-feed copy.
func (s State) Empty() bool {
	return s.Active && !s.Loading && len(s.Messages) == 0
}

type Option func(*Synchronizer)

func WithInterval(d time.Duration) Option { return func(s *Synchronizer) { s.interval = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Synchronizer) { s.log = l } }

// WithOnChange registers a callback invoked with a fresh State after every
// state mutation. It runs on whichever goroutine made the change.
func WithOnChange(fn func(State)) Option { return func(s *Synchronizer) { s.onChange = fn } }

type Synchronizer struct {
	src      Source
	interval time.Duration
	log      *zap.Logger
	onChange func(State)

	mu sync.Mutex
	// generation is the liveness token: bumped on every activation and
	// teardown, captured by each request, checked before applying results.
	generation uint64
	tickSeq    uint64
	applied    uint64
	active     bool
	memberID   int64
	stop       chan struct{}
	closed     bool

	messages  []model.Message
	loading   bool
	sends     int
	input     string
	loadError string
	sendError string

	unsub func()
	wg    sync.WaitGroup
}

func New(src Source, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		src:      src,
		interval: DefaultPollInterval,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind ties the active state to the session: active while a member is
// present, inactive otherwise.
func (s *Synchronizer) Bind(src SessionSource) {
	unsub := src.Subscribe(s.onSession)
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
	s.onSession(src.Snapshot())
}

func (s *Synchronizer) onSession(sess session.Session) {
	if sess.Member == nil {
		s.Deactivate()
		return
	}

	s.mu.Lock()
	switching := s.active && s.memberID != sess.Member.ID
	s.mu.Unlock()
	if switching {
		s.Deactivate()
	}
	s.Activate(sess.Member.ID)
}

// Activate enters the polling state: an immediate load followed by one
// load per interval. It is a no-op when already active or closed.
func (s *Synchronizer) Activate(memberID int64) {
	s.mu.Lock()
	if s.active || s.closed {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.memberID = memberID
	s.generation++
	gen := s.generation
	s.tickSeq = 0
	s.applied = 0
	s.messages = nil
	s.loading = true
	s.loadError = ""
	s.sendError = ""
	s.input = ""
	stop := make(chan struct{})
	s.stop = stop
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Debug("chat sync active", zap.Int64("member_id", memberID), zap.Uint64("generation", gen))
	s.changed()
	go s.poll(gen, stop)
}

// Deactivate stops the poll loop. Requests already in flight run to
// completion but their results are dropped.
func (s *Synchronizer) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.generation++
	close(s.stop)
	s.stop = nil
	s.loading = false
	s.mu.Unlock()

	s.log.Debug("chat sync inactive")
	s.changed()
}

// Close unbinds from the session, stops polling and waits for outstanding
// requests to return.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}

	s.Deactivate()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Synchronizer) poll(gen uint64, stop <-chan struct{}) {
	defer s.wg.Done()

	s.launchLoad(gen)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.launchLoad(gen)
		}
	}
}

// launchLoad starts one poll tick without waiting for the previous one, so
// a slow response never delays the schedule.
func (s *Synchronizer) launchLoad(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.tickSeq++
	seq := s.tickSeq
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		msgs, err := s.src.Messages(context.Background())
		s.applyLoad(gen, seq, msgs, err)
	}()
}

func (s *Synchronizer) applyLoad(gen, seq uint64, msgs []model.Message, err error) {
	s.mu.Lock()
	if gen != s.generation || seq <= s.applied {
		s.mu.Unlock()
		s.log.Debug("dropping stale poll result", zap.Uint64("generation", gen), zap.Uint64("tick", seq))
		return
	}
	s.applied = seq
	s.loading = false
	if err != nil {
		s.loadError = LoadErrorText
		s.mu.Unlock()
		s.log.Warn("poll failed", zap.Uint64("tick", seq), zap.Error(err))
		s.changed()
		return
	}
	s.messages = slices.Clone(msgs)
	s.loadError = ""
	s.mu.Unlock()

	s.changed()
}

func (s *Synchronizer) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.changed()
}

// Submit sends the current input. Whitespace-only input is ignored without
// a request. On success the created message is appended and the input is
// cleared; on failure both are left as they were.
func (s *Synchronizer) Submit(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrInactive
	}
	content := s.input
	if strings.TrimSpace(content) == "" {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	s.sends++
	s.sendError = ""
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	s.changed()

	created, err := s.src.SendMessage(ctx, content)

	s.mu.Lock()
	s.sends--
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("dropping send result after teardown")
		return nil
	}
	if err != nil {
		s.sendError = SendErrorText
		s.mu.Unlock()
		s.log.Warn("send failed", zap.Error(err))
		s.changed()
		return err
	}
	s.messages = append(slices.Clone(s.messages), created)
	s.input = ""
	s.sendError = ""
	s.mu.Unlock()

	s.changed()
	return nil
}

// Send sets the input to content and submits it.
func (s *Synchronizer) Send(ctx context.Context, content string) error {
	s.SetInput(content)
	return s.Submit(ctx)
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Synchronizer) stateLocked() State {
	return State{
		Active:    s.active,
		Loading:   s.loading,
		Sending:   s.sends > 0,
		Messages:  slices.Clone(s.messages),
		Input:     s.input,
		LoadError: s.loadError,
		SendError: s.sendError,
	}
}

func (s *Synchronizer) changed() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.State())
}

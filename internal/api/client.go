// Package api is the typed gateway to the chat service REST API. It turns
// domain operations into HTTP exchanges, attaches the session token when
// one is present, and normalizes every failure into the error taxonomy in
// errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"groupchat/internal/model"
)

const (
	pathRegister = "/api/auth/register/"
	pathLogin    = "/api/auth/login/"
	pathMe       = "/api/auth/me/"
	pathProfile  = "/api/profile/"
	pathMessages = "/api/chat/messages/"

	maxBodyBytes = 4 << 20
)

// Doer is the transport. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the current session token, "" when anonymous.
type TokenSource interface {
	Token() string
}

type noTokens struct{}

func (noTokens) Token() string { return "" }

type AuthResult struct {
	Token  string       `json:"token"`
	Member model.Member `json:"member"`
}

type ProfileUpdate struct {
	Username string `json:"username"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Client struct {
	baseURL string
	doer    Doer
	tokens  TokenSource
	log     *zap.Logger
}

type Option func(*Client)

func WithDoer(d Doer) Option { return func(c *Client) { c.doer = d } }

func WithTokens(t TokenSource) Option { return func(c *Client) { c.tokens = t } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithTimeout replaces the transport with an *http.Client using timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.doer = &http.Client{Timeout: timeout} }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    http.DefaultClient,
		tokens:  noTokens{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, username, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, call{
		op:       "register",
		method:   http.MethodPost,
		path:     pathRegister,
		body:     credentials{Username: username, Password: password},
		fallback: "Registration failed.",
		keys:     []string{"username"},
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, call{
		op:       "login",
		method:   http.MethodPost,
		path:     pathLogin,
		body:     credentials{Username: username, Password: password},
		fallback: "Login failed.",
		keys:     []string{"detail"},
	}, &out)
	return out, err
}

func (c *Client) CurrentMember(ctx context.Context) (model.Member, error) {
	var out model.Member
	err := c.do(ctx, call{op: "current member", method: http.MethodGet, path: pathMe, fallback: "Could not load the current member.", keys: []string{"detail"}}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context) (model.Member, error) {
	var out model.Member
	err := c.do(ctx, call{op: "get profile", method: http.MethodGet, path: pathProfile, fallback: "Could not load the profile.", keys: []string{"detail"}}, &out)
	return out, err
}

// UpdateProfile returns whatever subset of member fields the server echoes.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (model.MemberPatch, error) {
	var out model.MemberPatch
	err := c.do(ctx, call{
		op:       "update profile",
		method:   http.MethodPut,
		path:     pathProfile,
		body:     update,
		fallback: "Profile update failed.",
		keys:     []string{"username"},
	}, &out)
	return out, err
}

// Messages returns the server's message log in server order. A payload that
// is not a JSON array (including null) yields an empty list.
func (c *Client) Messages(ctx context.Context) ([]model.Message, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{op: "list messages", method: http.MethodGet, path: pathMessages, fallback: "Could not load chat messages.", keys: []string{"detail"}}, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.log.Warn("message list payload is not an array, treating as empty", zap.Int("bytes", len(trimmed)))
		return []model.Message{}, nil
	}

	var msgs []model.Message
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, &TransientError{Op: "list messages", Err: fmt.Errorf("decode: %w", err)}
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

func (c *Client) SendMessage(ctx context.Context, content string) (model.Message, error) {
	var out model.Message
	err := c.do(ctx, call{
		op:       "send message",
		method:   http.MethodPost,
		path:     pathMessages,
		body:     map[string]string{"content": content},
		fallback: "Could not send the message.",
		keys:     []string{"content", "detail"},
	}, &out)
	return out, err
}

type call struct {
	op       string
	method   string
	path     string
	body     any
	fallback string
	keys     []string
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return &TransientError{Op: cl.op, Err: fmt.Errorf("encode: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return &TransientError{Op: cl.op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", cl.op), zap.String("request_id", requestID), zap.Error(err))
		return &TransientError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransientError{Op: cl.op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("request done",
		zap.String("op", cl.op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(cl.op, resp.StatusCode, body, cl.fallback, cl.keys...)
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransientError{Op: cl.op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

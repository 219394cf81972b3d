package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"groupchat/internal/auth"
	"groupchat/internal/middleware"
	"groupchat/internal/store"
)

type testServer struct {
	t *testing.T
	r *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.New()
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	limiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)
	tokenCfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	return &testServer{t: t, r: NewRouter(Deps{Store: st, TokenConfig: tokenCfg, Limiter: limiter})}
}

func (s *testServer) do(method, path, token string, body any) (int, []byte) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return v
}

type authResp struct {
	Token  string `json:"token"`
	Member struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"member"`
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{"username": "alice", "password": "pw12"})
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", code, body)
	}
	reg := decode[authResp](t, body)
	if reg.Token == "" || reg.Member.Username != "alice" {
		t.Fatalf("unexpected register response: %s", body)
	}

	code, body = s.do(http.MethodPost, "/api/auth/login/", "", map[string]string{"username": "alice", "password": "pw12"})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", code, body)
	}
	login := decode[authResp](t, body)
	if login.Member.ID != reg.Member.ID {
		t.Fatalf("login returned member %d, registered %d", login.Member.ID, reg.Member.ID)
	}

	code, body = s.do(http.MethodGet, "/api/auth/me/", login.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", code, body)
	}
	me := decode[map[string]any](t, body)
	if me["username"] != "alice" || me["created_at"] == nil {
		t.Fatalf("unexpected me response: %s", body)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{"username": "alice", "password": "pw12"})

	tests := []struct {
		name  string
		body  map[string]string
		field string
		msg   string
	}{
		{"duplicate", map[string]string{"username": "alice", "password": "pw12"}, "username", "A member with this username already exists."},
		{"short password", map[string]string{"username": "bob", "password": "abc"}, "password", "Ensure this field has at least 4 characters."},
		{"missing username", map[string]string{"password": "pw12"}, "username", "This field is required."},
		{"long username", map[string]string{"username": strings.Repeat("a", 151), "password": "pw12"}, "username", "Ensure this field has no more than 150 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(http.MethodPost, "/api/auth/register/", "", tt.body)
			if code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", code, body)
			}
			errs := decode[map[string][]string](t, body)
			if len(errs[tt.field]) == 0 || errs[tt.field][0] != tt.msg {
				t.Fatalf("expected %s error %q, got %s", tt.field, tt.msg, body)
			}
		})
	}
}

func TestLoginRejections(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{"username": "alice", "password": "pw12"})

	tests := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"missing password", map[string]string{"username": "alice"}, "Both username and password are required."},
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, "Invalid username or password."},
		{"unknown member", map[string]string{"username": "zed", "password": "pw12"}, "Invalid username or password."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(http.MethodPost, "/api/auth/login/", "", tt.body)
			if code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", code, body)
			}
			errs := decode[map[string][]string](t, body)
			if len(errs["non_field_errors"]) != 1 || errs["non_field_errors"][0] != tt.msg {
				t.Fatalf("expected %q, got %s", tt.msg, body)
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/auth/me/", "/api/profile/", "/api/chat/messages/"} {
		code, body := s.do(http.MethodGet, path, "", nil)
		if code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, code)
		}
		if decode[map[string]string](t, body)["detail"] != "Authentication credentials were not provided." {
			t.Fatalf("%s: unexpected body %s", path, body)
		}
	}
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{"username": "alice", "password": "pw12"})
	alice := decode[authResp](t, body)
	s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{"username": "bob", "password": "pw12"})

	code, body := s.do(http.MethodPatch, "/api/profile/", alice.Token, map[string]string{})
	if code != http.StatusBadRequest || decode[map[string][]string](t, body)["username"][0] != "This field is required." {
		t.Fatalf("expected required error, got %d: %s", code, body)
	}

	code, body = s.do(http.MethodPut, "/api/profile/", alice.Token, map[string]string{"username": "bob"})
	if code != http.StatusBadRequest || decode[map[string][]string](t, body)["username"][0] != "A member with this username already exists." {
		t.Fatalf("expected taken error, got %d: %s", code, body)
	}

	code, body = s.do(http.MethodPatch, "/api/profile/", alice.Token, map[string]string{"username": "alicia"})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	if decode[map[string]any](t, body)["username"] != "alicia" {
		t.Fatalf("unexpected profile: %s", body)
	}

	code, body = s.do(http.MethodGet, "/api/profile/", alice.Token, nil)
	if code != http.StatusOK || decode[map[string]any](t, body)["username"] != "alicia" {
		t.Fatalf("profile not updated: %d %s", code, body)
	}
}

func TestChatMessages(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{"username": "alice", "password": "pw12"})
	alice := decode[authResp](t, body)

	code, body := s.do(http.MethodGet, "/api/chat/messages/", alice.Token, nil)
	if code != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty list, got %d: %s", code, body)
	}

	code, body = s.do(http.MethodPost, "/api/chat/messages/", alice.Token, map[string]string{"content": "  "})
	if code != http.StatusBadRequest || decode[map[string][]string](t, body)["content"][0] != "This field may not be blank." {
		t.Fatalf("expected blank error, got %d: %s", code, body)
	}

	code, body = s.do(http.MethodPost, "/api/chat/messages/", alice.Token, map[string]string{"content": "hi"})
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", code, body)
	}
	created := decode[map[string]any](t, body)
	if created["member_username"] != "alice" || created["content"] != "hi" || created["member"] != float64(alice.Member.ID) {
		t.Fatalf("unexpected created message: %s", body)
	}

	s.do(http.MethodPost, "/api/chat/messages/", alice.Token, map[string]string{"content": "again"})
	_, body = s.do(http.MethodGet, "/api/chat/messages/", alice.Token, nil)
	list := decode[[]map[string]any](t, body)
	if len(list) != 2 || list[0]["content"] != "hi" || list[1]["content"] != "again" {
		t.Fatalf("unexpected list: %s", body)
	}
}

func TestRegisterIsRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st, err := store.New()
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	s := &testServer{t: t, r: NewRouter(Deps{Store: st, TokenConfig: auth.TokenConfig{Secret: "s", Expiry: time.Hour}, Limiter: limiter})}

	if code, _ := s.do(http.MethodPost, "/api/auth/login/", "", map[string]string{}); code != http.StatusBadRequest {
		t.Fatalf("first request should reach the handler, got %d", code)
	}
	if code, _ := s.do(http.MethodPost, "/api/auth/register/", "", map[string]string{}); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if code, _ := s.do(http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", code)
	}
	s.do(http.MethodGet, "/api/hello/", "", nil)
	code, body := s.do(http.MethodGet, "/metrics", "", nil)
	if code != http.StatusOK || !strings.Contains(string(body), "groupchat_http_requests_total") {
		t.Fatalf("metrics: unexpected %d response", code)
	}
}

package store

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_MemberCRUD(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)

	m, err := s.CreateMember("alice", "hash", now)
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	if m.ID != 1 || m.Username != "alice" {
		t.Fatalf("unexpected member: %+v", m)
	}

	if _, err := s.CreateMember("alice", "hash2", now); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	stored, err := s.MemberByUsername("alice")
	if err != nil {
		t.Fatalf("MemberByUsername: %v", err)
	}
	if stored.PasswordHash != "hash" || stored.ID != m.ID {
		t.Fatalf("unexpected stored member: %+v", stored)
	}

	if _, err := s.MemberByID(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RenameMember(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)
	alice, _ := s.CreateMember("alice", "h", now)
	if _, err := s.CreateMember("bob", "h", now); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	if _, err := s.RenameMember(alice.ID, "bob"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := s.RenameMember(alice.ID, "alice"); err != nil {
		t.Fatalf("rename to same name: %v", err)
	}

	renamed, err := s.RenameMember(alice.ID, "carol")
	if err != nil {
		t.Fatalf("RenameMember: %v", err)
	}
	if renamed.Username != "carol" {
		t.Fatalf("expected carol, got %q", renamed.Username)
	}
	if _, err := s.MemberByUsername("alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old name should be free, got %v", err)
	}
	if _, err := s.CreateMember("alice", "h", now); err != nil {
		t.Fatalf("reuse freed name: %v", err)
	}
}

func TestStore_Messages(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)
	alice, _ := s.CreateMember("alice", "h", now)

	msg1, err := s.AppendMessage(alice.ID, "c1", now)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	msg2, err := s.AppendMessage(alice.ID, "c2", now)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg2.ID <= msg1.ID {
		t.Fatalf("expected id to increase")
	}
	if msg1.AuthorUsername != "alice" {
		t.Fatalf("expected author alice, got %q", msg1.AuthorUsername)
	}

	if _, err := s.RenameMember(alice.ID, "alicia"); err != nil {
		t.Fatalf("RenameMember: %v", err)
	}

	msgs, err := s.ListMessages()
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 msgs, got %d", len(msgs))
	}
	if msgs[0].Content != "c1" || msgs[1].Content != "c2" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
	if msgs[1].AuthorUsername != "alicia" {
		t.Fatalf("expected current username, got %q", msgs[1].AuthorUsername)
	}
}

func TestStore_ListMessagesOrderPastPadding(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)
	m, _ := s.CreateMember("alice", "h", now)
	for i := 0; i < 12; i++ {
		if _, err := s.AppendMessage(m.ID, "x", now); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	msgs, err := s.ListMessages()
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("out of order at %d: %d then %d", i, msgs[i-1].ID, msgs[i].ID)
		}
	}
}

func TestStore_AppendMessageUnknownMember(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendMessage(7, "x", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1000, 0)

	s1, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m, _ := s1.CreateMember("alice", "h", now)
	first, _ := s1.AppendMessage(m.ID, "hello", now)
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open(reopen): %v", err)
	}
	defer s2.Close()

	msgs, err := s2.ListMessages()
	if err != nil || len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("unexpected messages after reopen: %+v (%v)", msgs, err)
	}
	next, err := s2.AppendMessage(m.ID, "again", now)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if next.ID <= first.ID {
		t.Fatalf("ids went backwards after reopen: %d then %d", first.ID, next.ID)
	}
}

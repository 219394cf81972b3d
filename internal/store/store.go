// Package store persists members and the chat message log in badger.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
	"groupchat/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const (
	prefixMemberID   = "member:id:"
	prefixMemberName = "member:name:"
	prefixMessage    = "message:"

	seqMembers  = "seq:members"
	seqMessages = "seq:messages"
)

type Options struct {
	// Dir is the badger directory. Empty runs in memory.
	Dir    string
	Logger *zap.Logger
}

type Store struct {
	db  *badger.DB
	log *zap.Logger

	// memberMu serializes username claims so uniqueness checks and writes
	// happen as one step.
	memberMu sync.Mutex

	memberSeq  *seqGenerator
	messageSeq *seqGenerator
}

// StoredMember is a member together with its password hash.
type StoredMember struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (m StoredMember) Public() model.Member {
	return model.Member{ID: m.ID, Username: m.Username, CreatedAt: m.CreatedAt}
}

func New() (*Store, error) {
	return Open(Options{})
}

func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	bopts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{log.Sugar()})
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &Store{db: db, log: log}
	if s.memberSeq, err = newSeqGenerator(db, seqMembers); err != nil {
		_ = db.Close()
		return nil, err
	}
	if s.messageSeq, err = newSeqGenerator(db, seqMessages); err != nil {
		_ = s.memberSeq.release()
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return errors.Join(s.memberSeq.release(), s.messageSeq.release(), s.db.Close())
}

func memberIDKey(id int64) []byte {
	return []byte(prefixMemberID + strconv.FormatInt(id, 10))
}

func memberNameKey(username string) []byte {
	return []byte(prefixMemberName + username)
}

func (s *Store) CreateMember(username, passwordHash string, now time.Time) (model.Member, error) {
	s.memberMu.Lock()
	defer s.memberMu.Unlock()

	id, err := s.memberSeq.next()
	if err != nil {
		return model.Member{}, err
	}

	var member StoredMember
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(memberNameKey(username)); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		member = StoredMember{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now.UTC()}
		return putMember(txn, member)
	})
	if err != nil {
		return model.Member{}, err
	}
	s.log.Info("member created", zap.Int64("member_id", member.ID), zap.String("username", username))
	return member.Public(), nil
}

func putMember(txn *badger.Txn, m StoredMember) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal member: %w", err)
	}
	if err := txn.Set(memberIDKey(m.ID), data); err != nil {
		return err
	}
	return txn.Set(memberNameKey(m.Username), []byte(strconv.FormatInt(m.ID, 10)))
}

func getMember(txn *badger.Txn, id int64) (StoredMember, error) {
	item, err := txn.Get(memberIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return StoredMember{}, ErrNotFound
	}
	if err != nil {
		return StoredMember{}, err
	}
	var m StoredMember
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	return m, err
}

func (s *Store) MemberByID(id int64) (model.Member, error) {
	var m StoredMember
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		m, err = getMember(txn, id)
		return err
	})
	if err != nil {
		return model.Member{}, err
	}
	return m.Public(), nil
}

func (s *Store) MemberByUsername(username string) (StoredMember, error) {
	var m StoredMember
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(memberNameKey(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var id int64
		if err := item.Value(func(val []byte) error {
			id, err = strconv.ParseInt(string(val), 10, 64)
			return err
		}); err != nil {
			return err
		}
		m, err = getMember(txn, id)
		return err
	})
	return m, err
}

// RenameMember changes a member's username. Renaming to the current name
// succeeds without a write.
func (s *Store) RenameMember(id int64, username string) (model.Member, error) {
	s.memberMu.Lock()
	defer s.memberMu.Unlock()

	var member StoredMember
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		member, err = getMember(txn, id)
		if err != nil {
			return err
		}
		if member.Username == username {
			return nil
		}
		if _, err := txn.Get(memberNameKey(username)); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Delete(memberNameKey(member.Username)); err != nil {
			return err
		}
		member.Username = username
		return putMember(txn, member)
	})
	if err != nil {
		return model.Member{}, err
	}
	return member.Public(), nil
}

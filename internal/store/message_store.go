package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"groupchat/internal/model"
)

type storedMessage struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageView is a message joined with its author's current username.
type MessageView struct {
	model.Message
	MemberID int64
}

// Zero padding keeps badger's lexical key order equal to id order.
func messageKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixMessage, id))
}

func (s *Store) AppendMessage(memberID int64, content string, now time.Time) (MessageView, error) {
	id, err := s.messageSeq.next()
	if err != nil {
		return MessageView{}, err
	}
	msg := storedMessage{ID: id, MemberID: memberID, Content: content, CreatedAt: now.UTC()}

	var author StoredMember
	err = s.db.Update(func(txn *badger.Txn) error {
		var err error
		author, err = getMember(txn, memberID)
		if err != nil {
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		return txn.Set(messageKey(id), data)
	})
	if err != nil {
		return MessageView{}, err
	}
	return toView(msg, author.Username), nil
}

// ListMessages returns the whole log in id order.
func (s *Store) ListMessages() ([]MessageView, error) {
	result := make([]MessageView, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		usernames := make(map[int64]string)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixMessage)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg storedMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}

			name, ok := usernames[msg.MemberID]
			if !ok {
				m, err := getMember(txn, msg.MemberID)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return err
				}
				name = m.Username
				usernames[msg.MemberID] = name
			}
			result = append(result, toView(msg, name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func toView(msg storedMessage, username string) MessageView {
	return MessageView{
		Message: model.Message{
			ID:             msg.ID,
			AuthorUsername: username,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
		},
		MemberID: msg.MemberID,
	}
}

package model

import (
	"encoding/json"
	"time"
)

// DefaultAuthor is shown for messages whose author could not be resolved.
const DefaultAuthor = "Member"

type Member struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// MemberPatch is a partial member. Nil fields are left untouched by Apply.
type MemberPatch struct {
	ID        *int64     `json:"id,omitempty"`
	Username  *string    `json:"username,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (p MemberPatch) Apply(m Member) Member {
	if p.ID != nil {
		m.ID = *p.ID
	}
	if p.Username != nil {
		m.Username = *p.Username
	}
	if p.CreatedAt != nil {
		m.CreatedAt = *p.CreatedAt
	}
	return m
}

type Message struct {
	ID             int64
	AuthorUsername string
	Content        string
	CreatedAt      time.Time
}

func (m Message) Author() string {
	if m.AuthorUsername == "" {
		return DefaultAuthor
	}
	return m.AuthorUsername
}

type wireMessage struct {
	ID             int64           `json:"id"`
	Member         json.RawMessage `json:"member,omitempty"`
	MemberUsername string          `json:"member_username,omitempty"`
	Content        string          `json:"content"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UnmarshalJSON accepts both the flat member_username field and a nested
// member object. A numeric member (primary key) carries no username.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	author := w.MemberUsername
	if author == "" && len(w.Member) > 0 && w.Member[0] == '{' {
		var nested struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(w.Member, &nested); err == nil {
			author = nested.Username
		}
	}
	*m = Message{
		ID:             w.ID,
		AuthorUsername: author,
		Content:        w.Content,
		CreatedAt:      w.CreatedAt,
	}
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID:             m.ID,
		MemberUsername: m.AuthorUsername,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	})
}

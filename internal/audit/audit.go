// Package audit models the persisted history of edit-flow events.
package audit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entry is one recorded event. Team fields are empty for user.updated entries
// and Fields is empty for membership changes.
type Entry struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	UserID     string    `json:"user_id"`
	TeamID     string    `json:"team_id,omitempty"`
	TeamName   string    `json:"team_name,omitempty"`
	Action     string    `json:"action,omitempty"`
	MemberIDs  []string  `json:"member_ids,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Cursor is the position after the last entry of a page.
type Cursor struct {
	OccurredAt time.Time
	EventID    string
}

// Repository persists and queries entries. Record is idempotent on EventID.
type Repository interface {
	Record(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Entry, *Cursor, error)
}

// DefaultPageSize applies when ListByUser is called without a positive limit.
const DefaultPageSize = 50

// ErrInvalidCursor is returned for tokens DecodeCursor cannot parse.
var ErrInvalidCursor = errors.New("invalid cursor")

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", c.OccurredAt.UTC().Format(time.RFC3339Nano), c.EventID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token. An empty token means the first page.
func DecodeCursor(token string) (*Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &Cursor{OccurredAt: ts, EventID: parts[1]}, nil
}

// before reports whether e sorts after the cursor in newest-first order.
func (c *Cursor) before(e Entry) bool {
	if e.OccurredAt.Equal(c.OccurredAt) {
		return e.EventID < c.EventID
	}
	return e.OccurredAt.Before(c.OccurredAt)
}

// DeadLetter is a message the audit consumer gave up on. ID and Retries are
// assigned by the store.
type DeadLetter struct {
	ID        int64
	Topic     string
	Partition int
	Offset    int64
	Key       string
	EventType string
	Payload   []byte
	Reason    string
	Attempts  int
	Retries   int
	FailedAt  time.Time
}

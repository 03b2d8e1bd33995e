// Package events defines the payloads emitted by the dashboard's edit flow.
package events

import "time"

// Event types carried in the event_type message header.
const (
	TypeMembershipChanged = "membership.changed"
	TypeUserUpdated       = "user.updated"
)

// SchemaVersion is stamped on every payload.
const SchemaVersion = "v1"

// Membership actions.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// MembershipChanged is emitted after a team's member list was rewritten for a user.
type MembershipChanged struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	UserID     string    `json:"user_id"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	Action     string    `json:"action"`
	MemberIDs  []string  `json:"member_ids"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version"`
}

// UserUpdated is emitted after a profile patch was accepted by the backend.
type UserUpdated struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	UserID     string    `json:"user_id"`
	Fields     []string  `json:"fields"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version"`
}

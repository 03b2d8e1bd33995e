package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"example.com/octofit/internal/audit"
	"example.com/octofit/internal/events"
)

// AuditHandler turns edit-flow events into audit entries.
type AuditHandler struct {
	repo   audit.Repository
	logger *log.Logger
	now    func() time.Time
}

// NewAuditHandler constructs a handler writing to repo.
func NewAuditHandler(repo audit.Repository) *AuditHandler {
	return &AuditHandler{
		repo:   repo,
		logger: log.New(log.Writer(), "[audit] ", log.LstdFlags),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle records membership.changed and user.updated events; other types are ignored.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	var entry audit.Entry
	switch msg.EventType {
	case events.TypeMembershipChanged:
		var evt events.MembershipChanged
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		entry = audit.Entry{
			EventID:    evt.EventID,
			UserID:     evt.UserID,
			TeamID:     evt.TeamID,
			TeamName:   evt.TeamName,
			Action:     evt.Action,
			MemberIDs:  evt.MemberIDs,
			Actor:      evt.Actor,
			SessionID:  evt.SessionID,
			OccurredAt: evt.OccurredAt,
		}
	case events.TypeUserUpdated:
		var evt events.UserUpdated
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		entry = audit.Entry{
			EventID:    evt.EventID,
			UserID:     evt.UserID,
			Fields:     evt.Fields,
			Actor:      evt.Actor,
			SessionID:  evt.SessionID,
			OccurredAt: evt.OccurredAt,
		}
	default:
		h.logger.Printf("ignoring event_type=%s offset=%d", msg.EventType, msg.Offset)
		return nil
	}

	entry.EventType = msg.EventType
	if entry.EventID == "" {
		entry.EventID = fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = msg.Timestamp
	}
	entry.RecordedAt = h.now()

	if err := h.repo.Record(ctx, entry); err != nil {
		return fmt.Errorf("record %s %s: %w", entry.EventType, entry.EventID, err)
	}
	return nil
}

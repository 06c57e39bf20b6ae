package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/taskflow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded        EventType = "login_succeeded"
	EventLoginFailed           EventType = "login_failed"
	EventLoginDisabled         EventType = "login_disabled"
	EventFederationTokenMinted EventType = "federation_token_minted"
	EventUserCreated           EventType = "user_created"
	EventUserUpdated           EventType = "user_updated"
	EventTaskCreated           EventType = "task_created"
	EventTaskUpdated           EventType = "task_updated"
	EventTaskDeleted           EventType = "task_deleted"
)

// AuditEventTypes lists every event the audit log subscribes to.
var AuditEventTypes = []EventType{
	EventLoginSucceeded,
	EventLoginFailed,
	EventLoginDisabled,
	EventFederationTokenMinted,
	EventUserCreated,
	EventUserUpdated,
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskDeleted,
}

// Actor identifies who caused an event. Empty for anonymous login attempts.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorOf builds an Actor from an authenticated identity.
func ActorOf(identity domain.Identity) Actor {
	return Actor{UserID: identity.SubjectID, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, subjectID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginPayload describes a login attempt. Email is the normalised address
// the caller submitted; passwords never appear in events.
type LoginPayload struct {
	Email string `json:"email"`
}

// FederationMintedPayload describes an issued federation token.
type FederationMintedPayload struct {
	TokenID string    `json:"jti"`
	CMSRole string    `json:"cms_role"`
	Expires time.Time `json:"expires_at"`
}

// UserChangedPayload lists the user fields a write touched.
type UserChangedPayload struct {
	Fields []string `json:"fields,omitempty"`
}

// TaskChangedPayload lists the task fields a write touched.
type TaskChangedPayload struct {
	Fields     []domain.TaskField `json:"fields,omitempty"`
	OldStatus  domain.TaskStatus  `json:"old_status,omitempty"`
	NewStatus  domain.TaskStatus  `json:"new_status,omitempty"`
	AssigneeID string             `json:"assignee_id,omitempty"`
}

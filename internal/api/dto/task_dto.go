package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	Deadline     string  `json:"deadline"`
	AssignedToID string  `json:"assignedToId"`
}

// AssigneeResponse names the task owner.
type AssigneeResponse struct {
	Name string `json:"name"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description"`
	Deadline     time.Time         `json:"deadline"`
	Status       domain.TaskStatus `json:"status"`
	AssignedToID string            `json:"assignedToId"`
	AssignedTo   AssigneeResponse  `json:"assignedTo"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// NewTaskResponse projects a task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Deadline:     t.Deadline,
		Status:       t.Status,
		AssignedToID: t.AssignedToID,
		AssignedTo:   AssigneeResponse{Name: t.AssigneeName},
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTaskResponses projects a slice of tasks.
func NewTaskResponses(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i]))
	}
	return out
}

// ParseDeadline accepts RFC 3339 timestamps and bare dates (midnight UTC).
func ParseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.NewInvalidValue("deadline must be a date or RFC 3339 timestamp", map[string]any{"field": string(domain.TaskFieldDeadline)})
}

// DecodeTaskPatch parses a PATCH body. Attribute names tasks do not have are
// collected into Unknown and a body or value that cannot be decoded is
// recorded in Malformed; the policy rejects both once it knows the caller
// may touch the task. A null value leaves the attribute untouched.
func DecodeTaskPatch(body []byte) domain.TaskPatch {
	fields, err := decodeObject(body)
	if err != nil {
		return domain.TaskPatch{Malformed: err}
	}

	var patch domain.TaskPatch
	for key, raw := range fields {
		if isNull(raw) {
			continue
		}
		switch domain.TaskField(key) {
		case domain.TaskFieldTitle:
			patch.Title = new(string)
			err = decodeField(key, raw, patch.Title)
		case domain.TaskFieldDescription:
			patch.Description = new(string)
			err = decodeField(key, raw, patch.Description)
		case domain.TaskFieldAssignedToID:
			patch.AssignedToID = new(string)
			err = decodeField(key, raw, patch.AssignedToID)
		case domain.TaskFieldStatus:
			var status string
			if err = decodeField(key, raw, &status); err == nil {
				s := domain.TaskStatus(status)
				patch.Status = &s
			}
		case domain.TaskFieldDeadline:
			var value string
			if err = decodeField(key, raw, &value); err == nil {
				var deadline time.Time
				if deadline, err = ParseDeadline(value); err == nil {
					patch.Deadline = &deadline
				}
			}
		default:
			patch.Unknown = append(patch.Unknown, domain.TaskField(key))
		}
		if err != nil {
			return domain.TaskPatch{Malformed: err}
		}
	}
	return patch
}

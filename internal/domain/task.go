package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "TODO"
	TaskStatusDone TaskStatus = "DONE"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Task is a unit of work assigned to one user.
type Task struct {
	ID           string
	Title        string
	Description  *string
	Deadline     time.Time
	Status       TaskStatus
	AssignedToID string
	AssigneeName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskField names a patchable task attribute.
type TaskField string

const (
	TaskFieldTitle        TaskField = "title"
	TaskFieldDescription  TaskField = "description"
	TaskFieldDeadline     TaskField = "deadline"
	TaskFieldAssignedToID TaskField = "assignedToId"
	TaskFieldStatus       TaskField = "status"
)

// TaskPatch is a partial update; nil fields are left untouched. Unknown
// holds attribute names the client sent that tasks do not have, and
// Malformed holds the error from decoding the body. Both are carried so the
// policy can reject them after the ownership check.
type TaskPatch struct {
	Title        *string
	Description  *string
	Deadline     *time.Time
	AssignedToID *string
	Status       *TaskStatus
	Unknown      []TaskField
	Malformed    error
}

// Fields lists the attributes present in the patch.
func (p TaskPatch) Fields() []TaskField {
	var fields []TaskField
	if p.Title != nil {
		fields = append(fields, TaskFieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, TaskFieldDescription)
	}
	if p.Deadline != nil {
		fields = append(fields, TaskFieldDeadline)
	}
	if p.AssignedToID != nil {
		fields = append(fields, TaskFieldAssignedToID)
	}
	if p.Status != nil {
		fields = append(fields, TaskFieldStatus)
	}
	return append(fields, p.Unknown...)
}

// Apply copies the present fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.AssignedToID != nil {
		t.AssignedToID = *p.AssignedToID
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

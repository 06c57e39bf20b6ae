package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

var (
	manager  = domain.Identity{SubjectID: "m-1", Role: domain.RoleManager, DisplayName: "Alice"}
	employee = domain.Identity{SubjectID: "e-1", Role: domain.RoleEmployee, DisplayName: "Bob"}
)

func statusPtr(s domain.TaskStatus) *domain.TaskStatus { return &s }
func strPtr(s string) *string                       { return &s }

func TestRoleGate(t *testing.T) {
	p := NewPolicy()

	managerOnly := []Operation{OpListUsers, OpCreateUser, OpUpdateUser, OpListAllTasks, OpCreateTask, OpDeleteTask}
	for _, op := range managerOnly {
		require.True(t, p.Authorize(manager, op, nil).Allowed, op)
		d := p.Authorize(employee, op, nil)
		require.False(t, d.Allowed, op)
		require.Equal(t, DenyForbidden, d.Reason)
	}

	for _, op := range []Operation{OpListMyTasks, OpMintFederationToken, OpUpdateTask} {
		require.True(t, p.Authorize(employee, op, nil).Allowed, op)
		require.True(t, p.Authorize(manager, op, nil).Allowed, op)
	}
}

func TestUnknownRoleAndOperation(t *testing.T) {
	p := NewPolicy()

	d := p.Authorize(domain.Identity{SubjectID: "x", Role: "ADMIN"}, OpListMyTasks, nil)
	require.Equal(t, DenyForbidden, d.Reason)
	require.True(t, apperrors.IsKind(d.Err(), apperrors.CodeForbidden))

	d = p.Authorize(manager, Operation("tasks:archive"), nil)
	require.False(t, d.Allowed)
}

func TestEmployeeTaskUpdate(t *testing.T) {
	p := NewPolicy()
	own := func(patch domain.TaskPatch) *Resource {
		return &Resource{Kind: "task", Exists: true, OwnerID: employee.SubjectID, TaskPatch: &patch}
	}

	t.Run("status on own task", func(t *testing.T) {
		require.True(t, p.Authorize(employee, OpUpdateTask, own(domain.TaskPatch{Status: statusPtr(domain.TaskStatusDone)})).Allowed)
	})

	t.Run("status outside closed set", func(t *testing.T) {
		d := p.Authorize(employee, OpUpdateTask, own(domain.TaskPatch{Status: statusPtr("IN_PROGRESS")}))
		require.Equal(t, DenyInvalidField, d.Reason)
		require.True(t, apperrors.IsKind(d.Err(), apperrors.CodeInvalidField))
	})

	t.Run("other field rejected not ignored", func(t *testing.T) {
		d := p.Authorize(employee, OpUpdateTask, own(domain.TaskPatch{
			Status: statusPtr(domain.TaskStatusDone),
			Title:  strPtr("renamed"),
		}))
		require.Equal(t, DenyInvalidField, d.Reason)
		require.Equal(t, "title", d.Field)
	})

	t.Run("empty patch", func(t *testing.T) {
		d := p.Authorize(employee, OpUpdateTask, own(domain.TaskPatch{}))
		require.Equal(t, DenyInvalidField, d.Reason)
	})

	t.Run("foreign task denied regardless of payload", func(t *testing.T) {
		for _, patch := range []domain.TaskPatch{
			{Status: statusPtr(domain.TaskStatusDone)},
			{Status: statusPtr("BOGUS")},
			{Title: strPtr("x")},
		} {
			patch := patch
			d := p.Authorize(employee, OpUpdateTask, &Resource{Kind: "task", Exists: true, OwnerID: "someone-else", TaskPatch: &patch})
			require.Equal(t, DenyForbidden, d.Reason)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		patch := domain.TaskPatch{Status: statusPtr(domain.TaskStatusDone), Unknown: []domain.TaskField{"priority"}}
		d := p.Authorize(employee, OpUpdateTask, own(patch))
		require.Equal(t, DenyInvalidField, d.Reason)
		require.Equal(t, "priority", d.Field)

		d = p.Authorize(employee, OpUpdateTask, &Resource{Kind: "task", Exists: true, OwnerID: "someone-else", TaskPatch: &patch})
		require.Equal(t, DenyForbidden, d.Reason)
	})

	t.Run("undecodable body checked after ownership", func(t *testing.T) {
		patch := domain.TaskPatch{Malformed: apperrors.NewValidationError("invalid payload", nil)}

		d := p.Authorize(employee, OpUpdateTask, &Resource{Kind: "task", Exists: true, OwnerID: "someone-else", TaskPatch: &patch})
		require.Equal(t, DenyForbidden, d.Reason)

		d = p.Authorize(employee, OpUpdateTask, &Resource{Kind: "task", Exists: false, TaskPatch: &patch})
		require.Equal(t, DenyForbidden, d.Reason)

		d = p.Authorize(employee, OpUpdateTask, own(patch))
		require.Equal(t, DenyMalformed, d.Reason)
		require.True(t, apperrors.IsKind(d.Err(), apperrors.CodeValidation))
	})

	t.Run("missing task indistinguishable from foreign", func(t *testing.T) {
		patch := domain.TaskPatch{Status: statusPtr(domain.TaskStatusDone)}
		d := p.Authorize(employee, OpUpdateTask, &Resource{Kind: "task", Exists: false, TaskPatch: &patch})
		require.Equal(t, DenyForbidden, d.Reason)
	})
}

func TestManagerTaskUpdate(t *testing.T) {
	p := NewPolicy()
	deadline := time.Date(2024, 11, 1, 17, 0, 0, 0, time.UTC)

	t.Run("any field on any task", func(t *testing.T) {
		patch := domain.TaskPatch{
			Title:        strPtr("new"),
			Description:  strPtr(""),
			Deadline:     &deadline,
			AssignedToID: strPtr("e-2"),
			Status:       statusPtr(domain.TaskStatusTodo),
		}
		d := p.Authorize(manager, OpUpdateTask, &Resource{Kind: "task", Exists: true, OwnerID: "e-9", TaskPatch: &patch})
		require.True(t, d.Allowed)
	})

	t.Run("missing task is not found", func(t *testing.T) {
		patch := domain.TaskPatch{Title: strPtr("x")}
		d := p.Authorize(manager, OpUpdateTask, &Resource{Kind: "task", TaskPatch: &patch})
		require.Equal(t, DenyNotFound, d.Reason)
		require.True(t, apperrors.IsKind(d.Err(), apperrors.CodeNotFound))
	})

	t.Run("invalid status value", func(t *testing.T) {
		patch := domain.TaskPatch{Status: statusPtr("LATER")}
		d := p.Authorize(manager, OpUpdateTask, &Resource{Kind: "task", Exists: true, TaskPatch: &patch})
		require.Equal(t, DenyInvalidValue, d.Reason)
	})

	t.Run("blank title", func(t *testing.T) {
		patch := domain.TaskPatch{Title: strPtr("  ")}
		d := p.Authorize(manager, OpUpdateTask, &Resource{Kind: "task", Exists: true, TaskPatch: &patch})
		require.Equal(t, DenyInvalidValue, d.Reason)
	})
}

func TestUserPatch(t *testing.T) {
	p := NewPolicy()
	role := domain.Role("OWNER")
	inactive := false

	d := p.Authorize(manager, OpUpdateUser, &Resource{Kind: "user", Exists: true, UserPatch: &domain.UserPatch{IsActive: &inactive}})
	require.True(t, d.Allowed)

	d = p.Authorize(manager, OpUpdateUser, &Resource{Kind: "user", Exists: true, UserPatch: &domain.UserPatch{Role: &role}})
	require.Equal(t, DenyInvalidValue, d.Reason)

	d = p.Authorize(manager, OpUpdateUser, &Resource{Kind: "user", Exists: true, UserPatch: &domain.UserPatch{}})
	require.Equal(t, DenyInvalidField, d.Reason)

	d = p.Authorize(manager, OpUpdateUser, &Resource{Kind: "user", Exists: false, UserPatch: &domain.UserPatch{IsActive: &inactive}})
	require.Equal(t, DenyNotFound, d.Reason)

	d = p.Authorize(employee, OpUpdateUser, &Resource{Kind: "user", Exists: true, UserPatch: &domain.UserPatch{IsActive: &inactive}})
	require.Equal(t, DenyForbidden, d.Reason)
}

package auth

import (
	"fmt"
	"strings"

	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// Operation names a protected action.
type Operation string

const (
	OpListUsers           Operation = "users:list"
	OpCreateUser          Operation = "users:create"
	OpUpdateUser          Operation = "users:update"
	OpListAllTasks        Operation = "tasks:list-all"
	OpCreateTask          Operation = "tasks:create"
	OpUpdateTask          Operation = "tasks:update"
	OpDeleteTask          Operation = "tasks:delete"
	OpListMyTasks         Operation = "tasks:list-mine"
	OpMintFederationToken Operation = "federation:mint"
)

// DenyReason classifies a denial.
type DenyReason string

const (
	DenyForbidden    DenyReason = "FORBIDDEN"
	DenyNotFound     DenyReason = "NOT_FOUND"
	DenyInvalidField DenyReason = "INVALID_FIELD"
	DenyInvalidValue DenyReason = "INVALID_VALUE"
	DenyMalformed    DenyReason = "MALFORMED"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Message string
	Field   string

	cause error
}

// Allow is the permitting decision.
var Allow = Decision{Allowed: true}

func deny(reason DenyReason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

func denyField(reason DenyReason, field domain.TaskField, message string) Decision {
	return Decision{Reason: reason, Message: message, Field: string(field)}
}

// Err converts a denial into the error taxonomy; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.cause != nil {
		return d.cause
	}
	var details map[string]any
	if d.Field != "" {
		details = map[string]any{"field": d.Field}
	}
	switch d.Reason {
	case DenyNotFound:
		return apperrors.NewNotFound(d.Message, nil)
	case DenyInvalidField:
		return apperrors.NewInvalidField(d.Message, details)
	case DenyInvalidValue:
		return apperrors.NewInvalidValue(d.Message, details)
	default:
		return apperrors.NewForbidden(d.Message)
	}
}

// Resource describes the target of a resource-scoped operation.
type Resource struct {
	Kind      string
	Exists    bool
	OwnerID   string
	TaskPatch *domain.TaskPatch
	UserPatch *domain.UserPatch
}

type requirement struct {
	roles       []domain.Role
	ownerScoped bool
}

var requirements = map[Operation]requirement{
	OpListUsers:           {roles: []domain.Role{domain.RoleManager}},
	OpCreateUser:          {roles: []domain.Role{domain.RoleManager}},
	OpUpdateUser:          {roles: []domain.Role{domain.RoleManager}},
	OpListAllTasks:        {roles: []domain.Role{domain.RoleManager}},
	OpCreateTask:          {roles: []domain.Role{domain.RoleManager}},
	OpDeleteTask:          {roles: []domain.Role{domain.RoleManager}},
	OpUpdateTask:          {ownerScoped: true},
	OpListMyTasks:         {},
	OpMintFederationToken: {},
}

// Task fields each role may patch.
var (
	managerTaskFields = map[domain.TaskField]struct{}{
		domain.TaskFieldTitle:        {},
		domain.TaskFieldDescription:  {},
		domain.TaskFieldDeadline:     {},
		domain.TaskFieldAssignedToID: {},
		domain.TaskFieldStatus:       {},
	}
	employeeTaskFields = map[domain.TaskField]struct{}{
		domain.TaskFieldStatus: {},
	}
)

func taskFieldsFor(role domain.Role) map[domain.TaskField]struct{} {
	switch role {
	case domain.RoleManager:
		return managerTaskFields
	case domain.RoleEmployee:
		return employeeTaskFields
	default:
		return nil
	}
}

// Policy decides whether an identity may perform an operation. Rules run in
// order: role gate, ownership gate, field allow-list.
type Policy struct {
	requirements map[Operation]requirement
}

// NewPolicy returns the TaskFlow policy.
func NewPolicy() *Policy {
	return &Policy{requirements: requirements}
}

// Authorize evaluates op for identity against an optional resource.
func (p *Policy) Authorize(identity domain.Identity, op Operation, res *Resource) Decision {
	if !identity.Role.Valid() {
		return deny(DenyForbidden, "unknown role")
	}
	req, ok := p.requirements[op]
	if !ok {
		return deny(DenyForbidden, fmt.Sprintf("unknown operation %q", op))
	}

	if len(req.roles) > 0 && !hasRole(req.roles, identity.Role) {
		return deny(DenyForbidden, "access denied")
	}

	if res != nil {
		if d := ownership(identity, req, res); !d.Allowed {
			return d
		}
		if res.TaskPatch != nil {
			if d := validateTaskPatch(identity.Role, *res.TaskPatch); !d.Allowed {
				return d
			}
		}
		if res.UserPatch != nil {
			if d := validateUserPatch(identity.Role, *res.UserPatch); !d.Allowed {
				return d
			}
		}
	}
	return Allow
}

// ownership collapses "missing" and "not yours" into one answer for
// employees so another user's resource ids cannot be enumerated.
func ownership(identity domain.Identity, req requirement, res *Resource) Decision {
	kind := res.Kind
	if kind == "" {
		kind = "resource"
	}
	switch identity.Role {
	case domain.RoleManager:
		if !res.Exists {
			return deny(DenyNotFound, kind)
		}
		return Allow
	case domain.RoleEmployee:
		if !req.ownerScoped {
			return Allow
		}
		if !res.Exists || res.OwnerID != identity.SubjectID {
			return deny(DenyForbidden, fmt.Sprintf("you cannot modify this %s", kind))
		}
		return Allow
	default:
		return deny(DenyForbidden, "unknown role")
	}
}

func validateTaskPatch(role domain.Role, patch domain.TaskPatch) Decision {
	if patch.Malformed != nil {
		return Decision{Reason: DenyMalformed, Message: patch.Malformed.Error(), cause: patch.Malformed}
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return deny(DenyInvalidField, "no fields to update provided")
	}
	allowed := taskFieldsFor(role)
	for _, field := range fields {
		if _, ok := allowed[field]; !ok {
			return denyField(DenyInvalidField, field, fmt.Sprintf("field %q may not be changed", field))
		}
	}

	switch role {
	case domain.RoleEmployee:
		if !patch.Status.Valid() {
			return denyField(DenyInvalidField, domain.TaskFieldStatus, "status must be TODO or DONE")
		}
	case domain.RoleManager:
		if patch.Status != nil && !patch.Status.Valid() {
			return denyField(DenyInvalidValue, domain.TaskFieldStatus, "status must be TODO or DONE")
		}
		if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
			return denyField(DenyInvalidValue, domain.TaskFieldTitle, "title must not be empty")
		}
		if patch.AssignedToID != nil && strings.TrimSpace(*patch.AssignedToID) == "" {
			return denyField(DenyInvalidValue, domain.TaskFieldAssignedToID, "assignedToId must not be empty")
		}
		if patch.Deadline != nil && patch.Deadline.IsZero() {
			return denyField(DenyInvalidValue, domain.TaskFieldDeadline, "deadline must be set")
		}
	default:
		return deny(DenyForbidden, "unknown role")
	}
	return Allow
}

func validateUserPatch(role domain.Role, patch domain.UserPatch) Decision {
	switch role {
	case domain.RoleManager:
	case domain.RoleEmployee:
		return deny(DenyForbidden, "access denied")
	default:
		return deny(DenyForbidden, "unknown role")
	}
	if patch.Empty() {
		return deny(DenyInvalidField, "no fields to update provided")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Decision{Reason: DenyInvalidValue, Message: "name must not be empty", Field: "name"}
	}
	if patch.Email != nil && !strings.Contains(*patch.Email, "@") {
		return Decision{Reason: DenyInvalidValue, Message: "email is not valid", Field: "email"}
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return Decision{Reason: DenyInvalidValue, Message: "role must be MANAGER or EMPLOYEE", Field: "role"}
	}
	return Allow
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

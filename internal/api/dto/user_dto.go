package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// CreateUserRequest payload for a new employee account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse never includes the password hash.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewUserResponse projects a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// DecodeUserPatch parses a PATCH body. Unknown attributes are rejected; a
// null value leaves the attribute untouched.
func DecodeUserPatch(body []byte) (domain.UserPatch, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return domain.UserPatch{}, err
	}

	var patch domain.UserPatch
	for key, raw := range fields {
		if isNull(raw) {
			continue
		}
		switch key {
		case "name":
			patch.Name = new(string)
			err = decodeField(key, raw, patch.Name)
		case "email":
			patch.Email = new(string)
			err = decodeField(key, raw, patch.Email)
		case "role":
			var role string
			if err = decodeField(key, raw, &role); err == nil {
				r := domain.Role(role)
				patch.Role = &r
			}
		case "isActive":
			patch.IsActive = new(bool)
			err = decodeField(key, raw, patch.IsActive)
		default:
			err = apperrors.NewInvalidField(fmt.Sprintf("field %q may not be changed", key), map[string]any{"field": key})
		}
		if err != nil {
			return domain.UserPatch{}, err
		}
	}
	return patch, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	return fields, nil
}

func decodeField(key string, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewValidationError("invalid value for "+key, map[string]any{"field": key})
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/taskflow/internal/repository"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// withStoreTimeout bounds a single credential store call. Calls are never
// retried; a timeout surfaces as ServiceUnavailable.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError maps repository failures onto the error taxonomy.
func storeError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperrors.NewDuplicateEmail()
	case errors.Is(err, context.Canceled):
		return err
	default:
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return apperrors.NewServiceUnavailable(err)
	}
}

package service

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/equipment-service/internal/repository"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

func lookupError(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// mapStoreError translates repository sentinels raised inside a ticket's
// critical section or by uniqueness checks.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrLockTimeout):
		return apperrors.NewConflict("ticket is busy, retry", nil)
	case errors.Is(err, repository.ErrStaleVersion):
		return apperrors.NewConflict("ticket was modified concurrently", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("duplicate record", nil)
	case errors.Is(err, repository.ErrNotActive):
		return apperrors.NewConflict("assignment is no longer active", nil)
	}
	return apperrors.MapError(err)
}

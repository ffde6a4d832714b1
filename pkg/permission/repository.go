package permission

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyAssigned   = errors.New("permission already assigned to user")
	ErrUnknownPermission = errors.New("unknown permission id")
	ErrNotAssigned       = errors.New("permission not assigned to user")
)

// Assignment links a user to a permission
type Assignment struct {
	UserID       int64
	PermissionID int
	AssignedBy   int64
	AssignedAt   time.Time
}

// Repository defines the persistence operations for permission assignments
type Repository interface {
	// FindPermissionIDsByUserID returns the permission-id set for a user
	FindPermissionIDsByUserID(ctx context.Context, userID int64) ([]int, error)

	// FindAssignmentsByUserID returns the full assignment records for a user
	FindAssignmentsByUserID(ctx context.Context, userID int64) ([]Assignment, error)

	// Assign grants a permission to a user. Granting an already-held
	// permission fails with ErrAlreadyAssigned.
	Assign(ctx context.Context, arg Assignment) error

	// Revoke removes a permission from a user
	Revoke(ctx context.Context, userID int64, permissionID int) error
}

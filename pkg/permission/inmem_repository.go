package permission

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu          sync.RWMutex
	assignments map[int64]map[int]Assignment // userID -> permissionID -> Assignment
}

// NewInMemoryRepository creates a new in-memory permission repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		assignments: make(map[int64]map[int]Assignment),
	}
}

// FindPermissionIDsByUserID returns the permission-id set for a user
func (r *InMemoryRepository) FindPermissionIDsByUserID(ctx context.Context, userID int64) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.assignments[userID]))
	for id := range r.assignments[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// FindAssignmentsByUserID returns the full assignment records for a user
func (r *InMemoryRepository) FindAssignmentsByUserID(ctx context.Context, userID int64) ([]Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assignments := make([]Assignment, 0, len(r.assignments[userID]))
	for _, a := range r.assignments[userID] {
		assignments = append(assignments, a)
	}
	return assignments, nil
}

// Assign grants a permission to a user
func (r *InMemoryRepository) Assign(ctx context.Context, arg Assignment) error {
	if _, ok := Lookup(arg.PermissionID); !ok {
		return ErrUnknownPermission
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assignments[arg.UserID][arg.PermissionID]; ok {
		return ErrAlreadyAssigned
	}
	if r.assignments[arg.UserID] == nil {
		r.assignments[arg.UserID] = make(map[int]Assignment)
	}
	if arg.AssignedAt.IsZero() {
		arg.AssignedAt = time.Now().UTC()
	}
	r.assignments[arg.UserID][arg.PermissionID] = arg
	return nil
}

// Revoke removes a permission from a user
func (r *InMemoryRepository) Revoke(ctx context.Context, userID int64, permissionID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assignments[userID][permissionID]; !ok {
		return ErrNotAssigned
	}
	delete(r.assignments[userID], permissionID)
	return nil
}

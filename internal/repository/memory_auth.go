package repository

import (
	"context"
	"sync"
)

// MemoryRoleLookup fixed role table for dev mode and tests.
type MemoryRoleLookup struct {
	mu    sync.RWMutex
	roles map[string]string
}

func NewMemoryRoleLookup(roles map[string]string) *MemoryRoleLookup {
	if roles == nil {
		roles = map[string]string{}
	}
	return &MemoryRoleLookup{roles: roles}
}

var _ RoleLookup = (*MemoryRoleLookup)(nil)

func (r *MemoryRoleLookup) RoleFor(_ context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[userID], nil
}

func (r *MemoryRoleLookup) SetRole(userID, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[userID] = role
}

package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"auth-service/internal/model"
)

// MemoryUserRepository is a process-local credential store with the same
// contract as UserRepository. Used by tests and local runs without Postgres.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string, role model.Role) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	u := r.byID[id]
	if u.Role != role {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[model.NormalizeEmail(email)]
	return ok, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = model.NormalizeEmail(u.Email)
	if _, taken := r.byEmail[u.Email]; taken {
		return model.ErrEmailExists
	}
	if _, taken := r.byID[u.ID]; taken {
		return model.ErrEmailExists
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepository) RecordLogin(_ context.Context, id string, at time.Time) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}

	stamp := at
	u.LastLogin = &stamp
	u.LoginCount++
	u.UpdatedAt = at
	r.byID[id] = u
	return u, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, update model.UserUpdate, at time.Time) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}

	if update.Email != nil {
		email := model.NormalizeEmail(*update.Email)
		if owner, taken := r.byEmail[email]; taken && owner != id {
			return model.User{}, model.ErrEmailExists
		}
		delete(r.byEmail, u.Email)
		r.byEmail[email] = id
		u.Email = email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}

	u.UpdatedAt = at
	r.byID[id] = u
	return u, nil
}

func (r *MemoryUserRepository) SetActive(_ context.Context, id string, active bool, at time.Time) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}

	u.IsActive = active
	u.UpdatedAt = at
	r.byID[id] = u
	return u, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}

	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context, filter model.UserFilter) ([]model.User, error) {
	r.mu.RLock()
	matched := r.matching(filter)
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b model.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	offset := (filter.Page - 1) * filter.Limit
	if offset < 0 || offset >= len(matched) {
		return []model.User{}, nil
	}
	end := min(offset+filter.Limit, len(matched))
	return matched[offset:end], nil
}

func (r *MemoryUserRepository) Count(_ context.Context, filter model.UserFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matching(filter)), nil
}

func (r *MemoryUserRepository) matching(filter model.UserFilter) []model.User {
	out := make([]model.User, 0, len(r.byID))
	for _, u := range r.byID {
		if filter.Role.Valid() && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out
}

// MemoryRevocationRepository is the in-process token deny-list.
type MemoryRevocationRepository struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationRepository() *MemoryRevocationRepository {
	return &MemoryRevocationRepository{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRevocationRepository) Revoke(_ context.Context, tokenID string, _ string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.revoked[tokenID]; !exists {
		r.revoked[tokenID] = expiresAt
	}
	return nil
}

func (r *MemoryRevocationRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.revoked[tokenID]
	return ok && expiresAt.After(r.now()), nil
}

func (r *MemoryRevocationRepository) CleanExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed int64
	for id, expiresAt := range r.revoked {
		if !expiresAt.After(now) {
			delete(r.revoked, id)
			removed++
		}
	}
	return removed, nil
}

// MemoryAuditRepository keeps audit entries in insertion order.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
	nextID  int64
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Log(_ context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.OccurredAt == "" {
		entry.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryAuditRepository) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query = clampAuditQuery(query)

	r.mu.RLock()
	matched := make([]model.AuditEntry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if query.Action != "" && !strings.EqualFold(e.Action, strings.TrimSpace(query.Action)) {
			continue
		}
		if query.ActorID != "" && e.Actor.UserID != strings.TrimSpace(query.ActorID) {
			continue
		}
		if query.Status != "" && !strings.EqualFold(e.Status, strings.TrimSpace(query.Status)) {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	meta := *model.NewMeta(query.Page, query.Limit, len(matched))
	offset := (query.Page - 1) * query.Limit
	if offset >= len(matched) {
		return []model.AuditEntry{}, meta, nil
	}
	end := min(offset+query.Limit, len(matched))
	return matched[offset:end], meta, nil
}

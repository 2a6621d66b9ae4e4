package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"auth-service/internal/event"
	"auth-service/internal/model"
	"auth-service/internal/repository"
	"auth-service/pkg/apierror"
)

func seedUsers(t *testing.T, repo *repository.MemoryUserRepository, n int) []model.User {
	t.Helper()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.User, 0, n)
	for i := range n {
		u := model.User{
			ID:        fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
			Name:      fmt.Sprintf("User %d", i),
			Email:     fmt.Sprintf("u%d@x.com", i),
			Role:      model.RoleUser,
			IsActive:  i%3 != 0,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), u))
		out = append(out, u)
	}
	return out
}

func TestUserServiceListOnlyUsersNewestFirst(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepository()
	seedUsers(t, repo, 12)
	require.NoError(t, repo.Create(context.Background(), model.User{
		ID: "admin-1", Email: "root@x.com", Role: model.RoleAdmin, IsActive: true, CreatedAt: time.Now(),
	}))

	svc := NewUserService(repo, nil)

	items, meta, err := svc.List(context.Background(), model.UserFilter{})
	require.NoError(t, err)
	require.Len(t, items, 10)
	require.Equal(t, "u11@x.com", items[0].Email)
	require.Equal(t, model.Meta{Page: 1, Limit: 10, Total: 12, TotalPages: 2}, meta)
	for _, u := range items {
		require.Equal(t, model.RoleUser, u.Role)
	}

	items, meta, err = svc.List(context.Background(), model.UserFilter{Page: 2, Limit: 500})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Equal(t, 100, meta.Limit)

	inactive := false
	items, meta, err = svc.List(context.Background(), model.UserFilter{IsActive: &inactive, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, 4, meta.Total)
	for _, u := range items {
		require.False(t, u.IsActive)
	}
}

func TestUserServiceUpdateAndConflicts(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepository()
	users := seedUsers(t, repo, 2)
	events := &recordingPublisher{}
	svc := NewUserService(repo, events)
	ctx := context.Background()

	name := "Renamed"
	email := " NEW@x.com"
	updated, err := svc.Update(ctx, users[0].ID, users[0].ID, model.UserUpdate{Name: &name, Email: &email})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "new@x.com", updated.Email)

	taken := users[1].Email
	_, err = svc.Update(ctx, users[0].ID, users[0].ID, model.UserUpdate{Email: &taken})
	require.ErrorIs(t, err, model.ErrEmailExists)

	_, err = svc.Update(ctx, "admin", "missing", model.UserUpdate{Name: &name})
	require.ErrorIs(t, err, model.ErrUserNotFound)

	require.Equal(t, []event.Type{event.TypeUserUpdated}, events.types())
}

func TestUserServiceActivationAndDelete(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepository()
	users := seedUsers(t, repo, 2)
	events := &recordingPublisher{}
	svc := NewUserService(repo, events)
	ctx := context.Background()

	u, err := svc.Deactivate(ctx, "admin-1", users[1].ID)
	require.NoError(t, err)
	require.False(t, u.IsActive)

	u, err = svc.Activate(ctx, "admin-1", users[1].ID)
	require.NoError(t, err)
	require.True(t, u.IsActive)

	require.NoError(t, svc.Delete(ctx, "admin-1", users[1].ID))
	require.ErrorIs(t, svc.Delete(ctx, "admin-1", users[1].ID), model.ErrUserNotFound)

	_, err = svc.Get(ctx, users[1].ID)
	require.ErrorIs(t, err, model.ErrUserNotFound)

	require.Equal(t, []event.Type{
		event.TypeUserDeactivated,
		event.TypeUserActivated,
		event.TypeUserDeleted,
	}, events.types())
}

func TestUserServiceHidesStoreFailures(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("pool exhausted")
	store := new(repository.MockUserStore)
	store.On("FindByID", mock.Anything, "u1").Return(model.User{}, storeErr)
	store.On("Count", mock.Anything, mock.Anything).Return(0, storeErr)
	store.On("SetActive", mock.Anything, "u1", false, mock.Anything).Return(model.User{}, storeErr)

	svc := NewUserService(store, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		code string
	}{
		{"get", func() error { _, err := svc.Get(ctx, "u1"); return err }, "FETCH_ERROR"},
		{"list", func() error { _, _, err := svc.List(ctx, model.UserFilter{}); return err }, "FETCH_ERROR"},
		{"delete", func() error { return svc.Delete(ctx, "a", "u1") }, "DELETE_ERROR"},
		{"deactivate", func() error { _, err := svc.Deactivate(ctx, "a", "u1"); return err }, "UPDATE_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var apiErr *apierror.APIError
			require.ErrorAs(t, tc.call(), &apiErr)
			require.Equal(t, tc.code, apiErr.Code)
			require.Equal(t, 500, apiErr.HTTPStatus)
			require.NotContains(t, apiErr.Error(), "pool exhausted")
		})
	}
}

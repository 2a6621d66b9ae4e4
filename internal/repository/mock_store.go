package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"auth-service/internal/model"
)

// MockUserStore is a testify double for the credential store, used to inject
// store failures.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string, role model.Role) (model.User, error) {
	args := m.Called(ctx, email, role)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, u model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) RecordLogin(ctx context.Context, id string, at time.Time) (model.User, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, id string, update model.UserUpdate, at time.Time) (model.User, error) {
	args := m.Called(ctx, id, update, at)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) SetActive(ctx context.Context, id string, active bool, at time.Time) (model.User, error) {
	args := m.Called(ctx, id, active, at)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserStore) Count(ctx context.Context, filter model.UserFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

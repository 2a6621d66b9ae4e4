package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"auth-service/internal/event"
	"auth-service/internal/model"
	"auth-service/pkg/apierror"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// UserService covers account self-service and admin user management.
type UserService struct {
	users  UserStore
	events event.Publisher
	now    func() time.Time
}

func NewUserService(users UserStore, events event.Publisher) *UserService {
	if events == nil {
		events = event.Discard{}
	}
	return &UserService{
		users:  users,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) Get(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, s.fail(ctx, err, "FETCH_ERROR", "Failed to fetch user", "user_id", id)
	}
	return user.Public(), nil
}

// List returns role=user accounts, newest first.
func (s *UserService) List(ctx context.Context, filter model.UserFilter) ([]model.PublicUser, model.Meta, error) {
	filter.Role = model.RoleUser
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, model.Meta{}, s.fail(ctx, err, "FETCH_ERROR", "Failed to fetch users")
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, model.Meta{}, s.fail(ctx, err, "FETCH_ERROR", "Failed to fetch users")
	}

	items := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		items = append(items, u.Public())
	}

	slog.InfoContext(ctx, "users listed", "total", total, "page", filter.Page, "limit", filter.Limit)
	return items, *model.NewMeta(filter.Page, filter.Limit, total), nil
}

func (s *UserService) Update(ctx context.Context, actorID string, id string, update model.UserUpdate) (model.PublicUser, error) {
	user, err := s.users.Update(ctx, id, update, s.now())
	if err != nil {
		return model.PublicUser{}, s.fail(ctx, err, "UPDATE_ERROR", "Failed to update user", "user_id", id)
	}

	s.publish(event.TypeUserUpdated, actorID, user)
	slog.InfoContext(ctx, "user updated", "user_id", id, "actor_id", actorID,
		"name_changed", update.Name != nil, "email_changed", update.Email != nil)
	return user.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, actorID string, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return s.fail(ctx, err, "DELETE_ERROR", "Failed to delete user", "user_id", id)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return s.fail(ctx, err, "DELETE_ERROR", "Failed to delete user", "user_id", id)
	}

	s.publish(event.TypeUserDeleted, actorID, user)
	slog.InfoContext(ctx, "user deleted", "user_id", id, "actor_id", actorID)
	return nil
}

func (s *UserService) Deactivate(ctx context.Context, actorID string, id string) (model.PublicUser, error) {
	return s.setActive(ctx, actorID, id, false)
}

func (s *UserService) Activate(ctx context.Context, actorID string, id string) (model.PublicUser, error) {
	return s.setActive(ctx, actorID, id, true)
}

func (s *UserService) setActive(ctx context.Context, actorID string, id string, active bool) (model.PublicUser, error) {
	message := "Failed to deactivate user"
	eventType := event.TypeUserDeactivated
	if active {
		message = "Failed to activate user"
		eventType = event.TypeUserActivated
	}

	user, err := s.users.SetActive(ctx, id, active, s.now())
	if err != nil {
		return model.PublicUser{}, s.fail(ctx, err, "UPDATE_ERROR", message, "user_id", id)
	}

	s.publish(eventType, actorID, user)
	slog.InfoContext(ctx, "user activation changed", "user_id", id, "actor_id", actorID, "is_active", active)
	return user.Public(), nil
}

func (s *UserService) publish(t event.Type, actorID string, user model.User) {
	s.events.Publish(event.Event{
		Type:    t,
		ActorID: actorID,
		Payload: event.AccountPayload{UserID: user.ID, Email: user.Email, Role: user.Role.String()},
	})
}

// fail passes business errors through and hides everything else behind code.
func (s *UserService) fail(ctx context.Context, err error, code string, message string, attrs ...any) error {
	if errors.Is(err, model.ErrUserNotFound) || errors.Is(err, model.ErrEmailExists) {
		return err
	}

	slog.ErrorContext(ctx, message, append(attrs, "code", code, "error", err)...)
	return apierror.Internal(code, message)
}

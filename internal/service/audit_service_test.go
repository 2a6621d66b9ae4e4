package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auth-service/internal/event"
	"auth-service/internal/model"
	"auth-service/internal/repository"
	"auth-service/pkg/apierror"
)

func TestAuditServiceRecordsBusEvents(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryAuditRepository()
	svc := NewAuditService(store)
	bus := event.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := svc.Start(ctx, bus)

	bus.Publish(event.Event{
		Type:    event.TypeLoginFailed,
		Payload: event.AccountPayload{Email: "a@x.com", Role: "user"},
	})
	require.Eventually(t, func() bool {
		_, meta, err := store.Query(context.Background(), model.AuditQuery{})
		return err == nil && meta.Total == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	items, _, err := svc.Query(context.Background(), model.AuditQuery{Action: "auth.login_failed", Status: "FAILURE"})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	require.Equal(t, "failure", items[0].Status)
	require.Equal(t, "a@x.com", items[0].Actor.Email)
}

func TestEntryFromEvent(t *testing.T) {
	t.Parallel()

	entry := entryFromEvent(event.Event{
		Type:      event.TypeUserDeactivated,
		ActorID:   "admin-1",
		Timestamp: "2026-02-01T10:00:00Z",
		Payload:   event.AccountPayload{UserID: "u-9", Email: "u9@x.com", Role: "user"},
	})
	require.Equal(t, "user.deactivated", entry.Action)
	require.Equal(t, "success", entry.Status)
	require.Equal(t, "admin-1", entry.Actor.UserID)
	require.Empty(t, entry.Actor.Email)
	require.Equal(t, "user:u-9", entry.Resource)
	require.Equal(t, "2026-02-01T10:00:00Z", entry.OccurredAt)

	entry = entryFromEvent(event.Event{
		Type:    event.TypeLoginFailed,
		ActorID: "u-1",
		Payload: event.AccountPayload{UserID: "u-1", Email: "a@x.com", Role: "user", Reason: "inactive"},
	})
	require.Equal(t, "failure", entry.Status)
	require.Equal(t, "inactive", entry.Error)
	require.NotEmpty(t, entry.OccurredAt)

	entry = entryFromEvent(event.Event{Type: event.TypeLogout, Payload: "opaque"})
	require.Equal(t, "auth.logout", entry.Action)
	require.Empty(t, entry.Resource)
}

func TestAuditQueryRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	svc := NewAuditService(repository.NewMemoryAuditRepository())
	_, _, err := svc.Query(context.Background(), model.AuditQuery{Status: "maybe"})

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 400, apiErr.HTTPStatus)
}

func TestAuditStartSubscribesBeforeReturning(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryAuditRepository()
	bus := event.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := NewAuditService(store).Start(ctx, bus)

	bus.Publish(event.Event{Type: event.TypeLogout, ActorID: "u-1"})

	require.Eventually(t, func() bool {
		_, meta, err := store.Query(context.Background(), model.AuditQuery{})
		return err == nil && meta.Total == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("audit consumer did not stop")
	}
}

package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"auth-service/internal/event"
	"auth-service/internal/model"
	"auth-service/pkg/apierror"
)

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

// AuditService turns auth events into persisted audit entries.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Start subscribes before returning, so no event published afterwards is
// missed. The returned channel closes once the consumer has stopped.
func (s *AuditService) Start(ctx context.Context, bus event.Bus) <-chan struct{} {
	events, unsubscribe := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()
		s.consume(ctx, events)
	}()

	return done
}

func (s *AuditService) consume(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.Record(ctx, e)
		}
	}
}

// Record persists one event; store failures are logged and dropped.
func (s *AuditService) Record(ctx context.Context, e event.Event) {
	entry := entryFromEvent(e)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.Log(writeCtx, entry); err != nil {
		slog.ErrorContext(ctx, "persist audit entry", "action", entry.Action, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if status := strings.ToLower(strings.TrimSpace(query.Status)); status != "" && status != "success" && status != "failure" {
		return nil, model.Meta{}, apierror.New("BAD_REQUEST", "invalid 'status' filter", query.Status, http.StatusBadRequest)
	}

	items, meta, err := s.store.Query(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "query audit entries", "error", err)
		return nil, model.Meta{}, apierror.Internal("FETCH_ERROR", "Failed to fetch audit entries")
	}
	return items, meta, nil
}

func entryFromEvent(e event.Event) model.AuditEntry {
	entry := model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: e.Timestamp,
		Actor:      model.AuditActor{UserID: e.ActorID},
		Status:     "success",
	}
	if entry.OccurredAt == "" {
		entry.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	payload, ok := e.Payload.(event.AccountPayload)
	if !ok {
		return entry
	}

	if payload.UserID != "" {
		entry.Resource = "user:" + payload.UserID
	}

	switch e.Type {
	case event.TypeLoginFailed, event.TypeAdminSignupBlocked:
		entry.Status = "failure"
		entry.Actor.Email = payload.Email
		entry.Actor.Role = payload.Role
		entry.Error = payload.Reason
	case event.TypeUserRegistered, event.TypeAdminRegistered, event.TypeLoginSucceeded, event.TypeLogout:
		entry.Actor.Email = payload.Email
		entry.Actor.Role = payload.Role
	}

	return entry
}

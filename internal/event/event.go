package event

type Type string

const (
	TypeUserRegistered     Type = "user.registered"
	TypeAdminRegistered    Type = "admin.registered"
	TypeLoginSucceeded     Type = "auth.login_succeeded"
	TypeLoginFailed        Type = "auth.login_failed"
	TypeLogout             Type = "auth.logout"
	TypeUserUpdated        Type = "user.updated"
	TypeUserDeleted        Type = "user.deleted"
	TypeUserActivated      Type = "user.activated"
	TypeUserDeactivated    Type = "user.deactivated"
	TypeAdminSignupBlocked Type = "admin.signup_blocked"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

// AccountPayload describes the account an event is about.
type AccountPayload struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Publisher interface {
	Publish(e Event)
}

type Bus interface {
	Publisher
	Subscribe() (<-chan Event, func())
}

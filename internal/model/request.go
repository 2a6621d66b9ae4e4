package model

type UserSignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,bcrypt"`
}

func (r *UserSignupRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type AdminSignupRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,bcrypt"`
	AdminSecret string `json:"adminSecret" validate:"required"`
}

func (r *AdminSignupRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// UpdateUserRequest only admits name and email; every other key is rejected.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=2,max=100"`
	Email *string `json:"email" validate:"omitnil,email"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Email != nil {
		normalized := NormalizeEmail(*r.Email)
		r.Email = &normalized
	}
}

func (r UpdateUserRequest) ToUpdate() UserUpdate {
	return UserUpdate{Name: r.Name, Email: r.Email}
}

type AuditQuery struct {
	Action  string
	ActorID string
	Status  string
	Page    int
	Limit   int
}

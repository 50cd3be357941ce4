package domain

import "time"

// Role — уровень доступа пользователя маркетплейса.
type Role string

const (
	RoleUser      Role = "USER"
	RoleDeveloper Role = "DEVELOPER"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDeveloper, RoleAdmin:
		return true
	}
	return false
}

// User — доменная сущность пользователя.
// PasswordHash is populated only by the relational backend; the federation
// backend stores no credentials.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	MoneroAddress string    `json:"moneroAddress,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewUser — входные данные регистрации.
type NewUser struct {
	Email         string
	Username      string
	PasswordHash  string
	Role          Role
	MoneroAddress string
}

// UserUpdate — частичное обновление профиля; nil-поля не трогаются.
type UserUpdate struct {
	MoneroAddress *string
	Role          *Role
}

// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	PanelUserID  *int64     `db:"panel_user_id"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

// Summary is a User row decorated with the aggregate counts shown on the
// admin user list.
type Summary struct {
	User
	OrderCount  int `db:"order_count"`
	ServerCount int `db:"server_count"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

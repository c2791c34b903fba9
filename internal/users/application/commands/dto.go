package commands

import (
	"time"

	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// UserDTO is the wire shape of a user returned by write operations.
type UserDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	UserType  string    `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToDTO maps a user aggregate to its wire shape.
func ToDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		UserType:  string(u.UserType),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

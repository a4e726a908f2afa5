package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID   `json:"id"`
	Username   string      `json:"username"`
	IsPrivate  bool        `json:"isPrivate"`
	Following  []uuid.UUID `json:"following"`
	Followers  []uuid.UUID `json:"followers"`
	Blocked    []uuid.UUID `json:"blocked"`
	BlockedBy  []uuid.UUID `json:"-"`
	SavedPosts []uuid.UUID `json:"savedPosts"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// FollowsID reports whether the user follows the given account.
func (u *User) FollowsID(id uuid.UUID) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

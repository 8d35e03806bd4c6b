package models

import "time"

// User roles within the portal.
const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
)

// User is an account in the portal. The messaging layer only ever reads the
// display fields; everything else belongs to auth.
type User struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Avatar         string    `json:"avatar" db:"avatar"`
	Role           string    `json:"role" db:"role"`
	HashedPassword string    `json:"-" db:"password_hash"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Details returns the display snapshot recorded on conversations this user
// participates in.
func (u *User) Details() ParticipantDetails {
	return ParticipantDetails{
		Name:   u.Name,
		Avatar: u.Avatar,
		Email:  u.Email,
	}
}

package identity

import "time"

// Identity represents an authenticated principal. Role is empty until the
// first session establishes a profile; afterwards it is "admin" or "user".
type Identity struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasProfile reports whether bootstrap already assigned this identity a role.
func (i Identity) HasProfile() bool {
	return i.Role != ""
}

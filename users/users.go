// Package users defines the operator account record as the backend serializes
// it. The record is cached next to the credential so the console can render
// identity after a restart without a network round trip.
package users

import "time"

// RoleType is the back-office role attached to an operator account. Role
// checks are plain string comparisons performed by callers; the backend is
// the authority on what each role may actually do.
type RoleType string

const (
	RoleAdmin      RoleType = "admin"      // Full administrative access
	RoleSupport    RoleType = "support"    // Customer and subscription handling
	RoleAccountant RoleType = "accountant" // Billing and payment handling
)

type User struct {
	ID         int64     `json:"id,omitempty"`          // Backend identifier
	Username   string    `json:"username,omitempty"`    // Unique login name
	Email      string    `json:"email,omitempty"`       // Contact address
	FirstName  string    `json:"first_name,omitempty"`  // First name of the operator
	LastName   string    `json:"last_name,omitempty"`   // Last name of the operator
	Role       RoleType  `json:"role,omitempty"`        // Back-office role
	IsActive   bool      `json:"is_active,omitempty"`   // Deactivated accounts cannot log in
	DateJoined time.Time `json:"date_joined,omitempty"` // Date and time the account was created
	LastLogin  time.Time `json:"last_login,omitempty"`  // Last successful login
}

// FullName returns "First Last", falling back to the username when the
// profile carries no name.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// IsAdmin returns true if the account carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ProfilePatch is a partial profile update. Nil fields are omitted from the
// request body and left untouched by the backend.
type ProfilePatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// IsZero returns true if the patch would change nothing.
func (p ProfilePatch) IsZero() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil
}

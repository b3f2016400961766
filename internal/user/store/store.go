// Package store is a minimal user directory: enough identity to route
// notifications (admin routing, broadcast-to-all) without owning
// authentication, which is an external concern.
package store

import "time"

// Role separates reviewers from submitters.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// User is a directory entry. Only approved users receive broadcasts.
type User struct {
	ID        int64
	Name      string
	Email     string
	Role      Role
	Approved  bool
	CreatedAt time.Time
}

// Package model holds the domain types shared across ports and adapters.
package model

import "time"

// User is the identity anchor that owns credentials and tasks. Users are
// created explicitly via the API; sync never auto-creates them.
type User struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

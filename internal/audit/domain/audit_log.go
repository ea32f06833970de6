// Package domain holds the audit trail record.
package domain

import "time"

// AuditLog is one entry of the audit trail. Entries are append-only.
type AuditLog struct {
	ID string
	// UserID is the acting user; empty for anonymous failures such as a login with an unknown username.
	UserID string
	// Action is a verb such as login_success or role_assigned.
	Action   string
	Resource string
	// IP is the client address as seen by the HTTP edge.
	IP string
	// Metadata is a short free-form "key=value" string.
	Metadata  string
	CreatedAt time.Time
}

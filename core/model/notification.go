package model

import "time"

// Role identifies the audience of a notification.
type Role int

const (
	RoleResident Role = iota
	RoleDispatcher
	RoleRecycler
)

// String returns a human-readable representation of the role.
func (r Role) String() string {
	switch r {
	case RoleResident:
		return "resident"
	case RoleDispatcher:
		return "dispatcher"
	case RoleRecycler:
		return "recycler"
	default:
		return "unknown"
	}
}

// ParseRole maps the wire representation back to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "resident":
		return RoleResident, true
	case "dispatcher":
		return RoleDispatcher, true
	case "recycler":
		return RoleRecycler, true
	default:
		return 0, false
	}
}

// Notification is a per-role notification record produced by the fan-out. At
// most one unread instance exists per (event, role) at creation time.
type Notification struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ForRole   Role              `json:"for_role"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Read      bool              `json:"read"`
	Archived  bool              `json:"archived"`
	CreatedAt time.Time         `json:"created_at"`
}

// CloneMetadata returns a copy of the metadata map.
func (n Notification) CloneMetadata() map[string]string {
	if n.Metadata == nil {
		return nil
	}
	cp := make(map[string]string, len(n.Metadata))
	for k, v := range n.Metadata {
		cp[k] = v
	}
	return cp
}

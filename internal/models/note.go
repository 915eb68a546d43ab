// Package models defines the domain types for scribe.
package models

import "time"

// Note is a rich-text note owned by exactly one user.
type Note struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	OwnerID   string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// OwnedBy reports whether subject is the note's owner.
func (n *Note) OwnedBy(subject string) bool {
	return subject != "" && n.OwnerID == subject
}

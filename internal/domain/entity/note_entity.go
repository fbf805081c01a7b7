package entity

import "time"

// Note belongs to exactly one user. UserID is assigned once at creation and no
// repository operation rewrites it.
type Note struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UserID      string    `json:"user"`
	Pinned      bool      `json:"pinned"`
	CreatedAt   time.Time `json:"createdOn"`
}

// OwnedBy reports whether the note belongs to userID.
func (n *Note) OwnedBy(userID string) bool {
	return n != nil && userID != "" && n.UserID == userID
}

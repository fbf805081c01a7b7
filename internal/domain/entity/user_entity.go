package entity

import (
	"time"
)

// User is the account aggregate. Password holds the bcrypt hash, never the plaintext,
// and is kept out of JSON.
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdOn"`
}

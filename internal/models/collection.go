package models

import "time"

// Collection is a named folder of entries owned by one user.
type Collection struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CollectionRef is the slice of a collection embedded in entry views.
type CollectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

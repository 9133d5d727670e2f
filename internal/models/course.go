package models

import "github.com/google/uuid"

// Category groups catalog courses.
type Category struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Courses []Course  `json:"courses"`
}

// Course is a catalog course a user can subscribe to.
type Course struct {
	ID         uuid.UUID  `json:"id"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Title      string     `json:"title"`
}

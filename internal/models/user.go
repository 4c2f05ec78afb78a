// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import "time"

// User is an author, commenter or reader. Users own posts, categories,
// tags, comments, likes and (optionally) views.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

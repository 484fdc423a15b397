// Package models defines server-side data models persisted in the database.
package models

import "time"

// Post is the generated content for one account and one calendar day.
// At most one Post exists per (AccountID, Date).
type Post struct {
	ID          string
	AccountID   string
	Date        time.Time
	Content     string
	ImageURL    string
	Published   bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stats summarises an account's posts.
type Stats struct {
	Total     int64
	Published int64
	Scheduled int64
}

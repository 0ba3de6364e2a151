package models

import "time"

// Client represents an end client whose posts are reviewed in a session.
type Client struct {
	ID        string
	Name      string
	Company   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

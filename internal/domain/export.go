package domain

import (
	"context"
	"time"
)

// RosterExport describes an uploaded member roster
type RosterExport struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Rows        int       `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// FileRepository stores generated files such as roster exports
type FileRepository interface {
	// Upload stores data under key and returns its access URL
	Upload(ctx context.Context, data []byte, key string, contentType string) (string, error)
}

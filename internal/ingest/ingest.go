package ingest

import (
	"time"
)

// Run summarises one import.
type Run struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Status     string            `json:"status"` // COMPLETED, PARTIAL, CANCELLED
	Read       int               `json:"read"`
	Created    int               `json:"created"`
	Duplicates int               `json:"duplicates"`
	Priced     int               `json:"priced"`
	Failed     map[string]string `json:"failed,omitempty"`
}

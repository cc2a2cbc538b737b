package models

import "time"

// PendingUpload is the single file staged for the next upload attempt.
// Staging a new file replaces it; a successful upload consumes it; a failed
// upload leaves it in place so the user can retry without reselecting.
type PendingUpload struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	StagedAt time.Time `json:"stagedAt"`
}

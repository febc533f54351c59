package manifest

import "time"

// Upload status constants.
const (
	StatusUploaded = "uploaded"
	StatusFailed   = "failed"
)

// Upload is the recorded outcome of a single asset upload.
type Upload struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"index;not null" json:"run_id"`
	Bucket     string    `gorm:"not null" json:"bucket"`
	Key        string    `gorm:"index;not null" json:"key"`
	ObjectURL  string    `json:"object_url,omitempty"`
	PublicURL  string    `json:"public_url,omitempty"`
	Status     string    `gorm:"not null" json:"status"`
	Error      string    `json:"error,omitempty"`
	Batch      int       `json:"batch"`
	Bytes      int64     `json:"bytes"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

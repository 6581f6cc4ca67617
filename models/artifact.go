package models

import "time"

// Artifact records a file written to the upload or output folder so the cleaner can expire it.
type Artifact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"` // filesystem path under uploads/ or outputs/
	Filename  string    `gorm:"index;size:255;not null" json:"filename"`
	Kind      string    `gorm:"size:32;not null" json:"kind"` // upload | output
	SizeBytes int64     `gorm:"not null;default:0" json:"size_bytes"`
	ExpireAt  time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Artifact kinds.
const (
	ArtifactUpload = "upload"
	ArtifactOutput = "output"
)

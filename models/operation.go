package models

import "time"

// Operation stores one processing request handled by the /api endpoints.
type Operation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Kind       string    `gorm:"index;size:32;not null" json:"kind"`
	Success    bool      `gorm:"not null;default:false" json:"success"`
	ErrorCode  string    `gorm:"size:64" json:"error_code,omitempty"`
	FileCount  int       `gorm:"not null;default:0" json:"file_count"`
	DurationMS int64     `gorm:"not null;default:0" json:"duration_ms"`
	ClientIP   string    `gorm:"size:64" json:"-"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

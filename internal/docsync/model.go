package docsync

import (
	"encoding/json"
	"time"
)

// Revision is one uploaded document, append-only. IdempotencyKey makes a
// retried upload land once per user.
type Revision struct {
	ID             uint64          `gorm:"primaryKey" json:"id"`
	UserID         uint64          `gorm:"index;not null" json:"userId"`
	Payload        json.RawMessage `gorm:"type:jsonb;not null" json:"-"`
	Size           int             `gorm:"not null;default:0" json:"size"`
	LocalTimestamp string          `gorm:"type:text;not null;default:''" json:"localTimestamp"`
	DocUpdatedAt   *time.Time      `gorm:"type:timestamptz" json:"docUpdatedAt,omitempty"`
	IdempotencyKey *string         `gorm:"type:text" json:"-"`
	CreatedAt      time.Time       `gorm:"not null" json:"createdAt"`
}

func (Revision) TableName() string { return "document_revisions" }

// Document is the current copy per user. Version is the id of the revision
// it was taken from.
type Document struct {
	UserID       uint64          `gorm:"primaryKey;autoIncrement:false"`
	Payload      json.RawMessage `gorm:"type:jsonb;not null"`
	Version      uint64          `gorm:"not null;default:0"`
	DocUpdatedAt *time.Time      `gorm:"type:timestamptz"`
	UpdatedAt    time.Time       `gorm:"index;not null"`
}

func (Document) TableName() string { return "document_projections" }

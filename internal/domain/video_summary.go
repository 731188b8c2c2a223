package domain

import (
	"time"

	"github.com/google/uuid"
)

// VideoSummary is upserted by the Content Enricher; it is keyed one-to-one
// with its video rather than given its own surrogate id.
type VideoSummary struct {
	VideoID uuid.UUID `gorm:"column:video_id;type:uuid;primaryKey" json:"video_id"`
	Video   *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`

	ShortSummary string `gorm:"column:short_summary;not null" json:"short_summary"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VideoSummary) TableName() string { return "video_summary" }

package domain

import (
	"time"

	"github.com/google/uuid"
)

// WatchHistory is keyed by (user, video); it has no soft-delete of its own
// since it is pruned outright when the user or video it references is
// removed.
type WatchHistory struct {
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	User    *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	VideoID uuid.UUID `gorm:"column:video_id;type:uuid;primaryKey" json:"video_id"`
	Video   *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`

	LastPositionSeconds float64   `gorm:"column:last_position_seconds;not null;default:0" json:"last_position_seconds"`
	LastWatchedAt       time.Time `gorm:"column:last_watched_at;not null;default:now()" json:"last_watched_at"`
}

func (WatchHistory) TableName() string { return "watch_history" }

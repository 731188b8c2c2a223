package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VideoAssetKindHLS       = "hls"
	VideoAssetKindThumbnail = "thumbnail"

	VideoAssetLabel720p   = "720p"
	VideoAssetLabel480p   = "480p"
	VideoAssetLabelPoster = "poster"
)

// VideoAsset records one durable artifact produced by the Media Processor
// for a video: an HLS rendition playlist or the poster thumbnail. The
// unique (video, kind, label) constraint lets a retried pipeline step
// upsert instead of duplicating rows.
type VideoAsset struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VideoID uuid.UUID `gorm:"column:video_id;type:uuid;not null;uniqueIndex:idx_video_asset_unique" json:"video_id"`
	Video   *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`

	Kind       string `gorm:"column:kind;not null;uniqueIndex:idx_video_asset_unique" json:"kind"`
	Label      string `gorm:"column:label;not null;uniqueIndex:idx_video_asset_unique" json:"label"`
	StorageKey string `gorm:"column:storage_key;not null" json:"storage_key"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoAsset) TableName() string { return "video_asset" }

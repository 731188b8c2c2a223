package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	VideoStatusUploaded  = "uploaded"
	VideoStatusProcessing = "processing"
	VideoStatusReady      = "ready"
	VideoStatusFailed     = "failed"
)

type Video struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Title            string `gorm:"column:title;not null" json:"title"`
	Description      string `gorm:"column:description" json:"description"`
	OriginalFilename string `gorm:"column:original_filename;not null" json:"original_filename"`
	StorageKeyRaw    string `gorm:"column:storage_key_raw;not null" json:"storage_key_raw"`

	Status string `gorm:"column:status;not null;default:'uploaded';index" json:"status"`

	DurationSeconds float64 `gorm:"column:duration_seconds" json:"duration_seconds"`
	ContentType     string  `gorm:"column:content_type" json:"content_type"`
	Language        string  `gorm:"column:language" json:"language"`

	Probe    datatypes.JSON `gorm:"column:probe;type:jsonb" json:"probe,omitempty"`
	Checksum string         `gorm:"column:checksum" json:"checksum,omitempty"`
	Error    string         `gorm:"column:error" json:"error,omitempty"`

	NotifiedAt *time.Time `gorm:"column:notified_at" json:"notified_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Video) TableName() string { return "video" }

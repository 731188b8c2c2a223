package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Topic, Entity, and Tag are shared catalog items created on first
// reference by the Content Enricher. CanonicalName is the
// lowercase/whitespace-trimmed form uniqueness is enforced on; Name keeps
// the first-seen display casing.

type Topic struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	CanonicalName string    `gorm:"column:canonical_name;not null;uniqueIndex" json:"canonical_name"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Topic) TableName() string { return "topic" }

type Entity struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	CanonicalName string    `gorm:"column:canonical_name;not null;uniqueIndex" json:"canonical_name"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Entity) TableName() string { return "entity" }

type Tag struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	CanonicalName string    `gorm:"column:canonical_name;not null;uniqueIndex" json:"canonical_name"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tag) TableName() string { return "tag" }

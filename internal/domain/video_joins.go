package domain

import (
	"github.com/google/uuid"
)

// VideoTopic, VideoEntity, and VideoTag are per-video join rows carrying a
// weight in [0,1] (prominence / importance / weight respectively). The
// Content Enricher upserts the full set on each enrichment run and deletes
// rows for catalog items that dropped out of the new extraction.

type VideoTopic struct {
	VideoID uuid.UUID `gorm:"column:video_id;type:uuid;primaryKey" json:"video_id"`
	Video   *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`
	TopicID uuid.UUID `gorm:"column:topic_id;type:uuid;primaryKey" json:"topic_id"`
	Topic   *Topic    `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`

	Weight float64 `gorm:"column:weight;not null" json:"weight"`
}

func (VideoTopic) TableName() string { return "video_topic" }

type VideoEntity struct {
	VideoID  uuid.UUID `gorm:"column:video_id;type:uuid;primaryKey" json:"video_id"`
	Video    *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`
	EntityID uuid.UUID `gorm:"column:entity_id;type:uuid;primaryKey" json:"entity_id"`
	Entity   *Entity   `gorm:"constraint:OnDelete:CASCADE;foreignKey:EntityID;references:ID" json:"entity,omitempty"`

	Weight float64 `gorm:"column:weight;not null" json:"weight"`
}

func (VideoEntity) TableName() string { return "video_entity" }

type VideoTag struct {
	VideoID uuid.UUID `gorm:"column:video_id;type:uuid;primaryKey" json:"video_id"`
	Video   *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`
	TagID   uuid.UUID `gorm:"column:tag_id;type:uuid;primaryKey" json:"tag_id"`
	Tag     *Tag      `gorm:"constraint:OnDelete:CASCADE;foreignKey:TagID;references:ID" json:"tag,omitempty"`

	Weight float64 `gorm:"column:weight;not null" json:"weight"`
}

func (VideoTag) TableName() string { return "video_tag" }

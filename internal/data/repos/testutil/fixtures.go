package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/streemm-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:    uuid.New(),
		Email: email,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) *types.Video {
	tb.Helper()
	v := &types.Video{
		ID:               uuid.New(),
		UserID:           userID,
		Title:            "video",
		OriginalFilename: "video.mp4",
		StorageKeyRaw:    "raw/" + userID.String() + "/test.mp4",
		Status:           status,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

func SeedVideoAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, videoID uuid.UUID, kind, label, storageKey string) *types.VideoAsset {
	tb.Helper()
	a := &types.VideoAsset{
		ID:         uuid.New(),
		VideoID:    videoID,
		Kind:       kind,
		Label:      label,
		StorageKey: storageKey,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed video asset: %v", err)
	}
	return a
}

func SeedWatchHistory(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID, position float64, watchedAt time.Time) *types.WatchHistory {
	tb.Helper()
	h := &types.WatchHistory{
		UserID:              userID,
		VideoID:             videoID,
		LastPositionSeconds: position,
		LastWatchedAt:       watchedAt,
	}
	if err := tx.WithContext(ctx).Create(h).Error; err != nil {
		tb.Fatalf("seed watch history: %v", err)
	}
	return h
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Topic {
	tb.Helper()
	t := &types.Topic{
		ID:            uuid.New(),
		Name:          name,
		CanonicalName: name,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

func SeedEntity(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Entity {
	tb.Helper()
	e := &types.Entity{
		ID:            uuid.New(),
		Name:          name,
		CanonicalName: name,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entity: %v", err)
	}
	return e
}

func SeedTag(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Tag {
	tb.Helper()
	g := &types.Tag{
		ID:            uuid.New(),
		Name:          name,
		CanonicalName: name,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return g
}

func SeedVideoTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, videoID, topicID uuid.UUID, weight float64) *types.VideoTopic {
	tb.Helper()
	vt := &types.VideoTopic{VideoID: videoID, TopicID: topicID, Weight: weight}
	if err := tx.WithContext(ctx).Create(vt).Error; err != nil {
		tb.Fatalf("seed video topic: %v", err)
	}
	return vt
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

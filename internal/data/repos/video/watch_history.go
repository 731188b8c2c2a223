package video

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

type WatchHistoryRepo interface {
	Upsert(dbc dbctx.Context, userID, videoID uuid.UUID, positionSeconds float64, watchedAt time.Time) error
	ListRecentByUserID(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.WatchHistory, error)
	DeleteByVideoID(dbc dbctx.Context, videoID uuid.UUID) error
}

type watchHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWatchHistoryRepo(db *gorm.DB, baseLog *logger.Logger) WatchHistoryRepo {
	return &watchHistoryRepo{db: db, log: baseLog.With("repo", "WatchHistoryRepo")}
}

func (r *watchHistoryRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// Upsert advances last_watched_at monotonically: a stale heartbeat that
// arrives out of order never rewinds the timestamp already stored.
func (r *watchHistoryRepo) Upsert(dbc dbctx.Context, userID, videoID uuid.UUID, positionSeconds float64, watchedAt time.Time) error {
	if positionSeconds < 0 {
		positionSeconds = 0
	}
	h := &types.WatchHistory{
		UserID:              userID,
		VideoID:             videoID,
		LastPositionSeconds: positionSeconds,
		LastWatchedAt:       watchedAt,
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_position_seconds": gorm.Expr("EXCLUDED.last_position_seconds"),
				"last_watched_at":       gorm.Expr("GREATEST(watch_history.last_watched_at, EXCLUDED.last_watched_at)"),
			}),
		}).
		Create(h).Error
}

func (r *watchHistoryRepo) ListRecentByUserID(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.WatchHistory, error) {
	q := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("last_watched_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.WatchHistory
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *watchHistoryRepo) DeleteByVideoID(dbc dbctx.Context, videoID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Where("video_id = ?", videoID).Delete(&types.WatchHistory{}).Error
}

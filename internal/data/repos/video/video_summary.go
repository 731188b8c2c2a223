package video

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

type VideoSummaryRepo interface {
	Upsert(dbc dbctx.Context, videoID uuid.UUID, shortSummary string) error
	GetByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*types.VideoSummary, error)
}

type videoSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoSummaryRepo(db *gorm.DB, baseLog *logger.Logger) VideoSummaryRepo {
	return &videoSummaryRepo{db: db, log: baseLog.With("repo", "VideoSummaryRepo")}
}

func (r *videoSummaryRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *videoSummaryRepo) Upsert(dbc dbctx.Context, videoID uuid.UUID, shortSummary string) error {
	s := &types.VideoSummary{VideoID: videoID, ShortSummary: shortSummary}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"short_summary", "updated_at"}),
		}).
		Create(s).Error
}

func (r *videoSummaryRepo) GetByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*types.VideoSummary, error) {
	var s types.VideoSummary
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("video_id = ?", videoID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

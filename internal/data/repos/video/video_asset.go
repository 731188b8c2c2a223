package video

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

type VideoAssetRepo interface {
	Upsert(dbc dbctx.Context, a *types.VideoAsset) (*types.VideoAsset, error)
	ListByVideoID(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoAsset, error)
	GetByVideoKindLabel(dbc dbctx.Context, videoID uuid.UUID, kind, label string) (*types.VideoAsset, error)
	FullDeleteByVideoID(dbc dbctx.Context, videoID uuid.UUID) error
}

type videoAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoAssetRepo(db *gorm.DB, baseLog *logger.Logger) VideoAssetRepo {
	return &videoAssetRepo{db: db, log: baseLog.With("repo", "VideoAssetRepo")}
}

func (r *videoAssetRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// Upsert is keyed on the (video_id, kind, label) unique index so a retried
// pipeline step re-running the same stage overwrites the storage_key
// instead of duplicating the row.
func (r *videoAssetRepo) Upsert(dbc dbctx.Context, a *types.VideoAsset) (*types.VideoAsset, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "kind"}, {Name: "label"}},
			DoUpdates: clause.AssignmentColumns([]string{"storage_key", "updated_at"}),
		}).
		Create(a).Error
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *videoAssetRepo) ListByVideoID(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoAsset, error) {
	var out []*types.VideoAsset
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("video_id = ?", videoID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoAssetRepo) GetByVideoKindLabel(dbc dbctx.Context, videoID uuid.UUID, kind, label string) (*types.VideoAsset, error) {
	var a types.VideoAsset
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("video_id = ? AND kind = ? AND label = ?", videoID, kind, label).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *videoAssetRepo) FullDeleteByVideoID(dbc dbctx.Context, videoID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("video_id = ?", videoID).
		Delete(&types.VideoAsset{}).Error
}

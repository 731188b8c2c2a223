package video

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

type VideoRepo interface {
	Create(dbc dbctx.Context, v *types.Video) (*types.Video, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Video, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Video, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Video, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Video, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string, errMsg string) error
	UpdateProbe(dbc dbctx.Context, id uuid.UUID, probe datatypes.JSON, durationSeconds float64) error
	UpdateMetadata(dbc dbctx.Context, id uuid.UUID, contentType, language string) error
	MarkNotified(dbc dbctx.Context, id uuid.UUID) (bool, error)
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *videoRepo) Create(dbc dbctx.Context, v *types.Video) (*types.Video, error) {
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *videoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Video, error) {
	var v types.Video
	if err := r.tx(dbc).WithContext(dbc.Ctx).Preload("User").Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *videoRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Video, error) {
	if len(ids) == 0 {
		return []*types.Video{}, nil
	}
	var out []*types.Video
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Video, error) {
	var out []*types.Video
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Video, error) {
	q := r.tx(dbc).WithContext(dbc.Ctx).Where("status = ?", status).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Video
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus is the orchestrator's sole write path to videos.status,
// per spec.md §7's propagation policy ("The only writer to videos.status
// is the orchestrator").
func (r *videoRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string, errMsg string) error {
	updates := map[string]any{"status": status}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateProbe persists ffprobe's raw output and the derived duration, per
// spec.md §4.4 step 5.
func (r *videoRepo) UpdateProbe(dbc dbctx.Context, id uuid.UUID, probe datatypes.JSON, durationSeconds float64) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(map[string]any{"probe": probe, "duration_seconds": durationSeconds}).Error
}

// UpdateMetadata sets content_type and/or language when the Content
// Enricher produced them; blank values are left untouched rather than
// overwriting a prior run's value with an empty string.
func (r *videoRepo) UpdateMetadata(dbc dbctx.Context, id uuid.UUID, contentType, language string) error {
	updates := map[string]any{}
	if contentType != "" {
		updates["content_type"] = contentType
	}
	if language != "" {
		updates["language"] = language
	}
	if len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkNotified sets notified_at only if it is currently null, satisfying
// the "set at most once" invariant at the row-update layer: the WHERE
// clause makes the update a no-op (RowsAffected == 0) on a second call.
func (r *videoRepo) MarkNotified(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Video{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", gorm.Expr("now()"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *videoRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Video{}).Error
}

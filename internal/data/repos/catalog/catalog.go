package catalog

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

// CatalogRepo owns the shared Topic/Entity/Tag catalog: get-or-create by
// canonical name (lowercase, whitespace-trimmed) and the per-video join
// rows that carry a clamped [0,1] weight. Catalog rows may race between
// concurrently enriched videos; GetOrCreate resolves the race with
// INSERT ... ON CONFLICT DO NOTHING followed by a re-read, rather than
// retrying on a unique-violation error, which is equivalent but avoids
// parsing driver-specific error codes.
type CatalogRepo interface {
	GetOrCreateTopic(dbc dbctx.Context, name string) (*types.Topic, error)
	GetOrCreateEntity(dbc dbctx.Context, name string) (*types.Entity, error)
	GetOrCreateTag(dbc dbctx.Context, name string) (*types.Tag, error)

	ReplaceVideoTopics(dbc dbctx.Context, videoID uuid.UUID, weighted map[uuid.UUID]float64) error
	ReplaceVideoEntities(dbc dbctx.Context, videoID uuid.UUID, weighted map[uuid.UUID]float64) error
	ReplaceVideoTags(dbc dbctx.Context, videoID uuid.UUID, weighted map[uuid.UUID]float64) error

	ListVideoTopics(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoTopic, error)
	ListVideoEntities(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoEntity, error)
	ListVideoTags(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoTag, error)

	DeleteVideoJoins(dbc dbctx.Context, videoID uuid.UUID) error
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	return &catalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

func (r *catalogRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// CanonicalName lowercases and trims whitespace per spec.md §3's invariant;
// exported so the Content Enricher can compute it before clamping weights.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ClampWeight clamps to [0,1] and rounds to 3-digit fixed precision, per
// spec.md §3's storage invariant.
func ClampWeight(w float64) float64 {
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	return float64(int(w*1000+0.5)) / 1000
}

func (r *catalogRepo) GetOrCreateTopic(dbc dbctx.Context, name string) (*types.Topic, error) {
	canon := CanonicalName(name)
	if canon == "" {
		return nil, gorm.ErrRecordNotFound
	}
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	row := &types.Topic{ID: uuid.New(), Name: strings.TrimSpace(name), CanonicalName: canon}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "canonical_name"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, err
	}
	var out types.Topic
	if err := tx.Where("canonical_name = ?", canon).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *catalogRepo) GetOrCreateEntity(dbc dbctx.Context, name string) (*types.Entity, error) {
	canon := CanonicalName(name)
	if canon == "" {
		return nil, gorm.ErrRecordNotFound
	}
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	row := &types.Entity{ID: uuid.New(), Name: strings.TrimSpace(name), CanonicalName: canon}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "canonical_name"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, err
	}
	var out types.Entity
	if err := tx.Where("canonical_name = ?", canon).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *catalogRepo) GetOrCreateTag(dbc dbctx.Context, name string) (*types.Tag, error) {
	canon := CanonicalName(name)
	if canon == "" {
		return nil, gorm.ErrRecordNotFound
	}
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	row := &types.Tag{ID: uuid.New(), Name: strings.TrimSpace(name), CanonicalName: canon}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "canonical_name"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, err
	}
	var out types.Tag
	if err := tx.Where("canonical_name = ?", canon).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceVideoTopics upserts the given (topic -> weight) set for videoID and
// deletes any existing join row not present in the new set, per spec.md
// §3's "rows not in new set are deleted for that video" invariant.
func (r *catalogRepo) ReplaceVideoTopics(dbc dbctx.Context, videoID uuid.UUID, weighted map[uuid.UUID]float64) error {
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	keep := make([]uuid.UUID, 0, len(weighted))
	for topicID, w := range weighted {
		keep = append(keep, topicID)
		row := &types.VideoTopic{VideoID: videoID, TopicID: topicID, Weight: ClampWeight(w)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "topic_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight"}),
		}).Create(row).Error; err != nil {
			return err
		}
	}
	q := tx.Where("video_id = ?", videoID)
	if len(keep) > 0 {
		q = q.Where("topic_id NOT IN ?", keep)
	}
	return q.Delete(&types.VideoTopic{}).Error
}

func (r *catalogRepo) ReplaceVideoEntities(dbc dbctx.Context, videoID uuid.UUID, weighted map[uuid.UUID]float64) error {
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	keep := make([]uuid.UUID, 0, len(weighted))
	for entityID, w := range weighted {
		keep = append(keep, entityID)
		row := &types.VideoEntity{VideoID: videoID, EntityID: entityID, Weight: ClampWeight(w)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight"}),
		}).Create(row).Error; err != nil {
			return err
		}
	}
	q := tx.Where("video_id = ?", videoID)
	if len(keep) > 0 {
		q = q.Where("entity_id NOT IN ?", keep)
	}
	return q.Delete(&types.VideoEntity{}).Error
}

func (r *catalogRepo) ReplaceVideoTags(dbc dbctx.Context, videoID uuid.UUID, weighted map[uuid.UUID]float64) error {
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	keep := make([]uuid.UUID, 0, len(weighted))
	for tagID, w := range weighted {
		keep = append(keep, tagID)
		row := &types.VideoTag{VideoID: videoID, TagID: tagID, Weight: ClampWeight(w)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "tag_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight"}),
		}).Create(row).Error; err != nil {
			return err
		}
	}
	q := tx.Where("video_id = ?", videoID)
	if len(keep) > 0 {
		q = q.Where("tag_id NOT IN ?", keep)
	}
	return q.Delete(&types.VideoTag{}).Error
}

func (r *catalogRepo) ListVideoTopics(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoTopic, error) {
	var out []*types.VideoTopic
	if err := r.tx(dbc).WithContext(dbc.Ctx).Preload("Topic").Where("video_id = ?", videoID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) ListVideoEntities(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoEntity, error) {
	var out []*types.VideoEntity
	if err := r.tx(dbc).WithContext(dbc.Ctx).Preload("Entity").Where("video_id = ?", videoID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) ListVideoTags(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoTag, error) {
	var out []*types.VideoTag
	if err := r.tx(dbc).WithContext(dbc.Ctx).Preload("Tag").Where("video_id = ?", videoID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) DeleteVideoJoins(dbc dbctx.Context, videoID uuid.UUID) error {
	tx := r.tx(dbc).WithContext(dbc.Ctx)
	if err := tx.Where("video_id = ?", videoID).Delete(&types.VideoTopic{}).Error; err != nil {
		return err
	}
	if err := tx.Where("video_id = ?", videoID).Delete(&types.VideoEntity{}).Error; err != nil {
		return err
	}
	return tx.Where("video_id = ?", videoID).Delete(&types.VideoTag{}).Error
}

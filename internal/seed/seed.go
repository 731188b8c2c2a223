// Package seed implements the Seed Builder spec.md §4.6 describes: turns a
// user's recent watch history into the SeedBundle the Recall & Rerank
// Engine's two lanes both consume. Grounded on the Content Enricher's
// weighted-catalog-join shape and the teacher's recency-decay scoring in
// material_kg_build.go's relevance ranking.
package seed

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/streemm-backend/internal/data/repos/catalog"
	videorepo "github.com/yungbote/streemm-backend/internal/data/repos/video"
	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

const (
	defaultDepth         = 50
	minDepth             = 1
	maxDepth             = 50
	defaultHalfLifeDays  = 21.0
	defaultMaxTopicSeeds = 5
	defaultMaxEntitySeeds = 15
	defaultMaxTagSeeds   = 20
)

// WeightedItem is one scored, renormalized catalog entry in a SeedBundle.
type WeightedItem struct {
	ID            uuid.UUID
	Name          string
	CanonicalName string
	Weight        float64
}

// HistoryItem is one recent watch, paired with its decayed recency weight.
type HistoryItem struct {
	VideoID uuid.UUID
	Video   *types.Video
	Recency float64
}

// SeedBundle is the Recall & Rerank Engine's sole input, per spec.md §4.6.
type SeedBundle struct {
	History       []HistoryItem
	Topics        []WeightedItem
	Entities      []WeightedItem
	Tags          []WeightedItem
	UserEmbedding []float32 // nil when no usable embeddings were found
}

func (b SeedBundle) Empty() bool { return len(b.History) == 0 }

// Builder assembles a SeedBundle from watch history, the shared catalog,
// and the vector index.
type Builder struct {
	log          *logger.Logger
	watchHistory videorepo.WatchHistoryRepo
	videos       videorepo.VideoRepo
	catalog      catalog.CatalogRepo
	search       *searchindex.Client

	halfLifeDays  float64
	maxTopics     int
	maxEntities   int
	maxTags       int
}

func NewBuilder(baseLog *logger.Logger, wh videorepo.WatchHistoryRepo, videos videorepo.VideoRepo, cat catalog.CatalogRepo, search *searchindex.Client) *Builder {
	return &Builder{
		log:          baseLog.With("service", "seed.Builder"),
		watchHistory: wh,
		videos:       videos,
		catalog:      cat,
		search:       search,
		halfLifeDays: envutil.GetEnvAsFloat("RECENCY_HALF_LIFE_DAYS", defaultHalfLifeDays),
		maxTopics:    envutil.GetEnvAsInt("MAX_TOPIC_SEEDS", defaultMaxTopicSeeds),
		maxEntities:  envutil.GetEnvAsInt("MAX_ENTITY_SEEDS", defaultMaxEntitySeeds),
		maxTags:      envutil.GetEnvAsInt("MAX_TAG_SEEDS", defaultMaxTagSeeds),
	}
}

func clampDepth(depth int) int {
	if depth == 0 {
		return defaultDepth
	}
	if depth < minDepth {
		return minDepth
	}
	if depth > maxDepth {
		return maxDepth
	}
	return depth
}

// recency computes 0.5^(age_days/half_life_days), per spec.md §4.6 step 2.
func recency(now, watchedAt time.Time, halfLifeDays float64) float64 {
	ageDays := now.UTC().Sub(watchedAt.UTC()).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if halfLifeDays <= 0 {
		halfLifeDays = defaultHalfLifeDays
	}
	return math.Pow(0.5, ageDays/halfLifeDays)
}

// Build runs the full §4.6 algorithm for one user.
func (b *Builder) Build(ctx context.Context, userID uuid.UUID, now time.Time, depth int) (SeedBundle, error) {
	depth = clampDepth(depth)
	dbc := dbctx.Context{Ctx: ctx}

	rows, err := b.watchHistory.ListRecentByUserID(dbc, userID, depth)
	if err != nil {
		return SeedBundle{}, err
	}
	if len(rows) == 0 {
		return SeedBundle{}, nil
	}

	videoIDs := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		videoIDs[i] = r.VideoID
	}
	videos, err := b.videos.GetByIDs(dbc, videoIDs)
	if err != nil {
		return SeedBundle{}, err
	}
	byID := make(map[uuid.UUID]*types.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	history := make([]HistoryItem, 0, len(rows))
	for _, r := range rows {
		v, ok := byID[r.VideoID]
		if !ok || v.Status != types.VideoStatusReady {
			continue
		}
		history = append(history, HistoryItem{
			VideoID: r.VideoID,
			Video:   v,
			Recency: recency(now, r.LastWatchedAt, b.halfLifeDays),
		})
	}
	if len(history) == 0 {
		return SeedBundle{}, nil
	}

	topicScores := map[uuid.UUID]*scoredItem{}
	entityScores := map[uuid.UUID]*scoredItem{}
	tagScores := map[uuid.UUID]*scoredItem{}

	for _, h := range history {
		topics, err := b.catalog.ListVideoTopics(dbc, h.VideoID)
		if err != nil {
			return SeedBundle{}, err
		}
		for _, t := range topics {
			accumulate(topicScores, t.TopicID, t.Topic.Name, t.Topic.CanonicalName, t.Weight*h.Recency)
		}

		entities, err := b.catalog.ListVideoEntities(dbc, h.VideoID)
		if err != nil {
			return SeedBundle{}, err
		}
		for _, e := range entities {
			accumulate(entityScores, e.EntityID, e.Entity.Name, e.Entity.CanonicalName, e.Weight*h.Recency)
		}

		tags, err := b.catalog.ListVideoTags(dbc, h.VideoID)
		if err != nil {
			return SeedBundle{}, err
		}
		for _, tg := range tags {
			accumulate(tagScores, tg.TagID, tg.Tag.Name, tg.Tag.CanonicalName, tg.Weight*h.Recency)
		}
	}

	bundle := SeedBundle{
		History:  history,
		Topics:   topK(topicScores, b.maxTopics),
		Entities: topK(entityScores, b.maxEntities),
		Tags:     topK(tagScores, b.maxTags),
	}

	bundle.UserEmbedding = b.buildUserEmbedding(ctx, history)
	return bundle, nil
}

type scoredItem struct {
	id            uuid.UUID
	name          string
	canonicalName string
	score         float64
}

func accumulate(m map[uuid.UUID]*scoredItem, id uuid.UUID, name, canonical string, delta float64) {
	it, ok := m[id]
	if !ok {
		it = &scoredItem{id: id, name: name, canonicalName: canonical}
		m[id] = it
	}
	it.score += delta
}

// topK keeps the k highest-scoring items (ties broken by canonical name for
// determinism) and renormalizes their scores to sum to 1, per spec.md
// §4.6 step 4.
func topK(m map[uuid.UUID]*scoredItem, k int) []WeightedItem {
	items := make([]*scoredItem, 0, len(m))
	for _, it := range m {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].canonicalName < items[j].canonicalName
	})
	if k > 0 && len(items) > k {
		items = items[:k]
	}

	total := 0.0
	for _, it := range items {
		total += it.score
	}
	out := make([]WeightedItem, len(items))
	for i, it := range items {
		w := 0.0
		if total > 0 {
			w = it.score / total
		}
		out[i] = WeightedItem{ID: it.id, Name: it.name, CanonicalName: it.canonicalName, Weight: w}
	}
	return out
}

// buildUserEmbedding computes the recency-weighted mean embedding, per
// spec.md §4.6 step 5. Returns nil (no user vector) when the index has no
// embedding for any history video.
func (b *Builder) buildUserEmbedding(ctx context.Context, history []HistoryItem) []float32 {
	if b.search == nil {
		return nil
	}
	ids := make([]string, len(history))
	recencyByID := make(map[string]float64, len(history))
	for i, h := range history {
		ids[i] = h.VideoID.String()
		recencyByID[h.VideoID.String()] = h.Recency
	}

	embeddings, err := b.search.MGetEmbeddings(ctx, ids)
	if err != nil {
		b.log.Warn("mget embeddings failed, omitting user vector", "error", err)
		return nil
	}
	if len(embeddings) == 0 {
		return nil
	}

	var dim int
	var sum []float64
	var recencySum float64
	for id, vec := range embeddings {
		if dim == 0 {
			dim = len(vec)
			sum = make([]float64, dim)
		}
		if len(vec) != dim {
			continue // disagreeing dimension: drop, per spec.md §4.6 step 5
		}
		r := recencyByID[id]
		for i, v := range vec {
			sum[i] += r * float64(v)
		}
		recencySum += r
	}
	if recencySum <= 0 || dim == 0 {
		return nil
	}

	mean := make([]float32, dim)
	var norm float64
	for i, s := range sum {
		m := s / recencySum
		mean[i] = float32(m)
		norm += m * m
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return mean
	}
	for i := range mean {
		mean[i] = float32(float64(mean[i]) / norm)
	}
	return mean
}

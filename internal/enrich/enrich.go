// Package enrich implements the Content Enricher: builds a prompt from a
// video's title, description, and transcript; extracts strict-JSON
// metadata via openai.Client.GenerateJSON; normalizes it; and fans the
// result out to the relational store, the graph mirror, and the vector
// index. Grounded on the teacher's material_kg_build.go (extraction →
// persist → graph-sync shape) and its repo-layer transactional upserts.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"gorm.io/gorm"

	"github.com/yungbote/streemm-backend/internal/data/graph"
	"github.com/yungbote/streemm-backend/internal/data/repos/catalog"
	videorepo "github.com/yungbote/streemm-backend/internal/data/repos/video"
	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/media"
	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/openai"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

// Thresholds controls the minimum weight an item needs before it is
// mirrored into the graph store, per spec.md §4.3's "only items at/above
// insert thresholds (defaults 0.50-0.75) are inserted".
type Thresholds struct {
	Topic  float64
	Entity float64
	Tag    float64
}

func ThresholdsFromEnv() Thresholds {
	return Thresholds{
		Topic:  envutil.GetEnvAsFloat("NEO4J_TOPIC_INSERT_TH", 0.50),
		Entity: envutil.GetEnvAsFloat("NEO4J_ENTITY_INSERT_TH", 0.60),
		Tag:    envutil.GetEnvAsFloat("NEO4J_TAG_INSERT_TH", 0.75),
	}
}

// Enricher owns the full enrichment fan-out for one video.
type Enricher struct {
	log *logger.Logger
	db  *gorm.DB

	ai     openai.Client
	videos videorepo.VideoRepo
	summaries videorepo.VideoSummaryRepo
	catalog catalog.CatalogRepo
	graph   *graph.VideoKG
	search  *searchindex.Client

	thresholds Thresholds

	// graphBreaker trips after a run of consecutive graph-write failures so
	// a down Neo4j doesn't eat one round-trip's timeout per enrichment call;
	// while open, mirrorGraph's writes fail fast and are logged like any
	// other best-effort graph error.
	graphBreaker *gobreaker.CircuitBreaker[any]
}

func NewEnricher(
	baseLog *logger.Logger,
	db *gorm.DB,
	ai openai.Client,
	videos videorepo.VideoRepo,
	summaries videorepo.VideoSummaryRepo,
	cat catalog.CatalogRepo,
	kg *graph.VideoKG,
	search *searchindex.Client,
) *Enricher {
	return &Enricher{
		log: baseLog.With("service", "enrich.Enricher"),
		db:  db, ai: ai, videos: videos, summaries: summaries, catalog: cat, graph: kg, search: search,
		thresholds: ThresholdsFromEnv(),
		graphBreaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "enrich.graph",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 5 },
		}),
	}
}

// Enrich runs the full Content Enricher step for one video: extract,
// normalize, persist relationally, mirror into the graph (best-effort),
// and write the vector index document. An extraction failure is returned
// as a transient error and a failure inside the relational transaction as
// a terminal one; graph and vector-index errors are logged and swallowed.
// The Job Worker's enrich stage logs any error Enrich returns and
// continues, per spec.md §4.4 step 9 ("persistence errors here are logged,
// not fatal").
func (e *Enricher) Enrich(ctx context.Context, v *types.Video, chunks []media.Chunk) error {
	raw, err := e.ai.GenerateJSON(ctx, systemPrompt, buildUserPrompt(v.Title, v.Description, chunks), extractionSchemaName, extractionSchema())
	if err != nil {
		return apierr.Transient(fmt.Errorf("generate enrichment json: %w", err))
	}
	ext := normalize(raw)

	topicRows, entityRows, tagRows, err := e.persistRelational(ctx, v.ID, ext)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("persist enrichment: %w", err))
	}

	e.mirrorGraph(ctx, v.ID, catalog.CanonicalName(v.Title), topicRows, entityRows, tagRows)
	e.writeVectorIndex(ctx, v, ext, topicRows, entityRows, tagRows)

	return nil
}

// resolvedItem is an extractedItem after its catalog row has been
// get-or-created, so downstream graph/vector steps have a stable id.
type resolvedItem struct {
	ID            uuid.UUID
	Name          string
	CanonicalName string
	Weight        float64
}

func (e *Enricher) persistRelational(ctx context.Context, videoID uuid.UUID, ext extraction) ([]resolvedItem, []resolvedItem, []resolvedItem, error) {
	var topicRows, entityRows, tagRows []resolvedItem

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if err := e.summaries.Upsert(dbc, videoID, ext.ShortSummary); err != nil {
			return fmt.Errorf("upsert video summary: %w", err)
		}

		topicWeights := map[uuid.UUID]float64{}
		for _, t := range ext.Topics {
			row, err := e.catalog.GetOrCreateTopic(dbc, t.Name)
			if err != nil {
				return fmt.Errorf("get-or-create topic %q: %w", t.Name, err)
			}
			topicWeights[row.ID] = t.Weight
			topicRows = append(topicRows, resolvedItem{ID: row.ID, Name: row.Name, CanonicalName: row.CanonicalName, Weight: t.Weight})
		}
		if err := e.catalog.ReplaceVideoTopics(dbc, videoID, topicWeights); err != nil {
			return fmt.Errorf("replace video topics: %w", err)
		}

		entityWeights := map[uuid.UUID]float64{}
		for _, en := range ext.Entities {
			row, err := e.catalog.GetOrCreateEntity(dbc, en.Name)
			if err != nil {
				return fmt.Errorf("get-or-create entity %q: %w", en.Name, err)
			}
			entityWeights[row.ID] = en.Weight
			entityRows = append(entityRows, resolvedItem{ID: row.ID, Name: row.Name, CanonicalName: row.CanonicalName, Weight: en.Weight})
		}
		if err := e.catalog.ReplaceVideoEntities(dbc, videoID, entityWeights); err != nil {
			return fmt.Errorf("replace video entities: %w", err)
		}

		tagWeights := map[uuid.UUID]float64{}
		for _, tg := range ext.Tags {
			row, err := e.catalog.GetOrCreateTag(dbc, tg.Name)
			if err != nil {
				return fmt.Errorf("get-or-create tag %q: %w", tg.Name, err)
			}
			tagWeights[row.ID] = tg.Weight
			tagRows = append(tagRows, resolvedItem{ID: row.ID, Name: row.Name, CanonicalName: row.CanonicalName, Weight: tg.Weight})
		}
		if err := e.catalog.ReplaceVideoTags(dbc, videoID, tagWeights); err != nil {
			return fmt.Errorf("replace video tags: %w", err)
		}

		if err := e.videos.UpdateMetadata(dbc, videoID, ext.ContentType, ext.Language); err != nil {
			return fmt.Errorf("update video metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return topicRows, entityRows, tagRows, nil
}

func (e *Enricher) mirrorGraph(ctx context.Context, videoID uuid.UUID, videoCanonical string, topics, entities, tags []resolvedItem) {
	if e.graph == nil {
		return
	}
	e.graph.EnsureConstraints(ctx)
	if _, err := e.graphBreaker.Execute(func() (any, error) {
		return nil, e.graph.UpsertVideo(ctx, videoID, videoCanonical)
	}); err != nil {
		e.log.Warn("graph upsert video failed (continuing)", "video_id", videoID, "error", err)
		return
	}
	if _, err := e.graphBreaker.Execute(func() (any, error) {
		return nil, e.graph.ReplaceVideoEdges(ctx, videoID, "Topic", graph.EdgeHasTopic, "prominence", aboveThreshold(topics, e.thresholds.Topic))
	}); err != nil {
		e.log.Warn("graph replace topic edges failed", "video_id", videoID, "error", err)
	}
	if _, err := e.graphBreaker.Execute(func() (any, error) {
		return nil, e.graph.ReplaceVideoEdges(ctx, videoID, "Entity", graph.EdgeHasEntity, "importance", aboveThreshold(entities, e.thresholds.Entity))
	}); err != nil {
		e.log.Warn("graph replace entity edges failed", "video_id", videoID, "error", err)
	}
	if _, err := e.graphBreaker.Execute(func() (any, error) {
		return nil, e.graph.ReplaceVideoEdges(ctx, videoID, "Tag", graph.EdgeHasTag, "weight", aboveThreshold(tags, e.thresholds.Tag))
	}); err != nil {
		e.log.Warn("graph replace tag edges failed", "video_id", videoID, "error", err)
	}
}

func aboveThreshold(items []resolvedItem, th float64) []graph.Weighted {
	out := make([]graph.Weighted, 0, len(items))
	for _, it := range items {
		if it.Weight >= th {
			out = append(out, graph.Weighted{ID: it.ID, CanonicalName: it.CanonicalName, Weight: it.Weight})
		}
	}
	return out
}

func (e *Enricher) writeVectorIndex(ctx context.Context, v *types.Video, ext extraction, topics, entities, tags []resolvedItem) {
	if e.search == nil || e.ai == nil {
		return
	}
	text := embeddingText(v.Title, v.Description, ext.ShortSummary, ext.ContentType, ext.Language,
		toExtractedItems(topics), toExtractedItems(entities), toExtractedItems(tags))

	vecs, err := e.ai.Embed(ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		e.log.Warn("embedding request failed (continuing)", "video_id", v.ID, "error", err)
		return
	}

	contentType := ext.ContentType
	if contentType == "" {
		contentType = v.ContentType
	}
	language := ext.Language
	if language == "" {
		language = v.Language
	}

	doc := searchindex.VideoDoc{
		ID:              v.ID.String(),
		Title:           v.Title,
		Description:     v.Description,
		ContentType:     contentType,
		Language:        language,
		UserID:          v.UserID.String(),
		Status:          v.Status,
		DurationSeconds: v.DurationSeconds,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
		Embedding:       vecs[0],
		Topics:          toSearchWeighted(topics),
		Entities:        toSearchWeighted(entities),
		Tags:            toSearchWeighted(tags),
	}
	if err := e.search.IndexVideo(ctx, doc); err != nil {
		e.log.Warn("index video document failed (continuing)", "video_id", v.ID, "error", err)
	}
}

func toExtractedItems(items []resolvedItem) []extractedItem {
	out := make([]extractedItem, len(items))
	for i, it := range items {
		out[i] = extractedItem{Name: it.Name, CanonicalName: it.CanonicalName, Weight: it.Weight}
	}
	return out
}

func toSearchWeighted(items []resolvedItem) []searchindex.Weighted {
	out := make([]searchindex.Weighted, len(items))
	for i, it := range items {
		out[i] = searchindex.Weighted{ID: it.ID.String(), Name: it.Name, CanonicalName: it.CanonicalName, Weight: it.Weight}
	}
	return out
}

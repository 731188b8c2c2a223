// Package recall implements the Recall & Rerank Engine spec.md §4.7
// describes: two independent candidate-generating lanes (lexical+vector
// over the Search Index Adapter, random-walk over the Graph Store
// Adapter) reconciled by quota backfill and a final MMR pass. Grounded on
// internal/media's errgroup-based concurrent-stage pattern, generalized
// from "N HLS rungs in parallel" to "2 independent recall lanes in
// parallel".
package recall

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/streemm-backend/internal/data/graph"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
	"github.com/yungbote/streemm-backend/internal/seed"
)

var recallTracer = otel.Tracer("streemm-backend/recall")

// Config holds the tunables spec.md §7 lists for the recall engine.
type Config struct {
	Target          int
	OSQuota         int
	GraphQuota      int
	MMRLambda       float64
	BM25RecallK     int
	OSCosineWeight  float64
	OSBM25Weight    float64
	GraphWalkLength int
	GraphWalksPerNode int
	GraphCosineMin  float64
	GraphCosineMax  float64
	HistoryDepth    int
}

func ConfigFromEnv() Config {
	return Config{
		Target:            envutil.GetEnvAsInt("TARGET_TOTAL_RECOMMENDATIONS", 100),
		OSQuota:           envutil.GetEnvAsInt("OS_LANE_QUOTA", 70),
		GraphQuota:        envutil.GetEnvAsInt("GRAPH_LANE_QUOTA", 30),
		MMRLambda:         envutil.GetEnvAsFloat("MMR_LAMBDA", 0.7),
		BM25RecallK:       envutil.GetEnvAsInt("OS_BM25_RECALL_K", 500),
		OSCosineWeight:    envutil.GetEnvAsFloat("OS_COSINE_WEIGHT", 0.5),
		OSBM25Weight:      envutil.GetEnvAsFloat("OS_BM25_WEIGHT", 0.5),
		GraphWalkLength:   envutil.GetEnvAsInt("GRAPH_WALK_LENGTH", 7),
		GraphWalksPerNode: envutil.GetEnvAsInt("GRAPH_WALKS_PER_NODE", 50),
		GraphCosineMin:    envutil.GetEnvAsFloat("GRAPH_COSINE_MIN", 0.1),
		GraphCosineMax:    envutil.GetEnvAsFloat("GRAPH_COSINE_MAX", 0.9),
		HistoryDepth:      envutil.GetEnvAsInt("HISTORY_DEPTH", 50),
	}
}

// Recommendation is one final, ordered, lane-labeled recall result.
type Recommendation struct {
	VideoID string
	Lane    string
	Score   float64
}

type Engine struct {
	log     *logger.Logger
	seeds   *seed.Builder
	search  *searchindex.Client
	graph   *graph.VideoKG
	cfg     Config
}

func NewEngine(baseLog *logger.Logger, seeds *seed.Builder, search *searchindex.Client, kg *graph.VideoKG, cfg Config) *Engine {
	return &Engine{
		log:    baseLog.With("service", "recall.Engine"),
		seeds:  seeds,
		search: search,
		graph:  kg,
		cfg:    cfg,
	}
}

// Recommend runs the full pipeline spec.md's overview names: Seed
// Builder(history) → Lane A + Lane B → unified pool → MMR → ordered list.
func (e *Engine) Recommend(ctx context.Context, userID uuid.UUID, now time.Time) ([]Recommendation, error) {
	bundle, err := e.seeds.Build(ctx, userID, now, e.cfg.HistoryDepth)
	if err != nil {
		return nil, err
	}
	if bundle.Empty() {
		return nil, nil
	}
	return e.recommendFromBundle(ctx, bundle)
}

func (e *Engine) recommendFromBundle(ctx context.Context, bundle seed.SeedBundle) ([]Recommendation, error) {
	seedIDs := graphSeedIDs(bundle)

	var osShortlist []Candidate
	var graphVisits map[uuid.UUID]int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		laneCtx, span := recallTracer.Start(gctx, "recall.lane.os")
		defer span.End()
		var err error
		osShortlist, err = e.runOSLane(laneCtx, bundle)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
	g.Go(func() error {
		if e.graph == nil || len(seedIDs) == 0 {
			graphVisits = map[uuid.UUID]int{}
			return nil
		}
		laneCtx, span := recallTracer.Start(gctx, "recall.lane.graph")
		defer span.End()
		var err error
		graphVisits, err = e.graph.WalkForVideos(laneCtx, seedIDs, e.cfg.GraphWalksPerNode, e.cfg.GraphWalkLength)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	osShortlistIDs := make(map[string]struct{}, len(osShortlist))
	for _, c := range osShortlist {
		osShortlistIDs[c.VideoID] = struct{}{}
	}

	rerankCtx, rerankSpan := recallTracer.Start(ctx, "recall.lane.graph.rerank")
	graphShortlist, err := e.runGraphLane(rerankCtx, bundle, graphVisits, osShortlistIDs)
	if err != nil {
		rerankSpan.RecordError(err)
		rerankSpan.SetStatus(codes.Error, err.Error())
		rerankSpan.End()
		return nil, err
	}
	rerankSpan.End()

	osEff, graphEff := backfillQuotas(len(osShortlist), len(graphShortlist), e.cfg.OSQuota, e.cfg.GraphQuota)

	pool := make([]Candidate, 0, osEff+graphEff)
	for i := 0; i < osEff; i++ {
		c := osShortlist[i]
		c.OrigIndex = len(pool)
		pool = append(pool, c)
	}
	for i := 0; i < graphEff; i++ {
		c := graphShortlist[i]
		c.OrigIndex = len(pool)
		pool = append(pool, c)
	}

	final := mmr(pool, e.cfg.MMRLambda, e.cfg.Target)
	out := make([]Recommendation, len(final))
	for i, c := range final {
		out[i] = Recommendation{VideoID: c.VideoID, Lane: c.Lane, Score: c.Relevance}
	}
	return out, nil
}

// backfillQuotas shifts a lane's shortfall against its quota to the other
// lane, capped at that lane's actual supply, per spec.md §4.7's backfill
// rule ("the total never exceeds what both lanes produced").
func backfillQuotas(osLen, graphLen, osQuota, graphQuota int) (osEff, graphEff int) {
	osEff = minInt(osQuota, osLen)
	graphEff = minInt(graphQuota, graphLen)
	osShort := osQuota - osEff
	graphShort := graphQuota - graphEff
	if osShort > 0 {
		graphEff += minInt(osShort, graphLen-graphEff)
	}
	if graphShort > 0 {
		osEff += minInt(graphShort, osLen-osEff)
	}
	return osEff, graphEff
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}


package recall

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/streemm-backend/internal/data/graph"
	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
	"github.com/yungbote/streemm-backend/internal/seed"
)

// buildQueryText concatenates the display names of tags, entities, then
// topics (in that union order, per spec.md §4.7), de-duplicated
// case-insensitively.
func buildQueryText(bundle seed.SeedBundle) string {
	seen := map[string]struct{}{}
	var parts []string
	add := func(items []seed.WeightedItem) {
		for _, it := range items {
			key := strings.ToLower(it.Name)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			parts = append(parts, it.Name)
		}
	}
	add(bundle.Tags)
	add(bundle.Entities)
	add(bundle.Topics)
	return strings.Join(parts, " ")
}

func historyIDStrings(bundle seed.SeedBundle) []string {
	out := make([]string, len(bundle.History))
	for i, h := range bundle.History {
		out[i] = h.VideoID.String()
	}
	return out
}

// runOSLane implements spec.md §4.7's lexical+vector lane: a single BM25
// query scored with min-max-normalized BM25 and cosine, then an MMR pass
// over the top 4×quota pool.
func (e *Engine) runOSLane(ctx context.Context, bundle seed.SeedBundle) ([]Candidate, error) {
	queryText := buildQueryText(bundle)
	if queryText == "" {
		return nil, nil
	}

	hits, err := e.search.SearchVideosBM25(ctx, queryText, historyIDStrings(bundle), e.cfg.BM25RecallK)
	if err != nil {
		return nil, apierr.Transient(err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	bm25 := make([]float64, len(hits))
	cosine := make([]float64, len(hits))
	for i, h := range hits {
		bm25[i] = h.BM25Score
		if len(bundle.UserEmbedding) > 0 {
			cosine[i] = cosineSimilarity(bundle.UserEmbedding, h.Doc.Embedding)
		}
	}
	bm25Norm := minMaxNormalize(bm25)
	cosNorm := minMaxNormalize(cosine)

	candidates := make([]Candidate, len(hits))
	for i, h := range hits {
		score := e.cfg.OSCosineWeight*cosNorm[i] + e.cfg.OSBM25Weight*bm25Norm[i]
		candidates[i] = Candidate{VideoID: h.Doc.ID, Doc: h.Doc, Lane: LaneOS, Relevance: score, OrigIndex: i}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Relevance > candidates[j].Relevance })
	poolSize := 4 * e.cfg.OSQuota
	if poolSize > len(candidates) {
		poolSize = len(candidates)
	}
	pool := candidates[:poolSize]

	shortlistSize := 2 * e.cfg.OSQuota
	return mmr(pool, e.cfg.MMRLambda, shortlistSize), nil
}

// graphSeedIDs unions Entity then Tag catalog ids from the SeedBundle,
// ordered and deduped, per spec.md §4.7.
func graphSeedIDs(bundle seed.SeedBundle) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, e := range bundle.Entities {
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			out = append(out, e.ID)
		}
	}
	for _, t := range bundle.Tags {
		if _, ok := seen[t.ID]; !ok {
			seen[t.ID] = struct{}{}
			out = append(out, t.ID)
		}
	}
	return out
}

// runGraphLane implements spec.md §4.7's random-walk lane. visits is the
// already-computed Video-node visit-count aggregate (fetched concurrently
// with the OS-lane in Engine.Recommend); osShortlistIDs and history are
// excluded before hydration.
func (e *Engine) runGraphLane(ctx context.Context, bundle seed.SeedBundle, visits map[uuid.UUID]int, osShortlistIDs map[string]struct{}) ([]Candidate, error) {
	if len(visits) == 0 {
		return nil, nil
	}

	excluded := make(map[string]struct{}, len(osShortlistIDs)+len(bundle.History))
	for k := range osShortlistIDs {
		excluded[k] = struct{}{}
	}
	for _, h := range bundle.History {
		excluded[h.VideoID.String()] = struct{}{}
	}

	type visited struct {
		id    uuid.UUID
		count int
	}
	ranked := make([]visited, 0, len(visits))
	for id, c := range visits {
		if _, skip := excluded[id.String()]; skip {
			continue
		}
		ranked = append(ranked, visited{id: id, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})

	poolCap := 4 * e.cfg.GraphQuota
	if poolCap > len(ranked) {
		poolCap = len(ranked)
	}
	ranked = ranked[:poolCap]
	if len(ranked) == 0 {
		return nil, nil
	}

	ids := make([]string, len(ranked))
	for i, v := range ranked {
		ids[i] = v.id.String()
	}
	docs, err := e.search.MGetVideos(ctx, ids)
	if err != nil {
		return nil, apierr.Transient(err)
	}

	hasUserVector := len(bundle.UserEmbedding) > 0
	type scored struct {
		doc    searchindex.VideoDoc
		cosine float64
	}
	var kept []scored
	for _, v := range ranked {
		doc, ok := docs[v.id.String()]
		if !ok {
			continue
		}
		cos := 0.0
		if hasUserVector {
			cos = cosineSimilarity(bundle.UserEmbedding, doc.Embedding)
			if cos < e.cfg.GraphCosineMin || cos > e.cfg.GraphCosineMax {
				continue
			}
		}
		kept = append(kept, scored{doc: doc, cosine: cos})
	}
	if len(kept) == 0 {
		return nil, nil
	}

	cosines := make([]float64, len(kept))
	for i, k := range kept {
		cosines[i] = k.cosine
	}
	norm := minMaxNormalize(cosines)

	candidates := make([]Candidate, len(kept))
	for i, k := range kept {
		candidates[i] = Candidate{VideoID: k.doc.ID, Doc: k.doc, Lane: LaneGraph, Relevance: norm[i], OrigIndex: i}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Relevance > candidates[j].Relevance })

	shortlistSize := 2 * e.cfg.GraphQuota
	return mmr(candidates, e.cfg.MMRLambda, shortlistSize), nil
}

package recall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

func docWithTags(tags ...string) searchindex.VideoDoc {
	doc := searchindex.VideoDoc{}
	for _, t := range tags {
		doc.Tags = append(doc.Tags, searchindex.Weighted{CanonicalName: t})
	}
	return doc
}

func TestMMRDeterministicTieBreak(t *testing.T) {
	// spec.md §9 example 6: relevances [0.9, 0.9, 0.5], zero pairwise
	// similarity, λ=0.7, limit=2 ⇒ output is the first two in original order.
	candidates := []Candidate{
		{VideoID: "a", Doc: docWithTags("x"), Relevance: 0.9, OrigIndex: 0},
		{VideoID: "b", Doc: docWithTags("y"), Relevance: 0.9, OrigIndex: 1},
		{VideoID: "c", Doc: docWithTags("z"), Relevance: 0.5, OrigIndex: 2},
	}
	out := mmr(candidates, 0.7, 2)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].VideoID)
	require.Equal(t, "b", out[1].VideoID)
}

func TestMMRLambdaOneEqualsSortByRelevance(t *testing.T) {
	candidates := []Candidate{
		{VideoID: "low", Doc: docWithTags("x"), Relevance: 0.2, OrigIndex: 0},
		{VideoID: "high", Doc: docWithTags("x"), Relevance: 0.8, OrigIndex: 1},
	}
	out := mmr(candidates, 1.0, 2)
	require.Equal(t, []string{"high", "low"}, []string{out[0].VideoID, out[1].VideoID})
}

func TestMMRPenalizesSimilarityAtLambdaZero(t *testing.T) {
	// At λ=0 only diversity matters: the first pick is an all-zero tie won
	// by the lowest OrigIndex, and the next pick should be the least similar
	// remaining candidate.
	candidates := []Candidate{
		{VideoID: "seed", Doc: docWithTags("a", "b"), Relevance: 1.0, OrigIndex: 0},
		{VideoID: "similar", Doc: docWithTags("a", "b"), Relevance: 0.9, OrigIndex: 1},
		{VideoID: "distinct", Doc: docWithTags("z"), Relevance: 0.1, OrigIndex: 2},
	}
	out := mmr(candidates, 0.0, 2)
	require.Equal(t, "seed", out[0].VideoID)
	require.Equal(t, "distinct", out[1].VideoID)
}

func TestMMRNoDuplicatesAndRespectsLimit(t *testing.T) {
	candidates := make([]Candidate, 10)
	for i := range candidates {
		candidates[i] = Candidate{VideoID: string(rune('a' + i)), Doc: docWithTags(string(rune('a' + i))), Relevance: float64(i), OrigIndex: i}
	}
	out := mmr(candidates, 0.7, 4)
	require.Len(t, out, 4)
	seen := map[string]bool{}
	for _, c := range out {
		require.False(t, seen[c.VideoID])
		seen[c.VideoID] = true
	}
}

func TestMinMaxNormalizeDegenerateIsZero(t *testing.T) {
	out := minMaxNormalize([]float64{3, 3, 3})
	require.Equal(t, []float64{0, 0, 0}, out)
}

func TestMinMaxNormalizeScalesToUnitRange(t *testing.T) {
	out := minMaxNormalize([]float64{1, 3, 5})
	require.InDelta(t, 0, out[0], 1e-9)
	require.InDelta(t, 0.5, out[1], 1e-9)
	require.InDelta(t, 1, out[2], 1e-9)
}

func TestBackfillQuotasShiftsShortfall(t *testing.T) {
	osEff, graphEff := backfillQuotas(5, 40, 70, 30)
	require.Equal(t, 5, osEff)
	require.Equal(t, 40, graphEff)
}

func TestBackfillQuotasCapsAtAvailableSupply(t *testing.T) {
	osEff, graphEff := backfillQuotas(5, 10, 70, 30)
	require.Equal(t, 5, osEff)
	require.Equal(t, 10, graphEff) // graph can't backfill beyond its own supply
}

func TestJaccardOverlap(t *testing.T) {
	a := map[string]struct{}{"x": {}, "y": {}}
	b := map[string]struct{}{"y": {}, "z": {}}
	require.InDelta(t, 1.0/3.0, jaccard(a, b), 1e-9)
}

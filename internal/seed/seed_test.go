package seed

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRecencyHalvesAtHalfLife(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	watchedAt := now.AddDate(0, 0, -21)
	r := recency(now, watchedAt, 21)
	require.InDelta(t, 0.5, r, 1e-9)
}

func TestRecencyClampsFutureTimestampsToZeroAge(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	r := recency(now, now.Add(time.Hour), 21)
	require.InDelta(t, 1.0, r, 1e-9)
}

func TestTopKRenormalizesToSumOne(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	m := map[uuid.UUID]*scoredItem{
		a: {id: a, canonicalName: "a", score: 3},
		b: {id: b, canonicalName: "b", score: 1},
		c: {id: c, canonicalName: "c", score: 6},
	}
	out := topK(m, 2)
	require.Len(t, out, 2)
	require.Equal(t, c, out[0].ID)
	require.Equal(t, a, out[1].ID)
	var sum float64
	for _, it := range out {
		sum += it.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestClampDepth(t *testing.T) {
	require.Equal(t, defaultDepth, clampDepth(0))
	require.Equal(t, maxDepth, clampDepth(9999))
	require.Equal(t, minDepth, clampDepth(-5))
	require.Equal(t, 10, clampDepth(10))
}

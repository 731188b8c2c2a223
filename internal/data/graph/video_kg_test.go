package graph

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fixedRNG builds a walkRNG over a deterministic source so walk tests don't
// depend on the crypto-seeded newWalkRNG.
func fixedRNG(seed int64) *walkRNG {
	return &walkRNG{r: rand.New(rand.NewSource(seed))}
}

func TestWalkVisitsCrossesMultipleHopsViaSharedEntity(t *testing.T) {
	v1, v2 := uuid.New(), uuid.New()
	e1, e2 := uuid.New(), uuid.New()

	// e1 (seed) -- v1 -- e2 -- v2: v2 is reachable only via a second hop
	// through e2, not directly from the seed.
	rows := []videoEntityTagEdge{
		{videoID: v1.String(), nodeID: e1.String(), weight: 1},
		{videoID: v1.String(), nodeID: e2.String(), weight: 1},
		{videoID: v2.String(), nodeID: e2.String(), weight: 1},
	}

	oneHop := walkVisits([]string{e1.String()}, rows, 50, 1, fixedRNG(1))
	require.Greater(t, oneHop[v1], 0)
	require.Equal(t, 0, oneHop[v2], "a walk of length 1 must never reach a video two hops away")

	// Large walksPerNode makes the assertion robust to the specific PRNG
	// sequence: reaching v2 needs two independent coin-flip-odds hops, so
	// the chance of missing it across 300 walks is negligible.
	multiHop := walkVisits([]string{e1.String()}, rows, 300, 3, fixedRNG(1))
	require.Greater(t, multiHop[v2], 0, "a walk of length 3 must be able to cross v1 -> e2 -> v2")
}

func TestWalkVisitsOnlyCountsVideoNodes(t *testing.T) {
	v1 := uuid.New()
	e1 := uuid.New()
	rows := []videoEntityTagEdge{
		{videoID: v1.String(), nodeID: e1.String(), weight: 1},
	}
	visits := walkVisits([]string{e1.String()}, rows, 10, 4, fixedRNG(2))
	require.Len(t, visits, 1)
	require.Contains(t, visits, v1)
}

func TestWalkVisitsUnknownSeedYieldsNoVisits(t *testing.T) {
	v1 := uuid.New()
	e1, unknown := uuid.New(), uuid.New()
	rows := []videoEntityTagEdge{
		{videoID: v1.String(), nodeID: e1.String(), weight: 1},
	}
	visits := walkVisits([]string{unknown.String()}, rows, 10, 4, fixedRNG(3))
	require.Empty(t, visits)
}

func TestWalkVisitsEmptyRowsYieldsNoVisits(t *testing.T) {
	e1 := uuid.New()
	visits := walkVisits([]string{e1.String()}, nil, 10, 4, fixedRNG(4))
	require.Empty(t, visits)
}

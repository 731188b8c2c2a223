package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeightedPickFavorsHeavierEdge(t *testing.T) {
	rng := newWalkRNG()
	edges := []neighborEdge{
		{fromID: "s", toID: "a", weight: 0.01},
		{fromID: "s", toID: "b", weight: 99.99},
	}
	counts := map[string]int{}
	for i := 0; i < 500; i++ {
		counts[weightedPick(rng, edges).toID]++
	}
	require.Greater(t, counts["b"], counts["a"])
}

func TestWeightedPickSingleEdgeAlwaysChosen(t *testing.T) {
	rng := newWalkRNG()
	edges := []neighborEdge{{fromID: "s", toID: "only", weight: 1.0}}
	for i := 0; i < 20; i++ {
		require.Equal(t, "only", weightedPick(rng, edges).toID)
	}
}

func TestWeightedPickZeroTotalFallsBackToFirst(t *testing.T) {
	rng := newWalkRNG()
	edges := []neighborEdge{
		{fromID: "s", toID: "a", weight: 0},
		{fromID: "s", toID: "b", weight: 0},
	}
	require.Equal(t, "a", weightedPick(rng, edges).toID)
}

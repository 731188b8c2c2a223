package recall

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/seed"
)

func TestBuildQueryTextUnionsTagsEntitiesTopicsDeduped(t *testing.T) {
	bundle := seed.SeedBundle{
		Tags:     []seed.WeightedItem{{Name: "Go"}, {Name: "Testing"}},
		Entities: []seed.WeightedItem{{Name: "go"}, {Name: "Docker"}},
		Topics:   []seed.WeightedItem{{Name: "Backend"}},
	}
	got := buildQueryText(bundle)
	require.Equal(t, "Go Testing Docker Backend", got)
}

func TestBuildQueryTextEmptyBundleIsEmptyString(t *testing.T) {
	require.Equal(t, "", buildQueryText(seed.SeedBundle{}))
}

func TestGraphSeedIDsUnionsEntitiesThenTagsDeduped(t *testing.T) {
	id1 := uuid.New()
	id2 := uuid.New()
	bundle := seed.SeedBundle{
		Entities: []seed.WeightedItem{{ID: id1}},
		Tags:     []seed.WeightedItem{{ID: id1}, {ID: id2}},
	}
	got := graphSeedIDs(bundle)
	require.Equal(t, []uuid.UUID{id1, id2}, got)
}

package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/media"
)

func TestNormalizeDedupesByCanonicalNameKeepingMaxWeight(t *testing.T) {
	raw := map[string]any{
		"metadata":      map[string]any{"content_type": "Tutorial", "language": "EN"},
		"short_summary": "a quick overview",
		"topics": []any{
			map[string]any{"name": "Go", "canonical_name": "go", "prominence": 0.4},
			map[string]any{"name": "Golang", "canonical_name": "go", "prominence": 0.9},
			map[string]any{"name": "", "canonical_name": "", "prominence": 0.5}, // malformed, dropped
			"not-an-object", // malformed, dropped
		},
		"entities": []any{},
		"tags":     []any{map[string]any{"tag": "  Programming ", "weight": 1.5}}, // clamps to 1.0
	}

	ext := normalize(raw)
	require.Equal(t, "Tutorial", ext.ContentType)
	require.Equal(t, "EN", ext.Language)
	require.Len(t, ext.Topics, 1)
	require.Equal(t, "go", ext.Topics[0].CanonicalName)
	require.InDelta(t, 0.9, ext.Topics[0].Weight, 0.001)
	require.Len(t, ext.Tags, 1)
	require.Equal(t, "programming", ext.Tags[0].CanonicalName)
	require.InDelta(t, 1.0, ext.Tags[0].Weight, 0.001)
}

func TestClipTranscriptRespectsBoundary(t *testing.T) {
	chunks := []media.Chunk{
		{Text: strings.Repeat("a", maxTranscriptChars-10)},
		{Text: strings.Repeat("b", 100)},
	}
	clipped := clipTranscript(chunks)
	require.LessOrEqual(t, len(clipped), maxTranscriptChars)
	require.False(t, strings.Contains(clipped, "b"))
}

func TestEmbeddingTextLayout(t *testing.T) {
	text := embeddingText("My Title", "My Desc", "My Summary", "", "",
		[]extractedItem{{Name: "Go"}}, nil, nil)
	require.Contains(t, text, "Title: My Title")
	require.Contains(t, text, "Description: My Desc")
	require.Contains(t, text, "Summary: My Summary")
	require.Contains(t, text, "Topics: Go")
	require.Contains(t, text, "Entities: n/a")
	require.Contains(t, text, "Tags: n/a")
	require.Contains(t, text, "Metadata: content_type=other, language=en")
}

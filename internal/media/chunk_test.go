package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/platform/gcp"
)

func TestBuildChunksRespectsWindow(t *testing.T) {
	segs := []gcp.TranscriptSegment{
		{StartSeconds: 0, EndSeconds: 2, Text: "short one"},
		{StartSeconds: 2, EndSeconds: 4, Text: strings.Repeat("word ", 30)},
		{StartSeconds: 4, EndSeconds: 6, Text: "trailing bit"},
	}
	chunks := BuildChunks(segs)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Text), chunkTargetMax)
		require.True(t, c.EndSeconds >= c.StartSeconds)
	}
}

func TestBuildChunksSplitsSegmentLongerThanMax(t *testing.T) {
	segs := []gcp.TranscriptSegment{
		{StartSeconds: 0, EndSeconds: 10, Text: strings.Repeat("word ", 80)},
	}
	chunks := BuildChunks(segs)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Text), chunkTargetMax)
		require.Equal(t, 0.0, c.StartSeconds)
		require.Equal(t, 10.0, c.EndSeconds)
	}
}

func TestBuildChunksEmptyInput(t *testing.T) {
	require.Empty(t, BuildChunks(nil))
}

func TestBuildChunksSkipsBlankSegments(t *testing.T) {
	segs := []gcp.TranscriptSegment{
		{StartSeconds: 0, EndSeconds: 1, Text: "   "},
		{StartSeconds: 1, EndSeconds: 2, Text: "hello"},
	}
	chunks := BuildChunks(segs)
	require.Len(t, chunks, 1)
	require.Equal(t, "hello", chunks[0].Text)
}

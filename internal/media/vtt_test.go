package media

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/platform/gcp"
)

func TestRenderVTTFormat(t *testing.T) {
	doc := RenderVTT([]gcp.TranscriptSegment{
		{StartSeconds: 0, EndSeconds: 1.5, Text: "hello world"},
		{StartSeconds: 61.25, EndSeconds: 65, Text: "second line"},
	})
	require.Contains(t, doc, "WEBVTT\n\n")
	require.Contains(t, doc, "00:00:00.000 --> 00:00:01.500")
	require.Contains(t, doc, "00:01:01.250 --> 00:01:05.000")
}

func TestRenderParseVTTRoundTrip(t *testing.T) {
	segs := []gcp.TranscriptSegment{
		{StartSeconds: 0, EndSeconds: 2.345, Text: "one"},
		{StartSeconds: 2.5, EndSeconds: 4, Text: "two three"},
	}
	doc := RenderVTT(segs)
	parsed := ParseVTT(doc)
	require.Len(t, parsed, 2)
	require.Equal(t, "one", parsed[0].Text)
	require.InDelta(t, 2.345, parsed[0].EndSeconds, 0.001)
	require.Equal(t, "two three", parsed[1].Text)
}

package notifier

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/streemm-backend/internal/domain"
)

func TestDisplayTitleFallbackChain(t *testing.T) {
	require.Equal(t, "My Clip", displayTitle(&types.Video{Title: "My Clip", OriginalFilename: "raw.mp4"}))
	require.Equal(t, "raw.mp4", displayTitle(&types.Video{OriginalFilename: "raw.mp4"}))
	require.Equal(t, "your video", displayTitle(&types.Video{}))
}

func TestRenderBuildsVideoURL(t *testing.T) {
	id := uuid.New()
	v := &types.Video{ID: id, Title: "My Clip"}
	subject, text, html, err := render(v, "https://app.example.com/")
	require.NoError(t, err)
	require.Contains(t, subject, "My Clip")
	require.Contains(t, text, "https://app.example.com/videos/"+id.String())
	require.Contains(t, html, "https://app.example.com/videos/"+id.String())
}

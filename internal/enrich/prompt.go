package enrich

import (
	"fmt"
	"strings"

	"github.com/yungbote/streemm-backend/internal/media"
)

const maxTranscriptChars = 60000

const systemPrompt = `You are a video content analyst. Given a video's title, description, and transcript, extract structured metadata: content type, language, a short summary, topics, named entities, and tags. Respond with the requested JSON object only.`

// clipTranscript concatenates chunk texts up to maxTranscriptChars,
// stopping before a chunk that would push the total over the limit
// rather than truncating mid-chunk, per spec.md §4.3's "boundary-respecting
// concatenation" requirement.
func clipTranscript(chunks []media.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		addLen := len(text)
		if b.Len() > 0 {
			addLen++ // separating space
		}
		if b.Len()+addLen > maxTranscriptChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return b.String()
}

// buildUserPrompt assembles the single extraction prompt from a video's
// title, description, and clipped transcript.
func buildUserPrompt(title, description string, chunks []media.Chunk) string {
	transcript := clipTranscript(chunks)
	if transcript == "" {
		transcript = "(no transcript available)"
	}
	return fmt.Sprintf(
		"Title: %s\n\nDescription: %s\n\nTranscript:\n%s",
		strings.TrimSpace(title), strings.TrimSpace(description), transcript,
	)
}

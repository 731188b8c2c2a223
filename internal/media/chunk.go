package media

import (
	"strings"

	"github.com/yungbote/streemm-backend/internal/platform/gcp"
)

const (
	chunkTargetMin = 80
	chunkTargetMax = 200
)

// Chunk is a greedily-accumulated span of transcript text, carrying the
// true start/end times of the segments it absorbed.
type Chunk struct {
	Text         string
	StartSeconds float64
	EndSeconds   float64
}

// BuildChunks greedily accumulates transcript segments into windows of
// [80, 200] characters, per spec.md §4.2. spec.md §8's chunk-length
// invariant is unconditional: a pending chunk is flushed before any
// segment that would push it past 200 characters, even when that leaves it
// shorter than 80, and a single segment longer than the max window is
// itself split on word boundaries into ≤200-char pieces rather than
// emitted whole.
func BuildChunks(segments []gcp.TranscriptSegment) []Chunk {
	var chunks []Chunk
	var buf strings.Builder
	var start, end float64
	started := false

	flush := func() {
		txt := strings.TrimSpace(buf.String())
		if txt == "" {
			return
		}
		chunks = append(chunks, Chunk{Text: txt, StartSeconds: start, EndSeconds: end})
		buf.Reset()
		started = false
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		// A pending chunk flushes before absorbing a segment that would push
		// it past the maximum, even if it is still below the target minimum.
		if started && buf.Len()+1+len(text) > chunkTargetMax {
			flush()
		}

		if len(text) > chunkTargetMax {
			flush()
			for _, piece := range splitLong(text, chunkTargetMax) {
				chunks = append(chunks, Chunk{Text: piece, StartSeconds: seg.StartSeconds, EndSeconds: seg.EndSeconds})
			}
			continue
		}

		if !started {
			start = seg.StartSeconds
			started = true
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(text)
		end = seg.EndSeconds

		if buf.Len() >= chunkTargetMax {
			flush()
		}
	}
	flush()
	return chunks
}

// splitLong breaks text longer than max into word-boundary pieces each at
// most max characters, hard-cutting only a single word that itself exceeds
// max (there is no smaller boundary to split on).
func splitLong(text string, max int) []string {
	var pieces []string
	var buf strings.Builder

	for _, w := range strings.Fields(text) {
		for len(w) > max {
			if buf.Len() > 0 {
				pieces = append(pieces, buf.String())
				buf.Reset()
			}
			pieces = append(pieces, w[:max])
			w = w[max:]
		}
		if buf.Len() > 0 && buf.Len()+1+len(w) > max {
			pieces = append(pieces, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(w)
	}
	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}
	return pieces
}

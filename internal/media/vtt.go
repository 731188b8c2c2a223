package media

import (
	"fmt"
	"strings"

	"github.com/yungbote/streemm-backend/internal/platform/gcp"
)

// RenderVTT emits a WEBVTT document from ordered transcript segments, per
// spec.md §4.2: "WEBVTT header, HH:MM:SS.mmm --> HH:MM:SS.mmm with 3-digit
// fractional seconds and a dot separator; indices are 1-based."
func RenderVTT(segments []gcp.TranscriptSegment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatVTTTimestamp(seg.StartSeconds), formatVTTTimestamp(seg.EndSeconds), seg.Text)
	}
	return b.String()
}

func formatVTTTimestamp(totalSeconds float64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	ms := int64(totalSeconds*1000 + 0.5)
	hours := ms / 3600000
	ms -= hours * 3600000
	minutes := ms / 60000
	ms -= minutes * 60000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}

// ParseVTT re-parses a previously written VTT document back into ordered
// segments, backing the Job Worker's §4.4 step 8 recovery path ("If caption
// object already exists, re-parse it and re-index chunks").
func ParseVTT(doc string) []gcp.TranscriptSegment {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	var segs []gcp.TranscriptSegment
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			i++
			continue
		}
		start, end, ok := parseVTTRange(line)
		i++
		var textLines []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			textLines = append(textLines, lines[i])
			i++
		}
		if ok {
			segs = append(segs, gcp.TranscriptSegment{
				StartSeconds: start,
				EndSeconds:   end,
				Text:         strings.TrimSpace(strings.Join(textLines, " ")),
			})
		}
	}
	return segs
}

func parseVTTRange(line string) (float64, float64, bool) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok1 := parseVTTTimestamp(strings.TrimSpace(parts[0]))
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, false
	}
	end, ok2 := parseVTTTimestamp(endField[0])
	return start, end, ok1 && ok2
}

func parseVTTTimestamp(s string) (float64, bool) {
	var h, m, sec, ms int
	if _, err := fmt.Sscanf(s, "%02d:%02d:%02d.%03d", &h, &m, &sec, &ms); err != nil {
		return 0, false
	}
	return float64(h*3600+m*60+sec) + float64(ms)/1000.0, true
}

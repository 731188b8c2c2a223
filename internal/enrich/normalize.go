package enrich

import (
	"strings"

	"github.com/yungbote/streemm-backend/internal/data/repos/catalog"
	"github.com/yungbote/streemm-backend/internal/platform/jsonutil"
)

// extractedItem is one normalized (name, canonical_name, weight) triple,
// shared across topics/entities/tags after normalization.
type extractedItem struct {
	Name          string
	CanonicalName string
	Weight        float64
}

// extraction is the normalized form of the model's raw JSON object: weights
// clamped to [0,1], canonical names lowercased/trimmed, duplicates (by
// canonical name) collapsed keeping the highest weight seen.
type extraction struct {
	ContentType  string
	Language     string
	ShortSummary string
	Topics       []extractedItem
	Entities     []extractedItem
	Tags         []extractedItem
}

// normalize tolerantly decodes the model's raw map (as returned by
// openai.Client.GenerateJSON) into an extraction, dropping malformed
// items rather than failing the whole enrichment run, per spec.md §4.3.
func normalize(raw map[string]any) extraction {
	out := extraction{}

	if meta, ok := raw["metadata"].(map[string]any); ok {
		out.ContentType = jsonutil.GetString(meta, "content_type")
		out.Language = jsonutil.GetString(meta, "language")
	}
	out.ShortSummary = jsonutil.AsString(raw["short_summary"])

	out.Topics = normalizeItems(raw["topics"], "name", "canonical_name", "prominence")
	out.Entities = normalizeItems(raw["entities"], "name", "canonical_name", "importance")
	out.Tags = normalizeItems(raw["tags"], "tag", "", "weight")

	return out
}

func normalizeItems(v any, nameKey, canonicalKey, weightKey string) []extractedItem {
	seen := map[string]int{} // canonical name -> index in out
	var out []extractedItem
	for _, m := range jsonutil.ObjectList(v) {
		name := jsonutil.GetString(m, nameKey)
		if name == "" {
			continue
		}
		canon := ""
		if canonicalKey != "" {
			canon = jsonutil.GetString(m, canonicalKey)
		}
		if canon == "" {
			canon = catalog.CanonicalName(name)
		} else {
			canon = catalog.CanonicalName(canon)
		}
		if canon == "" {
			continue
		}
		weight := catalog.ClampWeight(jsonutil.GetFloat64(m, weightKey))

		if idx, ok := seen[canon]; ok {
			if weight > out[idx].Weight {
				out[idx].Weight = weight
			}
			continue
		}
		seen[canon] = len(out)
		out = append(out, extractedItem{Name: strings.TrimSpace(name), CanonicalName: canon, Weight: weight})
	}
	return out
}

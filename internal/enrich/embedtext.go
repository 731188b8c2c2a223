package enrich

import (
	"fmt"
	"strings"
)

// embeddingText renders the fixed, byte-for-byte embedding text layout
// spec.md §4.3 specifies, so that re-running enrichment on unchanged
// extraction output produces an identical embedding input. content_type
// and language fall back to "other"/"en" when the model left them blank.
func embeddingText(title, description, summary, contentType, language string, topics, entities, tags []extractedItem) string {
	ct := contentType
	if ct == "" {
		ct = "other"
	}
	lang := language
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf(
		"Title: %s\n\nDescription: %s\n\nSummary: %s\n\nTopics: %s\nEntities: %s\nTags: %s\n\nMetadata: content_type=%s, language=%s",
		title, description, summary,
		namesOrNA(topics), namesOrNA(entities), namesOrNA(tags),
		ct, lang,
	)
}

func namesOrNA(items []extractedItem) string {
	if len(items) == 0 {
		return "n/a"
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return strings.Join(names, " | ")
}

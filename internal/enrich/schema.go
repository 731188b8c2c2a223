package enrich

// extractionSchemaName is passed to openai.Client.GenerateJSON as the
// `name` of the json_schema response-format object.
const extractionSchemaName = "video_enrichment"

// extractionSchema is the strict-JSON contract spec.md §4.3 names:
// metadata.{content_type, language}, short_summary, topics, entities, tags.
func extractionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"metadata", "short_summary", "topics", "entities", "tags"},
		"properties": map[string]any{
			"metadata": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"content_type", "language"},
				"properties": map[string]any{
					"content_type": map[string]any{"type": "string"},
					"language":     map[string]any{"type": "string"},
				},
			},
			"short_summary": map[string]any{"type": "string"},
			"topics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "canonical_name", "prominence"},
					"properties": map[string]any{
						"name":           map[string]any{"type": "string"},
						"canonical_name": map[string]any{"type": "string"},
						"prominence":     map[string]any{"type": "number"},
					},
				},
			},
			"entities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "canonical_name", "importance"},
					"properties": map[string]any{
						"name":           map[string]any{"type": "string"},
						"canonical_name": map[string]any{"type": "string"},
						"importance":     map[string]any{"type": "number"},
						"entity_type":    map[string]any{"type": "string"},
					},
				},
			},
			"tags": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"tag", "weight"},
					"properties": map[string]any{
						"tag":    map[string]any{"type": "string"},
						"weight": map[string]any{"type": "number"},
					},
				},
			},
		},
	}
}

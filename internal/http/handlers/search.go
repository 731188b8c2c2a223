package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/streemm-backend/internal/http/response"
	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

// SearchHandler backs the Full-text Search Endpoint collaborator spec.md
// §4.8 describes: out of core-budget as a feature, kept thin, but the
// Search Index Adapter contract it wraps (SearchTranscript) is fully
// exercised by tests.
type SearchHandler struct {
	search *searchindex.Client
}

func NewSearchHandler(search *searchindex.Client) *SearchHandler {
	return &SearchHandler{search: search}
}

type transcriptSearchResult struct {
	VideoID      string  `json:"video_id"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Score        float64 `json:"score"`
}

// SearchTranscript handles GET /api/search/transcript?q=&video_id=&limit=.
func (h *SearchHandler) SearchTranscript(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_query", nil)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", nil)
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	videoID := strings.TrimSpace(c.Query("video_id"))

	hits, err := h.search.SearchTranscript(c.Request.Context(), videoID, q, limit)
	if err != nil {
		status, code := statusForSearchError(err)
		response.RespondError(c, status, code, err)
		return
	}

	out := make([]transcriptSearchResult, len(hits))
	for i, hit := range hits {
		out[i] = transcriptSearchResult{
			VideoID:      hit.Doc.VideoID,
			Text:         hit.Doc.Text,
			StartSeconds: hit.Doc.StartSeconds,
			EndSeconds:   hit.Doc.EndSeconds,
			Score:        hit.Score,
		}
	}
	response.RespondOK(c, gin.H{"items": out})
}

func statusForSearchError(err error) (int, string) {
	switch {
	case apierr.IsTerminal(err):
		return http.StatusBadRequest, "search_failed"
	case apierr.IsTransient(err):
		return http.StatusServiceUnavailable, "search_unavailable"
	default:
		return http.StatusInternalServerError, "search_error"
	}
}

package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/http/handlers"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

func newTestSearchClient(t *testing.T, body string) *searchindex.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENSEARCH_ADDR", srv.URL)

	log, err := logger.New("test")
	require.NoError(t, err)
	c, err := searchindex.New(log)
	require.NoError(t, err)
	return c
}

func TestSearchTranscriptRequiresQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := handlers.NewSearchHandler(nil)
	r := gin.New()
	r.GET("/search/transcript", h.SearchTranscript)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search/transcript", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchTranscriptReturnsHits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestSearchClient(t, `{
		"hits": {"hits": [
			{"_score": 2.0, "_source": {"video_id": "v1", "text": "hello world", "start_seconds": 1.5}}
		]}
	}`)
	h := handlers.NewSearchHandler(c)
	r := gin.New()
	r.GET("/search/transcript", h.SearchTranscript)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search/transcript?q=hello+world", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []struct {
			VideoID string `json:"video_id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, "v1", body.Items[0].VideoID)
}

func TestSearchTranscriptRejectsInvalidLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := handlers.NewSearchHandler(nil)
	r := gin.New()
	r.GET("/search/transcript", h.SearchTranscript)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search/transcript?q=x&limit=-1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

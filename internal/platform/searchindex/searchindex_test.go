package searchindex_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *searchindex.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("OPENSEARCH_ADDR", srv.URL)

	log, err := logger.New("test")
	require.NoError(t, err)

	c, err := searchindex.New(log)
	require.NoError(t, err)
	return c
}

func TestBootstrapCreatesMissingIndexes(t *testing.T) {
	created := map[string]bool{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			idx := r.URL.Path
			created[idx] = true
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	require.NoError(t, c.Bootstrap(t.Context()))
	require.Len(t, created, 2)
}

func TestSearchVideosBM25ParsesHits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"hits": {"hits": [
				{"_score": 4.2, "_source": {"id": "v1", "title": "React basics", "status": "ready"}},
				{"_score": 1.1, "_source": {"id": "v2", "title": "Python intro", "status": "ready"}}
			]}
		}`))
	})

	hits, err := c.SearchVideosBM25(t.Context(), "react python", []string{"v9"}, 500)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "v1", hits[0].Doc.ID)
	require.Equal(t, 4.2, hits[0].BM25Score)
}

func TestMGetEmbeddingsSkipsMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"docs": [
				{"_id": "v1", "found": true, "_source": {"embedding": [0.1, 0.2]}},
				{"_id": "v2", "found": false, "_source": {}}
			]
		}`))
	})

	out, err := c.MGetEmbeddings(t.Context(), []string{"v1", "v2"})
	require.NoError(t, err)
	require.Contains(t, out, "v1")
	require.NotContains(t, out, "v2")
}

func TestMGetVideosSkipsMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"docs": [
				{"_id": "v1", "found": true, "_source": {"id": "v1", "title": "React basics"}},
				{"_id": "v2", "found": false, "_source": {}}
			]
		}`))
	})

	out, err := c.MGetVideos(t.Context(), []string{"v1", "v2"})
	require.NoError(t, err)
	require.Contains(t, out, "v1")
	require.Equal(t, "React basics", out["v1"].Title)
	require.NotContains(t, out, "v2")
}

func TestSearchTranscriptReturnsPhraseHitsWithoutFallback(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"hits": {"hits": [
				{"_score": 3.0, "_source": {"video_id": "v1", "text": "hello world"}}
			]}
		}`))
	})

	hits, err := c.SearchTranscript(t.Context(), "", "hello world", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, bodies, 1) // phrase match hit, no fallback query issued
}

func TestSearchTranscriptFallsBackToMinimumShouldMatch(t *testing.T) {
	var queries []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		queries = append(queries, body)
		w.Header().Set("Content-Type", "application/json")
		if len(queries) == 1 {
			_, _ = w.Write([]byte(`{"hits": {"hits": []}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"hits": {"hits": [
				{"_score": 1.0, "_source": {"video_id": "v1", "text": "hello there world"}}
			]}
		}`))
	})

	hits, err := c.SearchTranscript(t.Context(), "v1", "hello world", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, queries, 2) // phrase match empty, fell back to minimum_should_match
}

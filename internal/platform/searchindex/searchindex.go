// Package searchindex implements the Search Index Adapter: the `videos`
// and `transcript_chunks` OpenSearch indexes spec.md §6 names, bootstrapped
// idempotently and queried by the Recall & Rerank Engine's OS-lane and the
// Full-text Search Endpoint collaborator. No example repo in the corpus
// imports opensearch-go; this package is built directly against its public
// REST-request-struct API (DESIGN.md records the ecosystem justification —
// the corpus's vector-only stores, Pinecone and Qdrant, cannot hold BM25
// text + nested topics/entities/tags + embedding in one document).
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

const (
	IndexVideos            = "videos"
	IndexTranscriptChunks  = "transcript_chunks"
	defaultRequestTimeout  = 2 * time.Second
)

// Client wraps the low-level opensearch-go client with the handful of
// operations spec.md's Search Index Adapter owns.
type Client struct {
	log *logger.Logger
	es  *opensearch.Client
}

// Weighted is the nested {id, name, canonical_name, weight} shape shared
// by videos.topics/entities/tags, per spec.md §6.
type Weighted struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CanonicalName string  `json:"canonical_name"`
	Weight        float64 `json:"weight"`
}

// VideoDoc is the `videos` index document.
type VideoDoc struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ContentType     string     `json:"content_type"`
	Language        string     `json:"language"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	DurationSeconds float64    `json:"duration_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Embedding       []float32  `json:"embedding,omitempty"`
	Topics          []Weighted `json:"topics,omitempty"`
	Entities        []Weighted `json:"entities,omitempty"`
	Tags            []Weighted `json:"tags,omitempty"`
}

// TranscriptChunkDoc is a `transcript_chunks` index document; callers
// compute DocID as `{video}_{idx}_{ms}` per spec.md §6.
type TranscriptChunkDoc struct {
	DocID         string    `json:"-"`
	VideoID       string    `json:"video_id"`
	Text          string    `json:"text"`
	StartSeconds  float64   `json:"start_seconds"`
	EndSeconds    float64   `json:"end_seconds"`
	Lang          string    `json:"lang"`
	CreatedAt     time.Time `json:"created_at"`
}

// VideoHit is a scored `videos` search result.
type VideoHit struct {
	Doc       VideoDoc
	BM25Score float64
}

// TranscriptHit is a scored `transcript_chunks` search result.
type TranscriptHit struct {
	Doc   TranscriptChunkDoc
	Score float64
}

func New(log *logger.Logger) (*Client, error) {
	addr := envutil.GetEnv("OPENSEARCH_ADDR", "http://localhost:9200")
	cfg := opensearch.Config{
		Addresses: []string{addr},
	}
	if u := envutil.GetEnv("OPENSEARCH_USERNAME", ""); u != "" {
		cfg.Username = u
		cfg.Password = envutil.GetEnv("OPENSEARCH_PASSWORD", "")
	}
	es, err := opensearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("new opensearch client: %w", err)
	}
	return &Client{log: log.With("service", "searchindex.Client"), es: es}, nil
}

func requestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultRequestTimeout)
}

func drain(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func readBody(res *opensearchapi.Response) (string, error) {
	defer drain(res.Body)
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const videosMapping = `{
  "mappings": {
    "properties": {
      "title":            {"type": "text"},
      "description":      {"type": "text"},
      "content_type":     {"type": "keyword"},
      "language":         {"type": "keyword"},
      "user_id":          {"type": "keyword"},
      "status":           {"type": "keyword"},
      "duration_seconds": {"type": "float"},
      "created_at":       {"type": "date"},
      "updated_at":       {"type": "date"},
      "embedding":        {"type": "float", "index": false},
      "topics":   {"type": "nested", "properties": {
        "id": {"type": "keyword"}, "name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
        "canonical_name": {"type": "keyword"}, "weight": {"type": "float"}
      }},
      "entities": {"type": "nested", "properties": {
        "id": {"type": "keyword"}, "name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
        "canonical_name": {"type": "keyword"}, "weight": {"type": "float"}
      }},
      "tags":     {"type": "nested", "properties": {
        "id": {"type": "keyword"}, "name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
        "canonical_name": {"type": "keyword"}, "weight": {"type": "float"}
      }}
    }
  }
}`

const transcriptChunksMapping = `{
  "mappings": {
    "properties": {
      "video_id":      {"type": "keyword"},
      "text":          {"type": "text"},
      "start_seconds": {"type": "float"},
      "end_seconds":   {"type": "float"},
      "lang":          {"type": "keyword"},
      "created_at":    {"type": "date"}
    }
  }
}`

// Bootstrap idempotently creates the videos and transcript_chunks indexes:
// indices.exists, then indices.create only on a miss, per spec.md §6.
func (c *Client) Bootstrap(ctx context.Context) error {
	for _, idx := range []struct {
		name    string
		mapping string
	}{
		{IndexVideos, videosMapping},
		{IndexTranscriptChunks, transcriptChunksMapping},
	} {
		exists, err := c.indexExists(ctx, idx.name)
		if err != nil {
			return apierr.Transient(err)
		}
		if exists {
			continue
		}
		req := opensearchapi.IndicesCreateRequest{
			Index: idx.name,
			Body:  strings.NewReader(idx.mapping),
		}
		res, err := req.Do(ctx, c.es)
		if err != nil {
			return apierr.Transient(fmt.Errorf("create index %s: %w", idx.name, err))
		}
		body, _ := readBody(res)
		if res.IsError() {
			return apierr.Transient(fmt.Errorf("create index %s: %s", idx.name, body))
		}
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context, name string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{name}}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return false, err
	}
	defer drain(res.Body)
	return res.StatusCode == 200, nil
}

// IndexVideo upserts the videos document for doc.ID.
func (c *Client) IndexVideo(ctx context.Context, doc VideoDoc) error {
	ctx, cancel := requestTimeout(ctx)
	defer cancel()
	body, err := json.Marshal(doc)
	if err != nil {
		return apierr.Terminal(err)
	}
	req := opensearchapi.IndexRequest{
		Index:      IndexVideos,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return apierr.Transient(err)
	}
	msg, _ := readBody(res)
	if res.IsError() {
		return apierr.Transient(fmt.Errorf("index video %s: %s", doc.ID, msg))
	}
	return nil
}

// DeleteVideo removes the videos document for videoID; a 404 is not an
// error (already absent is the desired end state).
func (c *Client) DeleteVideo(ctx context.Context, videoID string) error {
	ctx, cancel := requestTimeout(ctx)
	defer cancel()
	req := opensearchapi.DeleteRequest{Index: IndexVideos, DocumentID: videoID}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return apierr.Transient(err)
	}
	defer drain(res.Body)
	if res.IsError() && res.StatusCode != 404 {
		return apierr.Transient(fmt.Errorf("delete video %s: status %d", videoID, res.StatusCode))
	}
	return nil
}

// BulkIndexChunks indexes a batch of transcript chunks via the bulk API.
func (c *Client) BulkIndexChunks(ctx context.Context, chunks []TranscriptChunkDoc) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx, cancel := requestTimeout(ctx)
	defer cancel()
	var buf bytes.Buffer
	for _, ch := range chunks {
		meta := map[string]any{"index": map[string]any{"_index": IndexTranscriptChunks, "_id": ch.DocID}}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return apierr.Terminal(err)
		}
		docLine, err := json.Marshal(ch)
		if err != nil {
			return apierr.Terminal(err)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}
	req := opensearchapi.BulkRequest{Body: bytes.NewReader(buf.Bytes())}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return apierr.Transient(err)
	}
	msg, _ := readBody(res)
	if res.IsError() {
		return apierr.Transient(fmt.Errorf("bulk index chunks: %s", msg))
	}
	return nil
}

// DeleteChunksForVideo deletes all transcript_chunks documents for videoID
// via delete-by-query.
func (c *Client) DeleteChunksForVideo(ctx context.Context, videoID string) error {
	ctx, cancel := requestTimeout(ctx)
	defer cancel()
	body, _ := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"video_id": videoID}},
	})
	req := opensearchapi.DeleteByQueryRequest{
		Index: []string{IndexTranscriptChunks},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return apierr.Transient(err)
	}
	msg, _ := readBody(res)
	if res.IsError() {
		return apierr.Transient(fmt.Errorf("delete chunks for video %s: %s", videoID, msg))
	}
	return nil
}

// SearchVideosBM25 issues the OS-lane query from spec.md §4.7: a bool
// query excluding history ids, filtered to status=ready, with a
// multi_match on title/description plus nested should-matches on
// tags/entities/topics names.
func (c *Client) SearchVideosBM25(ctx context.Context, queryText string, historyIDs []string, size int) ([]VideoHit, error) {
	ctx, cancel := requestTimeout(ctx)
	defer cancel()

	mustNot := []any{}
	if len(historyIDs) > 0 {
		mustNot = append(mustNot, map[string]any{"ids": map[string]any{"values": historyIDs}})
	}

	nestedShould := func(path, field string, boost float64) map[string]any {
		return map[string]any{
			"nested": map[string]any{
				"path": path,
				"query": map[string]any{
					"match": map[string]any{
						path + "." + field: map[string]any{"query": queryText, "boost": boost},
					},
				},
			},
		}
	}

	body, err := json.Marshal(map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must_not": mustNot,
				"filter": []any{
					map[string]any{"term": map[string]any{"status": "ready"}},
				},
				"should": []any{
					map[string]any{
						"multi_match": map[string]any{
							"query":  queryText,
							"fields": []string{"title^3", "description^2"},
						},
					},
					nestedShould("tags", "name", 2),
					nestedShould("entities", "name", 2),
					nestedShould("topics", "name", 1),
				},
				"minimum_should_match": 1,
			},
		},
	})
	if err != nil {
		return nil, apierr.Terminal(err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{IndexVideos},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, apierr.Transient(err)
	}
	defer drain(res.Body)
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, apierr.Transient(fmt.Errorf("search videos bm25: %s", string(msg)))
	}

	var parsed searchEnvelope[VideoDoc]
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apierr.Transient(err)
	}
	hits := make([]VideoHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, VideoHit{Doc: h.Source, BM25Score: h.Score})
	}
	return hits, nil
}

// MGetEmbeddings fetches the stored embedding for each video id from the
// videos index in one round trip; ids with no document or no embedding
// field are simply absent from the result map.
func (c *Client) MGetEmbeddings(ctx context.Context, ids []string) (map[string][]float32, error) {
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}
	ctx, cancel := requestTimeout(ctx)
	defer cancel()

	docs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, map[string]any{"_index": IndexVideos, "_id": id, "_source": []string{"embedding"}})
	}
	body, err := json.Marshal(map[string]any{"docs": docs})
	if err != nil {
		return nil, apierr.Terminal(err)
	}
	req := opensearchapi.MgetRequest{Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, apierr.Transient(err)
	}
	defer drain(res.Body)
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, apierr.Transient(fmt.Errorf("mget embeddings: %s", string(msg)))
	}

	var parsed struct {
		Docs []struct {
			ID     string `json:"_id"`
			Found  bool   `json:"found"`
			Source struct {
				Embedding []float32 `json:"embedding"`
			} `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apierr.Transient(err)
	}
	out := make(map[string][]float32, len(parsed.Docs))
	for _, d := range parsed.Docs {
		if d.Found && len(d.Source.Embedding) > 0 {
			out[d.ID] = d.Source.Embedding
		}
	}
	return out, nil
}

// MGetVideos fetches the full videos document for each id in one round
// trip, backing the Recall & Rerank Engine graph lane's "hydrate
// candidates from the search index" step (spec.md §4.7). Ids with no
// document are simply absent from the result map.
func (c *Client) MGetVideos(ctx context.Context, ids []string) (map[string]VideoDoc, error) {
	if len(ids) == 0 {
		return map[string]VideoDoc{}, nil
	}
	ctx, cancel := requestTimeout(ctx)
	defer cancel()

	docs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, map[string]any{"_index": IndexVideos, "_id": id})
	}
	body, err := json.Marshal(map[string]any{"docs": docs})
	if err != nil {
		return nil, apierr.Terminal(err)
	}
	req := opensearchapi.MgetRequest{Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, apierr.Transient(err)
	}
	defer drain(res.Body)
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, apierr.Transient(fmt.Errorf("mget videos: %s", string(msg)))
	}

	var parsed struct {
		Docs []struct {
			ID     string   `json:"_id"`
			Found  bool     `json:"found"`
			Source VideoDoc `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apierr.Transient(err)
	}
	out := make(map[string]VideoDoc, len(parsed.Docs))
	for _, d := range parsed.Docs {
		if d.Found {
			out[d.ID] = d.Source
		}
	}
	return out, nil
}

// SearchTranscript backs the Full-text Search Endpoint collaborator
// (spec.md §4.8): a phrase match first, falling back to a term match with
// minimum_should_match scaled by token count when the phrase match comes up
// empty, optionally scoped to a single video. Mirrors the coverage-ratio
// fallback routes_search.py applies client-side, expressed as an
// OpenSearch-native minimum_should_match instead.
func (c *Client) SearchTranscript(ctx context.Context, videoID, queryText string, size int) ([]TranscriptHit, error) {
	ctx, cancel := requestTimeout(ctx)
	defer cancel()

	phraseHits, err := c.searchTranscriptQuery(ctx, videoID, size, map[string]any{
		"match_phrase": map[string]any{"text": queryText},
	})
	if err != nil {
		return nil, err
	}
	if len(phraseHits) > 0 {
		return phraseHits, nil
	}

	return c.searchTranscriptQuery(ctx, videoID, size, map[string]any{
		"match": map[string]any{
			"text": map[string]any{
				"query":                queryText,
				"minimum_should_match": minimumShouldMatchFor(len(strings.Fields(queryText))),
			},
		},
	})
}

// minimumShouldMatchFor relaxes the required token-match percentage as the
// query grows longer, so a long spoken-word query isn't held to an
// all-tokens-present bar a transcript rarely satisfies verbatim.
func minimumShouldMatchFor(tokenCount int) string {
	switch {
	case tokenCount <= 3:
		return "100%"
	case tokenCount <= 6:
		return "75%"
	default:
		return "60%"
	}
}

func (c *Client) searchTranscriptQuery(ctx context.Context, videoID string, size int, mustClause map[string]any) ([]TranscriptHit, error) {
	must := []any{mustClause}
	var filter []any
	if videoID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"video_id": videoID}})
	}
	body, err := json.Marshal(map[string]any{
		"size":  size,
		"query": map[string]any{"bool": map[string]any{"must": must, "filter": filter}},
	})
	if err != nil {
		return nil, apierr.Terminal(err)
	}
	req := opensearchapi.SearchRequest{Index: []string{IndexTranscriptChunks}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, apierr.Transient(err)
	}
	defer drain(res.Body)
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, apierr.Transient(fmt.Errorf("search transcript: %s", string(msg)))
	}
	var parsed searchEnvelope[TranscriptChunkDoc]
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apierr.Transient(err)
	}
	out := make([]TranscriptHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, TranscriptHit{Doc: h.Source, Score: h.Score})
	}
	return out, nil
}

type searchEnvelope[T any] struct {
	Hits struct {
		Hits []struct {
			Source T       `json:"_source"`
			Score  float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

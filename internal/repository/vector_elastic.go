package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	// upper bound Elasticsearch accepts for knn.num_candidates
	maxNumCandidates    = 10000
	maxIdleConnsPerNode = 32
)

var _ VectorStore = &VectorElastic{}

// VectorElastic stores chunks in one Elasticsearch index with a dense_vector field.
// Chunks are written uncommitted and flipped to committed in one update, search only sees committed ones.
type VectorElastic struct {
	client              *elasticsearch.Client
	index               string
	dimensions          int
	numCandidatesFactor int
	retry               pkgRetry.RetryConfig
}

// esChunk is the stored document shape
type esChunk struct {
	DocumentID         string    `json:"document_id"`
	ChunkID            string    `json:"chunk_id"`
	Filename           string    `json:"filename"`
	SequenceIndex      int       `json:"sequence_index"`
	PageRefs           []int     `json:"page_refs"`
	StartOffset        int       `json:"start_offset"`
	EndOffset          int       `json:"end_offset"`
	Text               string    `json:"text"`
	Vector             []float32 `json:"vector,omitempty"`
	EmbeddingDimension int       `json:"embedding_dimension"`
	Committed          bool      `json:"committed"`
	IndexedAt          time.Time `json:"indexed_at"`
}

func NewVectorElastic(cfg config.ElasticsearchConfig, dimensions int) (*VectorElastic, error) {
	httpClient := pkghttp.NewClient(
		pkghttp.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		pkghttp.WithMaxIdleConnsPerHost(maxIdleConnsPerNode),
		pkghttp.WithRequestTimeout(0),
		pkghttp.WithRequestLogging(),
	)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: httpClient.Transport,
		// Retries go through the shared policy so they are logged and bounded the same way
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create elasticsearch client: %v", entity.ErrConfig, err)
	}

	return &VectorElastic{
		client:              client,
		index:               cfg.Index,
		dimensions:          dimensions,
		numCandidatesFactor: max(cfg.NumCandidatesFactor, 1),
		retry:               cfg.Retry,
	}, nil
}

// EnsureIndex creates the index when missing and checks the vector size of an existing one
func (s *VectorElastic) EnsureIndex(ctx context.Context) error {
	status, err := s.call(ctx, "index exists", nil, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	}, http.StatusNotFound)
	if err != nil {
		return err
	}

	if status == http.StatusNotFound {
		return s.createIndex(ctx)
	}

	dims, err := s.mappedDimensions(ctx)
	if err != nil {
		return err
	}
	if dims != s.dimensions {
		return fmt.Errorf("%w: index %s stores %d-dimensional vectors, embedding model produces %d",
			entity.ErrDimensionMismatch, s.index, dims, s.dimensions)
	}

	ctxzap.Info(ctx, "elasticsearch index ready", zap.String("index", s.index), zap.Int("dimensions", dims))
	return nil
}

func (s *VectorElastic) createIndex(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"document_id":         map[string]any{"type": "keyword"},
				"chunk_id":            map[string]any{"type": "keyword"},
				"filename":            map[string]any{"type": "keyword"},
				"sequence_index":      map[string]any{"type": "integer"},
				"page_refs":           map[string]any{"type": "integer"},
				"start_offset":        map[string]any{"type": "integer"},
				"end_offset":          map[string]any{"type": "integer"},
				"text":                map[string]any{"type": "text"},
				"embedding_dimension": map[string]any{"type": "integer"},
				"committed":           map[string]any{"type": "boolean"},
				"indexed_at":          map[string]any{"type": "date"},
				"vector": map[string]any{
					"type":       "dense_vector",
					"dims":       s.dimensions,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	_, err = s.call(ctx, "create index", nil, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.Indices.Create(s.index,
			s.client.Indices.Create.WithContext(ctx),
			s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		)
	})
	if err != nil {
		return err
	}

	ctxzap.Info(ctx, "elasticsearch index created", zap.String("index", s.index), zap.Int("dimensions", s.dimensions))
	return nil
}

func (s *VectorElastic) mappedDimensions(ctx context.Context) (int, error) {
	var mapping map[string]struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
				Dims int    `json:"dims"`
			} `json:"properties"`
		} `json:"mappings"`
	}

	_, err := s.call(ctx, "get mapping", &mapping, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.Indices.GetMapping(
			s.client.Indices.GetMapping.WithContext(ctx),
			s.client.Indices.GetMapping.WithIndex(s.index),
		)
	})
	if err != nil {
		return 0, err
	}

	// The response is keyed by the concrete index name, which differs when s.index is an alias
	for _, m := range mapping {
		if v, ok := m.Mappings.Properties["vector"]; ok && v.Type == "dense_vector" {
			return v.Dims, nil
		}
	}

	return 0, fmt.Errorf("%w: index %s has no dense_vector field named vector", entity.ErrDimensionMismatch, s.index)
}

// Write indexes all chunks uncommitted in one bulk request, then commits them in one update
func (s *VectorElastic) Write(ctx context.Context, documentID string, chunks []entity.Chunk) (int, error) {
	if err := validateWrite(documentID, chunks, s.dimensions); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	body, err := s.bulkBody(chunks)
	if err != nil {
		return 0, err
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error,omitempty"`
		} `json:"items"`
	}

	_, err = s.call(ctx, "bulk index", &bulkResp, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.Bulk(bytes.NewReader(body),
			s.client.Bulk.WithContext(ctx),
			s.client.Bulk.WithIndex(s.index),
			// The commit update below searches, so the uncommitted chunks must be visible to it
			s.client.Bulk.WithRefresh("wait_for"),
		)
	})
	if err != nil {
		return 0, err
	}

	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, res := range item {
				if res.Error == nil {
					continue
				}
				err := fmt.Errorf("%w: bulk item %s failed with %d: %s: %s",
					entity.ErrStoreUnavailable, res.ID, res.Status, res.Error.Type, res.Error.Reason)
				if pkghttp.IsRetryableStatus(res.Status) {
					return 0, err
				}
				return 0, entity.Permanent(err)
			}
		}
		return 0, fmt.Errorf("%w: bulk request reported errors", entity.ErrStoreUnavailable)
	}

	committed, err := s.commit(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if committed != len(chunks) {
		return 0, fmt.Errorf("%w: committed %d of %d chunks of document %s",
			entity.ErrStoreUnavailable, committed, len(chunks), documentID)
	}

	ctxzap.Debug(ctx, "chunks written to elasticsearch",
		zap.String("index", s.index),
		zap.Int("chunks", len(chunks)),
	)

	return len(chunks), nil
}

func (s *VectorElastic) bulkBody(chunks []entity.Chunk) ([]byte, error) {
	now := time.Now().UTC()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range chunks {
		meta := map[string]any{"index": map[string]any{"_id": c.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk meta: %w", err)
		}
		doc := esChunk{
			DocumentID:         c.DocumentID,
			ChunkID:            c.ID,
			Filename:           c.Filename,
			SequenceIndex:      c.SequenceIndex,
			PageRefs:           c.Pages,
			StartOffset:        c.StartOffset,
			EndOffset:          c.EndOffset,
			Text:               c.Text,
			Vector:             c.Vector,
			EmbeddingDimension: len(c.Vector),
			Committed:          false,
			IndexedAt:          now,
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode bulk document: %w", err)
		}
	}

	return buf.Bytes(), nil
}

func (s *VectorElastic) commit(ctx context.Context, documentID string) (int, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"document_id": documentID}},
		"script": map[string]any{
			"source": "ctx._source.committed = true",
			"lang":   "painless",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal commit query: %w", err)
	}

	var resp struct {
		Total    int               `json:"total"`
		Updated  int               `json:"updated"`
		Noops    int               `json:"noops"`
		Failures []json.RawMessage `json:"failures"`
	}

	_, err = s.call(ctx, "commit document", &resp, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.UpdateByQuery([]string{s.index},
			s.client.UpdateByQuery.WithContext(ctx),
			s.client.UpdateByQuery.WithBody(bytes.NewReader(body)),
			s.client.UpdateByQuery.WithRefresh(true),
			s.client.UpdateByQuery.WithConflicts("proceed"),
		)
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Failures) > 0 {
		return 0, fmt.Errorf("%w: commit of document %s had %d failures", entity.ErrStoreUnavailable, documentID, len(resp.Failures))
	}

	return resp.Updated + resp.Noops, nil
}

// Search runs an approximate kNN query over committed chunks
func (s *VectorElastic) Search(ctx context.Context, vector []float32, k int) (*entity.RetrievalResult, error) {
	if err := validateSearch(vector, k, s.dimensions); err != nil {
		return nil, err
	}

	numCandidates := min(max(k*s.numCandidatesFactor, k), maxNumCandidates)
	body, err := json.Marshal(map[string]any{
		"size": k,
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
			"filter":         map[string]any{"term": map[string]any{"committed": true}},
		},
		"_source": map[string]any{"excludes": []string{"vector"}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source esChunk `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	_, err = s.call(ctx, "knn search", &resp, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.Search(
			s.client.Search.WithContext(ctx),
			s.client.Search.WithIndex(s.index),
			s.client.Search.WithBody(bytes.NewReader(body)),
		)
	})
	if err != nil {
		return nil, err
	}

	scored := make([]entity.ScoredChunk, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		src := hit.Source
		scored = append(scored, entity.ScoredChunk{
			Chunk: entity.IndexedChunk{
				Chunk: entity.Chunk{
					ID:            src.ChunkID,
					DocumentID:    src.DocumentID,
					Filename:      src.Filename,
					SequenceIndex: src.SequenceIndex,
					Pages:         src.PageRefs,
					Text:          src.Text,
					StartOffset:   src.StartOffset,
					EndOffset:     src.EndOffset,
				},
				StoreID:   hit.ID,
				IndexedAt: src.IndexedAt,
			},
			// Elasticsearch reports cosine similarity as (1 + cos) / 2
			Score: 2*hit.Score - 1,
		})
	}

	sortScored(scored)
	if len(scored) > k {
		scored = scored[:k]
	}

	return &entity.RetrievalResult{Chunks: scored}, nil
}

// DeleteDocument removes every chunk of a document, committed or not
func (s *VectorElastic) DeleteDocument(ctx context.Context, documentID string) error {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"document_id": documentID}},
	})
	if err != nil {
		return fmt.Errorf("marshal delete query: %w", err)
	}

	var resp struct {
		Deleted int `json:"deleted"`
	}

	_, err = s.call(ctx, "delete document", &resp, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.DeleteByQuery([]string{s.index}, bytes.NewReader(body),
			s.client.DeleteByQuery.WithContext(ctx),
			s.client.DeleteByQuery.WithRefresh(true),
			s.client.DeleteByQuery.WithConflicts("proceed"),
		)
	})
	if err != nil {
		return err
	}

	ctxzap.Debug(ctx, "document chunks deleted", zap.String("document_id", documentID), zap.Int("deleted", resp.Deleted))
	return nil
}

// Count returns the number of searchable chunks
func (s *VectorElastic) Count(ctx context.Context) (int64, error) {
	body := []byte(`{"query":{"term":{"committed":true}}}`)

	var resp struct {
		Count int64 `json:"count"`
	}

	_, err := s.call(ctx, "count", &resp, func(ctx context.Context) (*esapi.Response, error) {
		return s.client.Count(
			s.client.Count.WithContext(ctx),
			s.client.Count.WithIndex(s.index),
			s.client.Count.WithBody(bytes.NewReader(body)),
		)
	})
	if err != nil {
		return 0, err
	}

	return resp.Count, nil
}

// Health maps cluster health for the index: green is available, yellow degraded, anything else unavailable
func (s *VectorElastic) Health(ctx context.Context) entity.HealthStatus {
	res, err := s.client.Cluster.Health(
		s.client.Cluster.Health.WithContext(ctx),
		s.client.Cluster.Health.WithIndex(s.index),
	)
	if err != nil {
		ctxzap.Warn(ctx, "elasticsearch health check failed", zap.Error(err))
		return entity.HealthUnavailable
	}
	defer res.Body.Close()

	if res.IsError() {
		ctxzap.Warn(ctx, "elasticsearch health check returned error", zap.Int("status", res.StatusCode))
		return entity.HealthUnavailable
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return entity.HealthUnavailable
	}

	switch resp.Status {
	case "green":
		return entity.HealthAvailable
	case "yellow":
		return entity.HealthDegraded
	default:
		return entity.HealthUnavailable
	}
}

// call runs one API request under the retry policy and decodes a successful body into out.
// Statuses listed in accept are returned without error and without decoding.
func (s *VectorElastic) call(ctx context.Context, name string, out any,
	do func(ctx context.Context) (*esapi.Response, error), accept ...int,
) (int, error) {
	return pkgRetry.Do(ctx, s.retry, "elasticsearch "+name, entity.IsTransient, func(ctx context.Context) (int, error) {
		res, err := do(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", entity.ErrStoreUnavailable, name, err)
		}
		defer res.Body.Close()

		for _, code := range accept {
			if res.StatusCode == code {
				_, _ = io.Copy(io.Discard, res.Body)
				return res.StatusCode, nil
			}
		}

		if res.IsError() {
			msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			err := fmt.Errorf("%w: %s: HTTP %d: %s", entity.ErrStoreUnavailable, name, res.StatusCode, strings.TrimSpace(string(msg)))
			if pkghttp.IsRetryableStatus(res.StatusCode) {
				return res.StatusCode, err
			}
			return res.StatusCode, entity.Permanent(err)
		}

		if out != nil {
			if err := json.NewDecoder(res.Body).Decode(out); err != nil {
				return res.StatusCode, entity.Permanent(fmt.Errorf("%w: %s: decode response: %v", entity.ErrStoreUnavailable, name, err))
			}
		} else {
			_, _ = io.Copy(io.Discard, res.Body)
		}

		return res.StatusCode, nil
	})
}

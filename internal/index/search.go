package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// DefaultSearchAPIVersion is the service API version used when none is
// configured.
const DefaultSearchAPIVersion = "2023-11-01"

// searchIndex talks to a remote text-search service over REST:
// PUT /indexes/{name} for the schema, POST /indexes/{name}/docs/index for
// batched upload, GET /indexes/{name}/stats for validation.
type searchIndex struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func newSearchIndex(cfg Config, logger *zap.Logger) (*searchIndex, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search index: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search index: api key is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("search index: index name is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultSearchAPIVersion
	}
	return &searchIndex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// schemaField is one field definition in the index schema.
type schemaField struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Sortable            *bool  `json:"sortable,omitempty"`
	Facetable           *bool  `json:"facetable,omitempty"`
	Filterable          *bool  `json:"filterable,omitempty"`
	Retrievable         *bool  `json:"retrievable,omitempty"`
	Analyzer            string `json:"analyzer,omitempty"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

// schemaBody builds the declarative index definition. The fixed field set is
// id/content/title/filepath/url/metadata; a vector field is added only when a
// vector profile is configured.
func (s *searchIndex) schemaBody() map[string]interface{} {
	no := false
	analyzer := ""
	if s.cfg.Language != "" {
		analyzer = s.cfg.Language + ".lucene"
	}
	fields := []schemaField{
		{Name: "id", Type: "Edm.String", Searchable: true, Key: true},
		{Name: "content", Type: "Edm.String", Searchable: true, Sortable: &no, Facetable: &no, Filterable: &no, Analyzer: analyzer},
		{Name: "title", Type: "Edm.String", Searchable: true, Sortable: &no, Facetable: &no, Filterable: &no, Analyzer: analyzer},
		{Name: "filepath", Type: "Edm.String", Searchable: true, Sortable: &no, Facetable: &no, Filterable: &no},
		{Name: "url", Type: "Edm.String", Searchable: true},
		{Name: "metadata", Type: "Edm.String", Searchable: true},
	}

	body := map[string]interface{}{
		"fields":          fields,
		"suggesters":      []interface{}{},
		"scoringProfiles": []interface{}{},
		"semantic": map[string]interface{}{
			"configurations": []map[string]interface{}{
				{
					"name": s.cfg.SemanticConfigName,
					"prioritizedFields": map[string]interface{}{
						"titleField":                map[string]string{"fieldName": "title"},
						"prioritizedContentFields":  []map[string]string{{"fieldName": "content"}},
						"prioritizedKeywordsFields": []interface{}{},
					},
				},
			},
		},
	}

	if s.cfg.VectorConfigName != "" {
		yes := true
		fields = append(fields, schemaField{
			Name:                "contentVector",
			Type:                "Collection(Edm.Single)",
			Searchable:          true,
			Retrievable:         &yes,
			Dimensions:          s.cfg.Dimensions,
			VectorSearchProfile: s.cfg.VectorConfigName,
		})
		body["fields"] = fields
		body["vectorSearch"] = map[string]interface{}{
			"algorithms": []map[string]interface{}{
				{
					"name": "hnsm-fast",
					"kind": "hnsw",
					"hnswParameters": map[string]interface{}{
						"m": 4, "efConstruction": 400, "efSearch": 500, "metric": "cosine",
					},
				},
				{
					"name": "hnsm-complete",
					"kind": "hnsw",
					"hnswParameters": map[string]interface{}{
						"m": 8, "efConstruction": 800, "efSearch": 800, "metric": "cosine",
					},
				},
			},
			"profiles": []map[string]interface{}{
				{"name": s.cfg.VectorConfigName, "algorithm": "hnsm-fast"},
			},
		}
	}
	return body
}

// EnsureSchema PUTs the index definition. 201 means the index was created,
// 204 means an existing index was updated in place.
func (s *searchIndex) EnsureSchema(ctx context.Context) (SchemaResult, error) {
	url := fmt.Sprintf("%s/indexes/%s?api-version=%s",
		strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.IndexName, s.cfg.APIVersion)
	payload, err := json.Marshal(s.schemaBody())
	if err != nil {
		return 0, fmt.Errorf("encode schema: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPut, url, payload)
	if err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		s.logger.Info("created search index", zap.String("index", s.cfg.IndexName))
		return SchemaCreated, nil
	case http.StatusNoContent:
		s.logger.Info("updated existing search index", zap.String("index", s.cfg.IndexName))
		return SchemaUpdated, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("ensure schema: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// uploadDoc is the wire form of one document in an upload batch.
type uploadDoc struct {
	Action        string    `json:"@search.action"`
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Filepath      string    `json:"filepath"`
	URL           string    `json:"url"`
	Metadata      string    `json:"metadata"`
	ContentVector []float32 `json:"contentVector,omitempty"`
}

type uploadResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"value"`
}

// UploadBatch submits documents in batches, assigning sequential ids across
// the whole call. A document without an embedding simply omits the vector
// field instead of sending null.
func (s *searchIndex) UploadBatch(ctx context.Context, docs []*models.Document) error {
	wire := make([]uploadDoc, len(docs))
	for i, doc := range docs {
		metadata := ""
		if doc.Metadata != nil {
			if encoded, err := json.Marshal(doc.Metadata); err == nil {
				metadata = string(encoded)
			}
		}
		wire[i] = uploadDoc{
			Action:   "upload",
			ID:       strconv.Itoa(i),
			Title:    doc.Title,
			Content:  doc.Content,
			Filepath: doc.Filepath,
			URL:      doc.URL,
			Metadata: metadata,
			// nil slices are dropped by omitempty
			ContentVector: doc.ContentVector,
		}
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s",
		strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.IndexName, s.cfg.APIVersion)

	bar := progressbar.NewOptions(len(wire),
		progressbar.OptionSetDescription("Indexing chunks..."),
		progressbar.OptionSetVisibility(s.logger.Core().Enabled(zap.DebugLevel)),
	)
	uploadErr := newUploadError()
	for start := 0; start < len(wire); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(wire) {
			end = len(wire)
		}
		if err := s.uploadOne(ctx, url, wire[start:end], uploadErr); err != nil {
			return err
		}
		_ = bar.Add(end - start)
	}
	if uploadErr.Failures > 0 {
		return uploadErr
	}
	return nil
}

// uploadOne submits a single batch and folds per-document failures into agg.
// A transport or whole-batch error is returned directly.
func (s *searchIndex) uploadOne(ctx context.Context, url string, batch []uploadDoc, agg *UploadError) error {
	payload, err := json.Marshal(map[string]interface{}{"value": batch})
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return fmt.Errorf("upload batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload batch: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode upload response: %w", err)
	}
	for _, item := range result.Value {
		if !item.Status {
			s.logger.Warn("indexing failed for document",
				zap.String("key", item.Key), zap.String("error", item.ErrorMessage))
			agg.add(item.ErrorMessage)
		}
	}
	return nil
}

type statsResponse struct {
	DocumentCount int64 `json:"documentCount"`
	StorageSize   int64 `json:"storageSize"`
}

// Validate polls GET /stats up to the configured retry count, waiting between
// polls while the index remains empty. Cancellation via ctx ends the wait
// early with an unavailable report.
func (s *searchIndex) Validate(ctx context.Context) *ValidationReport {
	url := fmt.Sprintf("%s/indexes/%s/stats?api-version=%s",
		strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.IndexName, s.cfg.APIVersion)

	report := &ValidationReport{}
	for attempt := 0; attempt < s.cfg.ValidationRetries; attempt++ {
		report.Polls = attempt + 1
		resp, err := s.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			report.Status = ValidationUnavailable
			report.Message = err.Error()
			return report
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusNotFound:
				report.Status = ValidationNotFound
				report.Message = "index does not exist, check the service and index names"
			case http.StatusForbidden:
				report.Status = ValidationAuthFailed
				report.Message = "authentication failure, check the api key"
			default:
				report.Status = ValidationUnavailable
				report.Message = fmt.Sprintf("stats request failed with status %d", resp.StatusCode)
			}
			return report
		}

		var stats statsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&stats)
		resp.Body.Close()
		if decodeErr != nil {
			report.Status = ValidationUnavailable
			report.Message = fmt.Sprintf("decode stats: %v", decodeErr)
			return report
		}

		if stats.DocumentCount > 0 {
			report.Status = ValidationPopulated
			report.DocumentCount = stats.DocumentCount
			report.StorageSize = stats.StorageSize
			s.logger.Info("index validated",
				zap.Int64("documents", stats.DocumentCount),
				zap.Int64("avg_chunk_bytes", report.AverageChunkSize()))
			return report
		}

		if attempt < s.cfg.ValidationRetries-1 {
			s.logger.Info("index is empty, waiting before next check",
				zap.Duration("wait", s.cfg.ValidationWait))
			select {
			case <-ctx.Done():
				report.Status = ValidationUnavailable
				report.Message = ctx.Err().Error()
				return report
			case <-time.After(s.cfg.ValidationWait):
			}
		}
	}

	report.Status = ValidationEmpty
	report.Message = "index is still empty, investigate and re-index"
	return report
}

func (s *searchIndex) Close() error { return nil }

func (s *searchIndex) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)
	return s.httpClient.Do(req)
}

// Package index publishes document chunks to a search index and validates
// the result. Three backends implement the same capability set: a remote
// text-search service, a document database with a vector index, and an
// embedded bleve index for local runs.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// Upload and validation defaults, shared by all backends.
const (
	DefaultBatchSize         = 50
	DefaultValidationRetries = 5
	DefaultValidationWait    = 60 * time.Second
	DefaultDimensions        = 1536
)

// Backend kinds selectable from configuration.
const (
	KindSearch = "search"
	KindMongo  = "mongo"
	KindBleve  = "bleve"
)

// ErrUnknownKind is returned by New for an unrecognized backend kind.
var ErrUnknownKind = errors.New("unknown index backend kind")

// SchemaResult reports what EnsureSchema did to the remote index.
type SchemaResult int

const (
	SchemaCreated SchemaResult = iota
	SchemaUpdated
)

func (r SchemaResult) String() string {
	if r == SchemaCreated {
		return "created"
	}
	return "updated"
}

// ValidationStatus classifies the outcome of a validation pass.
type ValidationStatus int

const (
	// ValidationPopulated means the index reports a non-zero document count.
	ValidationPopulated ValidationStatus = iota
	// ValidationEmpty means every poll saw zero documents.
	ValidationEmpty
	// ValidationNotFound means the index does not exist on the service.
	ValidationNotFound
	// ValidationAuthFailed means the service rejected the credentials.
	ValidationAuthFailed
	// ValidationUnavailable means the service could not be reached or
	// returned an unexpected response.
	ValidationUnavailable
)

func (s ValidationStatus) String() string {
	switch s {
	case ValidationPopulated:
		return "populated"
	case ValidationEmpty:
		return "empty"
	case ValidationNotFound:
		return "not-found"
	case ValidationAuthFailed:
		return "auth-failed"
	default:
		return "unavailable"
	}
}

// ValidationReport is the observational result of Validate. Validation never
// fails a run; callers inspect the status and log accordingly.
type ValidationReport struct {
	Status        ValidationStatus
	DocumentCount int64
	StorageSize   int64
	Polls         int
	Message       string
}

// OK reports whether the index was confirmed populated.
func (r *ValidationReport) OK() bool {
	return r.Status == ValidationPopulated
}

// AverageChunkSize returns storage bytes per document, 0 when empty.
func (r *ValidationReport) AverageChunkSize() int64 {
	if r.DocumentCount == 0 {
		return 0
	}
	return r.StorageSize / r.DocumentCount
}

// UploadError aggregates per-document upload failures across all batches.
// Any failure corrupts the run: the operator is expected to recreate the
// index rather than patch individual documents.
type UploadError struct {
	Failures int
	messages map[string]struct{}
}

func newUploadError() *UploadError {
	return &UploadError{messages: make(map[string]struct{})}
}

func (e *UploadError) add(msg string) {
	e.Failures++
	e.messages[msg] = struct{}{}
}

// Messages returns the distinct failure messages, sorted.
func (e *UploadError) Messages() []string {
	out := make([]string, 0, len(e.messages))
	for msg := range e.messages {
		out = append(out, msg)
	}
	sort.Strings(out)
	return out
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("indexing failed for %d documents, recreate the index (errors: %s)",
		e.Failures, strings.Join(e.Messages(), "; "))
}

// Index is the capability set common to all backends.
type Index interface {
	// EnsureSchema idempotently creates or updates the index definition.
	EnsureSchema(ctx context.Context) (SchemaResult, error)

	// UploadBatch uploads documents in fixed-size batches, assigning
	// sequential string ids. Returns an *UploadError if any document fails.
	UploadBatch(ctx context.Context, docs []*models.Document) error

	// Validate polls the index statistics and classifies the outcome.
	// It reports, it never fails.
	Validate(ctx context.Context) *ValidationReport

	Close() error
}

// Config selects and parameterizes a backend. Kind decides which fields are
// consulted; Validate on the config package rejects incomplete combinations
// before this point.
type Config struct {
	Kind string

	// Remote search service (KindSearch).
	Endpoint           string
	APIKey             string
	APIVersion         string
	IndexName          string
	SemanticConfigName string
	VectorConfigName   string
	Language           string
	Dimensions         int

	// Document database (KindMongo).
	ConnectionString string
	DatabaseName     string
	CollectionName   string
	VectorField      string

	// Embedded index (KindBleve).
	Path string

	BatchSize         int
	ValidationRetries int
	ValidationWait    time.Duration
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ValidationRetries <= 0 {
		c.ValidationRetries = DefaultValidationRetries
	}
	if c.ValidationWait <= 0 {
		c.ValidationWait = DefaultValidationWait
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
}

// New constructs the backend named by cfg.Kind.
func New(cfg Config, logger *zap.Logger) (Index, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Kind {
	case KindSearch:
		return newSearchIndex(cfg, logger)
	case KindMongo:
		return newMongoIndex(cfg, logger)
	case KindBleve:
		return newBleveIndex(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

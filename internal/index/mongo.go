package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// mongoIndex publishes documents to a document database collection with a
// vector index (vector-ivf, cosine similarity) on the embedding field.
type mongoIndex struct {
	cfg    Config
	client *mongo.Client
	logger *zap.Logger
}

func newMongoIndex(cfg Config, logger *zap.Logger) (*mongoIndex, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("mongo index: connection string is required")
	}
	if cfg.DatabaseName == "" || cfg.CollectionName == "" {
		return nil, fmt.Errorf("mongo index: database and collection names are required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("mongo index: index name is required")
	}
	if cfg.VectorField == "" {
		cfg.VectorField = "contentvector"
	}
	return &mongoIndex{cfg: cfg, logger: logger}, nil
}

// connect establishes the client on first use so that constructing the index
// never blocks on the network.
func (m *mongoIndex) connect(ctx context.Context) (*mongo.Collection, error) {
	if m.client == nil {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.cfg.ConnectionString))
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		m.client = client
	}
	return m.client.Database(m.cfg.DatabaseName).Collection(m.cfg.CollectionName), nil
}

// hasVectorIndex reports whether the named index already exists on coll.
func (m *mongoIndex) hasVectorIndex(ctx context.Context, coll *mongo.Collection) (bool, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexes: %w", err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var spec bson.M
		if err := cursor.Decode(&spec); err != nil {
			return false, fmt.Errorf("decode index spec: %w", err)
		}
		if name, _ := spec["name"].(string); name == m.cfg.IndexName {
			return true, nil
		}
	}
	return false, cursor.Err()
}

// EnsureSchema creates the vector index when it is missing. An existing index
// is left untouched and reported as updated.
func (m *mongoIndex) EnsureSchema(ctx context.Context) (SchemaResult, error) {
	coll, err := m.connect(ctx)
	if err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}

	names, err := m.client.ListDatabaseNames(ctx, bson.M{"name": m.cfg.DatabaseName})
	if err != nil {
		return 0, fmt.Errorf("ensure schema: list databases: %w", err)
	}
	if len(names) > 0 {
		m.logger.Debug("database exists", zap.String("database", m.cfg.DatabaseName))
	}

	exists, err := m.hasVectorIndex(ctx, coll)
	if err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}
	if exists {
		m.logger.Info("vector index exists", zap.String("index", m.cfg.IndexName))
		return SchemaUpdated, nil
	}

	command := bson.D{
		{Key: "createIndexes", Value: m.cfg.CollectionName},
		{Key: "indexes", Value: bson.A{
			bson.D{
				{Key: "name", Value: m.cfg.IndexName},
				{Key: "key", Value: bson.D{{Key: m.cfg.VectorField, Value: "cosmosSearch"}}},
				{Key: "cosmosSearchOptions", Value: bson.D{
					{Key: "kind", Value: "vector-ivf"},
					{Key: "similarity", Value: "COS"},
					{Key: "dimensions", Value: m.cfg.Dimensions},
				}},
			},
		}},
	}
	if err := m.client.Database(m.cfg.DatabaseName).RunCommand(ctx, command).Err(); err != nil {
		return 0, fmt.Errorf("ensure schema: create vector index %s: %w", m.cfg.IndexName, err)
	}
	m.logger.Info("created vector index", zap.String("index", m.cfg.IndexName))
	return SchemaCreated, nil
}

// UploadBatch inserts each document with a generated "doc:<uuid>" identity
// and a sequential id. Per-document failures are aggregated; any failure
// fails the call.
func (m *mongoIndex) UploadBatch(ctx context.Context, docs []*models.Document) error {
	coll, err := m.connect(ctx)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	uploadErr := newUploadError()
	for i, doc := range docs {
		record := m.toRecord(i, doc)
		if _, insertErr := coll.InsertOne(ctx, record); insertErr != nil {
			m.logger.Warn("failed to insert doc chunk",
				zap.Int("id", i), zap.Error(insertErr))
			uploadErr.add(insertErr.Error())
			continue
		}
	}
	if uploadErr.Failures > 0 {
		return uploadErr
	}
	return nil
}

// toRecord maps a document to its stored form. The vector field is omitted
// entirely when the document has no embedding.
func (m *mongoIndex) toRecord(id int, doc *models.Document) bson.D {
	metadata := ""
	if doc.Metadata != nil {
		if encoded, err := json.Marshal(doc.Metadata); err == nil {
			metadata = string(encoded)
		}
	}
	record := bson.D{
		{Key: "_id", Value: "doc:" + uuid.New().String()},
		{Key: "id", Value: strconv.Itoa(id)},
		{Key: "title", Value: doc.Title},
		{Key: "filepath", Value: doc.Filepath},
		{Key: "url", Value: doc.URL},
		{Key: "content", Value: doc.Content},
		{Key: "metadata", Value: metadata},
	}
	if doc.ContentVector != nil {
		record = append(record, bson.E{Key: m.cfg.VectorField, Value: doc.ContentVector})
	}
	return record
}

// Validate confirms the vector index exists and polls the document count
// while the collection stays empty.
func (m *mongoIndex) Validate(ctx context.Context) *ValidationReport {
	report := &ValidationReport{}
	coll, err := m.connect(ctx)
	if err != nil {
		report.Status = ValidationUnavailable
		report.Message = err.Error()
		return report
	}

	exists, err := m.hasVectorIndex(ctx, coll)
	if err != nil {
		report.Status = ValidationUnavailable
		report.Message = err.Error()
		return report
	}
	if !exists {
		report.Polls = 1
		report.Status = ValidationNotFound
		report.Message = fmt.Sprintf("vector index %s not found on collection %s", m.cfg.IndexName, m.cfg.CollectionName)
		return report
	}

	for attempt := 0; attempt < m.cfg.ValidationRetries; attempt++ {
		report.Polls = attempt + 1
		count, countErr := coll.CountDocuments(ctx, bson.D{})
		if countErr != nil {
			report.Status = ValidationUnavailable
			report.Message = countErr.Error()
			return report
		}
		if count > 0 {
			report.Status = ValidationPopulated
			report.DocumentCount = count
			return report
		}
		if attempt < m.cfg.ValidationRetries-1 {
			select {
			case <-ctx.Done():
				report.Status = ValidationUnavailable
				report.Message = ctx.Err().Error()
				return report
			case <-time.After(m.cfg.ValidationWait):
			}
		}
	}
	report.Status = ValidationEmpty
	report.Message = "collection is still empty, investigate and re-index"
	return report
}

func (m *mongoIndex) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

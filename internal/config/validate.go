package config

import "fmt"

// ValidationError names the offending config field so operators can fix the
// file without reading code.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks structural constraints before any work starts. The first
// violated constraint is returned.
func (c *Config) Validate() error {
	if c.Ingestion.DataPath == "" {
		return &ValidationError{"ingestion.data_path", "is required"}
	}
	if c.Ingestion.ChunkSize <= 0 {
		return &ValidationError{"ingestion.chunk_size", "must be positive"}
	}
	if c.Ingestion.TokenOverlap < 0 || c.Ingestion.TokenOverlap >= c.Ingestion.ChunkSize {
		return &ValidationError{"ingestion.token_overlap",
			fmt.Sprintf("must satisfy 0 <= overlap < chunk_size, got %d with chunk_size %d",
				c.Ingestion.TokenOverlap, c.Ingestion.ChunkSize)}
	}
	if c.Ingestion.Workers < 1 || c.Ingestion.Workers > 32 {
		return &ValidationError{"ingestion.workers",
			fmt.Sprintf("must be between 1 and 32, got %d", c.Ingestion.Workers)}
	}

	if c.Extraction.Endpoint != "" {
		if c.Extraction.Mode != "ocr" && c.Extraction.Mode != "layout" {
			return &ValidationError{"extraction.mode",
				fmt.Sprintf("must be \"ocr\" or \"layout\", got %q", c.Extraction.Mode)}
		}
		if c.Extraction.APIKey == "" {
			return &ValidationError{"extraction.api_key", "is required when an endpoint is set"}
		}
	}
	if c.Embedding.Endpoint != "" {
		if c.Embedding.Deployment == "" {
			return &ValidationError{"embedding.deployment", "is required when an endpoint is set"}
		}
		if c.Embedding.APIKey == "" {
			return &ValidationError{"embedding.api_key", "is required when an endpoint is set"}
		}
	}

	switch c.Index.Kind {
	case "search":
		if c.Index.Endpoint == "" {
			return &ValidationError{"index.endpoint", "is required for kind \"search\""}
		}
		if c.Index.APIKey == "" {
			return &ValidationError{"index.api_key", "is required for kind \"search\""}
		}
		if c.Index.Name == "" {
			return &ValidationError{"index.name", "is required for kind \"search\""}
		}
	case "mongo":
		if c.Index.ConnectionString == "" {
			return &ValidationError{"index.connection_string", "is required for kind \"mongo\""}
		}
		if c.Index.DatabaseName == "" || c.Index.CollectionName == "" {
			return &ValidationError{"index.database_name", "database and collection names are required for kind \"mongo\""}
		}
		if c.Index.Name == "" {
			return &ValidationError{"index.name", "is required for kind \"mongo\""}
		}
	case "bleve":
		if c.Index.Path == "" {
			return &ValidationError{"index.path", "is required for kind \"bleve\""}
		}
	default:
		return &ValidationError{"index.kind",
			fmt.Sprintf("must be \"search\", \"mongo\", or \"bleve\", got %q", c.Index.Kind)}
	}
	return nil
}

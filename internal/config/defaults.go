package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 1024
	}
	if cfg.Ingestion.Workers == 0 {
		cfg.Ingestion.Workers = 4
	}
	if cfg.Ingestion.RetrievalType == "" {
		cfg.Ingestion.RetrievalType = "PROPRIETARY_SEARCH"
	}
	if cfg.Ledger.DatabasePath == "" {
		cfg.Ledger.DatabasePath = "/usr/local/var/akb/data/ledger.db"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 86400
	}
	if cfg.Extraction.Mode == "" {
		cfg.Extraction.Mode = "layout"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Index.Kind == "" {
		cfg.Index.Kind = "search"
	}
	if cfg.Index.SemanticConfigName == "" {
		cfg.Index.SemanticConfigName = "default"
	}
	if cfg.Index.VectorField == "" {
		cfg.Index.VectorField = "contentvector"
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 50
	}
	if cfg.Index.ValidationRetries == 0 {
		cfg.Index.ValidationRetries = 5
	}
	if cfg.Index.ValidationWaitSecs == 0 {
		cfg.Index.ValidationWaitSecs = 60
	}
	if cfg.Watch.DebounceSeconds == 0 {
		cfg.Watch.DebounceSeconds = 5
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".json", ".csv", ".html", ".pdf", ".docx", ".pptx", ".xlsx"}
	}
}

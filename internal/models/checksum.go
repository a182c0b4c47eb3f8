package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ContentChecksum returns the MD5 digest of the file at path, read in 4 KiB
// chunks. The digest identifies file content, not metadata: any byte-level
// change produces a new checksum.
func ContentChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, 4096)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("checksum staged file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ServiceChecksum hashes an external service's identity and configuration.
// It is stored alongside cached extraction/embedding output so a change to the
// service (endpoint, mode, deployment, API version) invalidates the cache.
func ServiceChecksum(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		io.WriteString(h, p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewIngestionRecord builds a ledger record for a staged file: the content
// checksum and size are computed from stagingPath.
func NewIngestionRecord(url, stagingPath string) (*IngestionRecord, error) {
	checksum, err := ContentChecksum(stagingPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}
	now := time.Now().UTC()
	return &IngestionRecord{
		URL:         url,
		Checksum:    checksum,
		Size:        info.Size(),
		StagingPath: stagingPath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// EncodeEmbeddings serializes per-chunk embedding vectors for ledger storage.
func EncodeEmbeddings(vectors [][]float32) (string, error) {
	if len(vectors) == 0 {
		return "", nil
	}
	data, err := json.Marshal(vectors)
	if err != nil {
		return "", fmt.Errorf("encode embeddings: %w", err)
	}
	return string(data), nil
}

// DecodeEmbeddings deserializes embeddings cached in a ledger record.
// An empty payload decodes to nil.
func DecodeEmbeddings(payload string) ([][]float32, error) {
	if payload == "" {
		return nil, nil
	}
	var vectors [][]float32
	if err := json.Unmarshal([]byte(payload), &vectors); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	return vectors, nil
}

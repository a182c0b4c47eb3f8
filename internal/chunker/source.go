package chunker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/google/uuid"
)

// ErrSourceNotFound is returned when the data path neither exists locally nor
// parses as a remote blob container reference.
var ErrSourceNotFound = errors.New("data path does not exist and is not a blob container URL")

// FileRef identifies one discoverable file in a source.
type FileRef struct {
	// URL is the canonical document URL recorded in the ledger and the index.
	URL string
	// RelPath is the path relative to the source root, used as the indexed
	// filepath.
	RelPath string
}

// Source enumerates files and stages them for local processing. Callers never
// know which concrete source produced a FileRef.
type Source interface {
	// Walk calls fn for every file in the source. An fn error aborts the walk.
	Walk(ctx context.Context, fn func(FileRef) error) error

	// Stage makes the file locally readable and returns its local path.
	Stage(ctx context.Context, ref FileRef) (string, error)

	// Discard releases the staged copy once processing is done. Sources that
	// read files in place keep the original.
	Discard(staged string)
}

// Resolve selects the source implementation for dataPath: a blob container
// when the path contains a blob-storage host, otherwise a local directory.
// urlPrefix, when set, prefixes document URLs for local files.
func Resolve(dataPath, stagingPath, urlPrefix string) (Source, error) {
	if strings.Contains(dataPath, "blob.core") {
		return newBlobSource(dataPath, stagingPath)
	}
	info, err := os.Stat(dataPath)
	if err == nil && info.IsDir() {
		return &localSource{root: dataPath, urlPrefix: urlPrefix}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, dataPath)
}

// localSource walks a directory tree of regular files.
type localSource struct {
	root      string
	urlPrefix string
}

func (s *localSource) Walk(ctx context.Context, fn func(FileRef) error) error {
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return relErr
		}
		return fn(FileRef{URL: s.documentURL(rel), RelPath: rel})
	})
}

// Stage returns the file path itself; local files need no staging copy.
func (s *localSource) Stage(ctx context.Context, ref FileRef) (string, error) {
	return filepath.Join(s.root, ref.RelPath), nil
}

// Discard is a no-op: the staged path is the source file itself.
func (s *localSource) Discard(staged string) {}

func (s *localSource) documentURL(rel string) string {
	rel = filepath.ToSlash(rel)
	if s.urlPrefix == "" {
		return "file://" + rel
	}
	return strings.TrimSuffix(s.urlPrefix, "/") + "/" + rel
}

// blobSource lists and downloads blobs from a remote container to a local
// staging directory.
type blobSource struct {
	client      *container.Client
	baseURL     string
	stagingPath string
}

func newBlobSource(containerURL, stagingPath string) (*blobSource, error) {
	if stagingPath == "" {
		stagingPath = filepath.Join(os.TempDir(), "akb-staging")
	}
	if err := os.MkdirAll(stagingPath, 0755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	client, err := container.NewClientWithNoCredential(containerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, containerURL)
	}
	base := containerURL
	if u, parseErr := url.Parse(containerURL); parseErr == nil {
		u.RawQuery = "" // keep SAS tokens out of recorded document URLs
		base = u.String()
	}
	return &blobSource{client: client, baseURL: base, stagingPath: stagingPath}, nil
}

func (s *blobSource) Walk(ctx context.Context, fn func(FileRef) error) error {
	pager := s.client.NewListBlobsFlatPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			name := *item.Name
			ref := FileRef{
				URL:     strings.TrimSuffix(s.baseURL, "/") + "/" + name,
				RelPath: name,
			}
			if err := fn(ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stage downloads the blob into the staging directory. The staged name keeps
// the original extension so format classification still works.
func (s *blobSource) Stage(ctx context.Context, ref FileRef) (string, error) {
	staged := filepath.Join(s.stagingPath, uuid.New().String()+"-"+filepath.Base(ref.RelPath))
	f, err := os.Create(staged)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	defer f.Close()

	blobClient := s.client.NewBlobClient(ref.RelPath)
	if _, err := blobClient.DownloadFile(ctx, f, nil); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("download blob %s: %w", ref.RelPath, err)
	}
	return staged, nil
}

// Discard removes the staged download so repeated runs do not accumulate
// copies in the staging directory.
func (s *blobSource) Discard(staged string) {
	_ = os.Remove(staged)
}

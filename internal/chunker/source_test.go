package chunker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalSourceDiscardKeepsFile(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"a.txt": "content"})
	src, err := Resolve(dir, "", "")
	if err != nil {
		t.Fatal(err)
	}
	staged, err := src.Stage(context.Background(), FileRef{RelPath: "a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	src.Discard(staged)
	if _, err := os.Stat(staged); err != nil {
		t.Errorf("discard removed the source file: %v", err)
	}
}

func TestBlobSourceDiscardRemovesStagedCopy(t *testing.T) {
	staging := t.TempDir()
	s := &blobSource{stagingPath: staging}
	staged := filepath.Join(staging, "stagedcopy-a.txt")
	if err := os.WriteFile(staged, []byte("downloaded"), 0644); err != nil {
		t.Fatal(err)
	}
	s.Discard(staged)
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Errorf("staged copy still present after discard")
	}
}

package chunker

import (
	"strconv"
	"strings"
	"sync"
	"testing"
)

// wordTokenizer is a test tokenizer: every whitespace-separated word is one
// token. It keeps splitter tests independent of BPE vocabulary downloads.
// The vocabulary is locked because chunker workers share one tokenizer.
type wordTokenizer struct {
	mu    sync.Mutex
	words map[int]string
	ids   map[string]int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{words: make(map[int]string), ids: make(map[string]int)}
}

func (t *wordTokenizer) Encode(text string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var tokens []int
	for _, w := range strings.Fields(text) {
		id, ok := t.ids[w]
		if !ok {
			id = len(t.ids) + 1
			t.ids[w] = id
			t.words[id] = w
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (t *wordTokenizer) Decode(tokens []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = t.words[id]
	}
	return strings.Join(parts, " ")
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w" + strconv.Itoa(i)
	}
	return strings.Join(parts, " ")
}

func TestNewSplitterValidation(t *testing.T) {
	tok := newWordTokenizer()
	if _, err := NewSplitter(tok, 10, 10); err == nil {
		t.Error("overlap == size should be rejected")
	}
	if _, err := NewSplitter(tok, 10, -1); err == nil {
		t.Error("negative overlap should be rejected")
	}
	if _, err := NewSplitter(tok, 0, 0); err == nil {
		t.Error("zero size should be rejected")
	}
	if _, err := NewSplitter(tok, 10, 0); err != nil {
		t.Errorf("zero overlap is valid: %v", err)
	}
}

func TestSplitEmpty(t *testing.T) {
	s, err := NewSplitter(newWordTokenizer(), 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Split("   \n\t "); got != nil {
		t.Errorf("empty text should yield no chunks, got %v", got)
	}
}

func TestSplitShortText(t *testing.T) {
	s, err := NewSplitter(newWordTokenizer(), 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	chunks := s.Split("just a few words")
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0] != "just a few words" {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestSplitChunkCount(t *testing.T) {
	// 250 tokens, window 100, overlap 20 -> step 80: chunks start at
	// 0, 80, 160, 240 -> 4 chunks, last one 10 tokens.
	s, err := NewSplitter(newWordTokenizer(), 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	chunks := s.Split(words(250))
	if len(chunks) != 4 {
		t.Fatalf("chunks = %d, want 4", len(chunks))
	}
	if got := len(strings.Fields(chunks[0])); got != 100 {
		t.Errorf("first chunk tokens = %d, want 100", got)
	}
	if got := len(strings.Fields(chunks[3])); got != 10 {
		t.Errorf("last chunk tokens = %d, want 10", got)
	}
}

// Concatenating each chunk's non-overlapping portion must reconstruct the
// original token stream in order, for any valid (size, overlap) pair.
func TestSplitReconstruction(t *testing.T) {
	cases := []struct{ size, overlap, tokens int }{
		{100, 20, 250},
		{100, 0, 250},
		{7, 3, 50},
		{5, 4, 23},
		{10, 9, 10},
		{3, 1, 1},
	}
	for _, tc := range cases {
		tok := newWordTokenizer()
		s, err := NewSplitter(tok, tc.size, tc.overlap)
		if err != nil {
			t.Fatal(err)
		}
		original := words(tc.tokens)
		chunks := s.Split(original)

		var rebuilt []string
		for i, chunk := range chunks {
			fields := strings.Fields(chunk)
			if i > 0 {
				if len(fields) <= tc.overlap {
					// Fully contained in the previous chunk's tail.
					continue
				}
				fields = fields[tc.overlap:]
			}
			rebuilt = append(rebuilt, fields...)
		}
		if got := strings.Join(rebuilt, " "); got != original {
			t.Errorf("size=%d overlap=%d tokens=%d: reconstruction mismatch\n got: %s\nwant: %s",
				tc.size, tc.overlap, tc.tokens, got, original)
		}
	}
}

func TestSplitOverlapContent(t *testing.T) {
	tok := newWordTokenizer()
	s, err := NewSplitter(tok, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	chunks := s.Split("a b c d e f")
	if len(chunks) != 2 {
		t.Fatalf("chunks = %v", chunks)
	}
	if chunks[0] != "a b c d" || chunks[1] != "c d e f" {
		t.Errorf("overlap windows wrong: %v", chunks)
	}
}

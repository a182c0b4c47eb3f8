// Package chunker walks a document source, extracts text, and splits it into
// overlapping token-bounded chunks, consulting the ingestion ledger to skip
// unchanged documents.
package chunker

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// ErrInvalidOverlap is returned when token_overlap is not in [0, num_tokens).
var ErrInvalidOverlap = errors.New("token overlap must be non-negative and less than chunk token size")

// DefaultEncoding is the BPE encoding used for token counting.
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to a token stream and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenTokenizer wraps a tiktoken BPE encoding.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns a tokenizer for the named BPE encoding
// (DefaultEncoding when empty).
func NewTiktokenTokenizer(encoding string) (Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer encoding %q: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Splitter splits text into chunks of at most numTokens tokens with overlap
// tokens shared between consecutive chunks of the same document.
type Splitter struct {
	tok       Tokenizer
	numTokens int
	overlap   int
}

// NewSplitter validates the window parameters and returns a splitter.
func NewSplitter(tok Tokenizer, numTokens, overlap int) (*Splitter, error) {
	if numTokens <= 0 {
		return nil, fmt.Errorf("chunk token size must be positive, got %d", numTokens)
	}
	if overlap < 0 || overlap >= numTokens {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidOverlap, numTokens, overlap)
	}
	return &Splitter{tok: tok, numTokens: numTokens, overlap: overlap}, nil
}

// Split returns the chunk texts for text, in document order. The last chunk
// may be shorter than the window. Empty text yields no chunks.
func (s *Splitter) Split(text string) []string {
	tokens := s.tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}
	step := s.numTokens - s.overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.numTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, s.tok.Decode(tokens[start:end]))
		if end >= len(tokens) {
			break
		}
	}
	return chunks
}

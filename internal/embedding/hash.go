package embedding

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/docaudit/internal/fuzzy"
)

// HashEmbedder maps text to a vector by feature hashing of word unigrams
// and bigrams. Equal texts always get equal vectors.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a HashEmbedder producing vectors of the given size.
// Non-positive sizes fall back to 512.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Dimensions returns the vector size.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed returns the L2-normalized feature vector of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := tokenize(text)
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	vec := make([]float64, e.dimensions)
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// add hashes feature into vec. The sign bit spreads collisions around zero.
func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	sum := blake2b.Sum256([]byte(feature))
	idx := binary.LittleEndian.Uint64(sum[:8]) % uint64(len(vec)) //nolint:gosec // len is positive
	if sum[8]&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize returns the normalized words of text, dropping punctuation.
func tokenize(text string) []string {
	return strings.FieldsFunc(fuzzy.Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

package dedup

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
)

const (
	// Dim is the fixed length of every pseudo-embedding.
	Dim = 100
	// hashBuckets bounds the per-word hash values. Collisions across
	// unrelated words are expected; this is a coarse duplicate filter,
	// not a semantic embedding.
	hashBuckets = 1000
	// normEpsilon keeps the L2 normalization total for all-zero vectors.
	normEpsilon = 1e-8
)

// Embed computes a deterministic bag-of-words fingerprint of text: the
// distinct lowercase whitespace-separated words, each FNV-1a hashed into a
// bounded bucket, zero-padded to Dim values and L2-normalized. Word order
// never affects the result, and the same text embeds identically across
// processes.
func Embed(text string) []float64 {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		seen[w] = struct{}{}
	}

	// Canonical word order so the truncation below is reproducible.
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	if len(words) > Dim {
		words = words[:Dim]
	}

	vec := make([]float64, Dim)
	for i, w := range words {
		vec[i] = float64(hashWord(w))
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm) + normEpsilon
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// hashWord maps a word into [0, hashBuckets) with FNV-1a, which is stable
// across runs and platforms.
func hashWord(w string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(w))
	return h.Sum32() % hashBuckets
}

// Cosine returns the cosine similarity of two equal-length vectors.
func Cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EmbeddingCache memoizes embeddings by their source text. It is injected
// into the detector rather than shared process-wide, so tests and repeated
// runs start clean. Safe for concurrent use.
type EmbeddingCache struct {
	mu      sync.Mutex
	vectors map[string][]float64
}

// NewEmbeddingCache creates an empty embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{vectors: make(map[string][]float64)}
}

// Get returns the memoized embedding for text, computing it on first use.
func (c *EmbeddingCache) Get(text string) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.vectors[text]; ok {
		return vec
	}
	vec := Embed(text)
	c.vectors[text] = vec
	return vec
}

// Len returns the number of memoized texts.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vectors)
}

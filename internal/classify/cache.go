package classify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxSize caps the number of persisted cache entries.
	DefaultMaxSize = 1000
	// DefaultLookupThreshold is the minimum keyword similarity for a cache hit.
	DefaultLookupThreshold = 0.6

	// Titles yielding fewer keywords than this are too ambiguous to match.
	minKeywords = 2
	// Inserts between automatic flushes to disk.
	saveEvery = 10
)

// Common English and Chinese function words, excluded from title keywords.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "and": {},
	"or": {}, "with": {}, "as": {}, "by": {}, "from": {}, "its": {}, "it": {},
	"this": {}, "that": {},
	"的": {}, "是": {}, "在": {}, "和": {}, "了": {}, "与": {}, "将": {},
	"为": {}, "被": {}, "对": {}, "等": {}, "个": {},
}

// Maximal runs of Latin letters or CJK ideographs; the two scripts never
// merge into one token.
var keywordPattern = regexp.MustCompile(`[a-zA-Z]+|[\x{4e00}-\x{9fff}]+`)

// ExtractKeywords lower-cases a title and returns its keyword set: runs of
// Latin letters and runs of CJK ideographs, minus single-rune tokens and
// stop words.
func ExtractKeywords(title string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, w := range keywordPattern.FindAllString(strings.ToLower(title), -1) {
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords[w] = struct{}{}
	}
	return keywords
}

// Jaccard returns |a∩b| / |a∪b|, or 0 if either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// Entry is one persisted classification result, keyed by its source title.
type Entry struct {
	Category   Category  `json:"category"`
	Confidence float64   `json:"confidence"`
	Keywords   []string  `json:"keywords"`
	UsedAt     time.Time `json:"used_at"`
}

// Cache answers "have we classified something like this title before" via
// keyword-overlap similarity, so repeat coverage skips the LLM call. It is a
// pure optimization layer: every failure path degrades to an empty cache.
// Lookup and Insert are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	path    string
	maxSize int
	entries map[string]Entry
	unsaved int
}

// OpenCache loads the cache file at path, evicting down to maxSize entries
// (most recently used kept). A missing or malformed file yields an empty
// cache; loading never fails.
func OpenCache(path string, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Cache{
		path:    path,
		maxSize: maxSize,
		entries: make(map[string]Entry),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logrus.Warnf("Classification cache directory: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logrus.Warnf("Classification cache %s is malformed, starting empty: %v", path, err)
		c.entries = make(map[string]Entry)
		return c
	}
	c.evict()
	return c
}

// evict keeps only the maxSize most recently used entries. Runs once at load
// time; between loads the persisted set may transiently exceed maxSize.
func (c *Cache) evict() {
	if len(c.entries) <= c.maxSize {
		return
	}
	type titled struct {
		title string
		entry Entry
	}
	all := make([]titled, 0, len(c.entries))
	for title, e := range c.entries {
		all = append(all, titled{title, e})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].entry.UsedAt.After(all[j].entry.UsedAt)
	})
	kept := make(map[string]Entry, c.maxSize)
	for _, t := range all[:c.maxSize] {
		kept[t.title] = t.entry
	}
	c.entries = kept
}

// Lookup returns the category of the most similar cached title, if any entry
// reaches the similarity threshold (<=0 means DefaultLookupThreshold). The
// returned confidence is the stored confidence scaled by the match
// similarity. Titles with fewer than two keywords never match.
func (c *Cache) Lookup(title string, threshold float64) (Category, float64, bool) {
	if threshold <= 0 {
		threshold = DefaultLookupThreshold
	}
	keywords := ExtractKeywords(title)
	if len(keywords) < minKeywords {
		return "", 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var best *Entry
	bestSimilarity := 0.0
	for _, entry := range c.entries {
		similarity := Jaccard(keywords, toSet(entry.Keywords))
		if similarity > bestSimilarity && similarity >= threshold {
			bestSimilarity = similarity
			e := entry
			best = &e
		}
	}
	if best == nil {
		return "", 0, false
	}
	logrus.Debugf("Classification cache hit for %q -> %s (similarity %.2f)", title, best.Category, bestSimilarity)
	return best.Category, best.Confidence * bestSimilarity, true
}

// Insert upserts a classification result keyed by the literal title. Titles
// with fewer than two keywords are silently skipped. The cache is flushed to
// disk every few inserts rather than synchronously; a lost entry only costs
// one extra LLM call later.
func (c *Cache) Insert(title string, category Category, confidence float64) {
	keywords := ExtractKeywords(title)
	if len(keywords) < minKeywords {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[title] = Entry{
		Category:   category,
		Confidence: confidence,
		Keywords:   toSorted(keywords),
		UsedAt:     time.Now(),
	}
	c.unsaved++
	if c.unsaved >= saveEvery {
		c.saveLocked()
	}
}

// Save flushes the cache to disk. Write failures are logged, never fatal.
func (c *Cache) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked()
}

func (c *Cache) saveLocked() {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		logrus.Warnf("Encoding classification cache: %v", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		logrus.Warnf("Saving classification cache: %v", err)
		return
	}
	c.unsaved = 0
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func toSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Package dedup collapses repeat coverage of the same news event into one
// primary article using cheap bag-of-words similarity.
package dedup

import (
	"sort"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/dailybrief/dailybrief/internal/store"
)

const (
	// DefaultThreshold is the cosine similarity above which two articles
	// count as coverage of the same event.
	DefaultThreshold = 0.85
	// longSummaryRunes is the summary length past which a duplicate is
	// kept anyway, on the theory that a long summary carries materially
	// new information beyond the first report.
	longSummaryRunes = 1000
)

// Result holds the counters of one deduplication pass.
type Result struct {
	Input   int
	Kept    int
	Dropped int
	Events  int
}

// Detector partitions a batch of processed articles into primary articles
// (first report of an event) and duplicates.
type Detector struct {
	cache     *EmbeddingCache
	threshold float64
}

// NewDetector creates a detector using the given embedding cache.
// A threshold <= 0 selects DefaultThreshold.
func NewDetector(cache *EmbeddingCache, threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cache == nil {
		cache = NewEmbeddingCache()
	}
	return &Detector{cache: cache, threshold: threshold}
}

// seenEvent is one discovered event, represented by its earliest article.
type seenEvent struct {
	embedding []float64
	id        string
}

// Deduplicate scans articles oldest-first, marking each as the primary of a
// new event or a duplicate of an earlier one. Articles are mutated in place:
// exactly one primary per event, and every surviving duplicate points at its
// event's representative article. Duplicates with short summaries are
// dropped from the output; input order is preserved among survivors.
func (d *Detector) Deduplicate(articles []*store.ProcessedArticle) ([]*store.ProcessedArticle, *Result) {
	r := &Result{Input: len(articles)}
	if len(articles) == 0 {
		return nil, r
	}

	sorted := make([]*store.ProcessedArticle, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	var kept []*store.ProcessedArticle
	var events []seenEvent

	for _, article := range sorted {
		emb := d.cache.Get(article.TitleOriginal + " " + article.TitleTranslated)

		// First event over the threshold wins, not the globally best
		// match.
		var match *seenEvent
		for i := range events {
			if Cosine(emb, events[i].embedding) > d.threshold {
				match = &events[i]
				break
			}
		}

		if match == nil {
			article.IsPrimary = true
			article.RelatedEventID = nil
			events = append(events, seenEvent{embedding: emb, id: article.ID})
			kept = append(kept, article)
			continue
		}

		article.IsPrimary = false
		eventID := match.id
		article.RelatedEventID = &eventID

		if utf8.RuneCountInString(article.Summary) > longSummaryRunes {
			kept = append(kept, article)
		} else {
			r.Dropped++
		}
	}

	r.Kept = len(kept)
	r.Events = len(events)
	logrus.Infof("Deduplicated: %d -> %d articles (%d events)", r.Input, r.Kept, r.Events)
	return kept, r
}

// Package collect gathers articles from configured RSS feeds for a run date.
package collect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dailybrief/dailybrief/internal/config"
	"github.com/dailybrief/dailybrief/internal/store"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound  int
	NewArticles int
	Duplicates  int
	Sources     map[string]int
}

// Collector fetches configured feeds and stores new articles.
type Collector struct {
	store  *store.Store
	feeds  []config.Feed
	parser *FeedParser
}

// NewCollector creates a collector over the configured feeds.
func NewCollector(cfg *config.Config, s *store.Store) *Collector {
	return &Collector{
		store:  s,
		feeds:  cfg.Feeds,
		parser: NewFeedParser(),
	}
}

// Collect fetches every feed concurrently and stores the entries published
// on the run date. Articles already collected (same URL) are skipped.
func (c *Collector) Collect(ctx context.Context, runDate string) (*Result, error) {
	day, err := store.ParseRunDate(runDate)
	if err != nil {
		return nil, err
	}

	r := &Result{Sources: make(map[string]int)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, feed := range c.feeds {
		wg.Add(1)
		go func(feed config.Feed) {
			defer wg.Done()

			entries, err := c.parser.Parse(ctx, feed, day)
			if err != nil {
				logrus.Warnf("Failed to parse feed %s: %v", feed.URL, err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			r.TotalFound += len(entries)
			for _, entry := range entries {
				article := &store.RawArticle{
					ID:          ArticleID(entry.URL),
					URL:         entry.URL,
					Title:       entry.Title,
					Source:      entry.Source,
					Language:    entry.Language,
					PublishedAt: entry.PublishedAt,
					Content:     entry.Content,
					RunDate:     runDate,
					CollectedAt: time.Now(),
				}
				inserted, err := c.store.InsertArticle(article)
				if err != nil {
					logrus.Warnf("Failed to store article %s: %v", entry.URL, err)
					continue
				}
				if inserted {
					r.NewArticles++
					r.Sources[entry.Source]++
				} else {
					r.Duplicates++
				}
			}
		}(feed)
	}
	wg.Wait()

	logrus.Infof("Collection complete: %d found, %d new, %d duplicates",
		r.TotalFound, r.NewArticles, r.Duplicates)
	return r, nil
}

// ArticleID content-addresses an article by its URL.
func ArticleID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

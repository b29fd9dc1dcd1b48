// Package fetch retrieves full article text for entries whose feed only
// carried a short teaser.
package fetch

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"

	"github.com/dailybrief/dailybrief/internal/store"
)

// Content longer than this is truncated before storage; summaries never need
// more.
const maxContentRunes = 5000

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// ContentFetcher fetches full article text via HTTP + readability extraction.
type ContentFetcher struct {
	store  *store.Store
	client *http.Client
}

// NewContentFetcher creates a content fetcher.
func NewContentFetcher(s *store.Store, timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		store: s,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingContent fetches content for the run's articles whose stored
// content is too short to summarize. After the first HTTP failure from a
// domain, its remaining articles are skipped.
func (f *ContentFetcher) FetchMissingContent(runDate string) *Result {
	articles, err := f.store.GetArticlesNeedingFetch(runDate)
	if err != nil {
		logrus.Errorf("Getting articles needing fetch: %v", err)
		return &Result{}
	}

	if len(articles) == 0 {
		logrus.Info("No articles need content fetching")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, article := range articles {
		u, _ := url.Parse(article.URL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.store.MarkArticleFetchAttempted(article.ID)
			result.Failed++
			continue
		}

		content, httpErr := f.fetchArticleContent(article.URL)
		if httpErr != nil {
			f.store.MarkArticleFetchAttempted(article.ID)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			logrus.Warnf("HTTP error for %s, skipping remaining from %s", article.URL, domain)
			continue
		}

		if content != "" {
			f.store.UpdateArticleContent(article.ID, truncateRunes(content, maxContentRunes))
			result.Fetched++
			logrus.Debugf("Fetched content for: %s", article.Title)
		} else {
			f.store.MarkArticleFetchAttempted(article.ID)
			result.Failed++
			logrus.Debugf("No extractable content from: %s", article.URL)
		}
	}

	logrus.Infof("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

func (f *ContentFetcher) fetchArticleContent(articleURL string) (string, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "dailybrief/1.0 (news briefing generator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}

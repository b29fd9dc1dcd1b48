package fetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dailybrief/dailybrief/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertShortArticle(t *testing.T, s *store.Store, id, url string) {
	t.Helper()
	_, err := s.InsertArticle(&store.RawArticle{
		ID:          id,
		URL:         url,
		Title:       "Short " + id,
		Source:      "Test",
		Language:    "en",
		PublishedAt: time.Date(2026, 2, 13, 9, 0, 0, 0, time.UTC),
		Content:     "teaser",
		RunDate:     "2026-02-13",
		CollectedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to insert article: %v", err)
	}
}

func articlePage() string {
	body := strings.Repeat("This is a long paragraph about the chip industry. ", 20)
	return fmt.Sprintf(`<html><head><title>Story</title></head>
<body><article><h1>Story</h1><p>%s</p></article></body></html>`, body)
}

func TestFetchMissingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage())
	}))
	defer server.Close()

	s := openTestStore(t)
	insertShortArticle(t, s, "a1", server.URL+"/story")

	result := NewContentFetcher(s, 0).FetchMissingContent("2026-02-13")
	if result.Fetched != 1 || result.Failed != 0 {
		t.Fatalf("expected 1 fetched, got %+v", result)
	}

	articles, err := s.GetArticlesForRun("2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles[0].Content) < 500 {
		t.Errorf("expected extracted long content, got %d bytes", len(articles[0].Content))
	}

	// Nothing left to fetch on a second pass.
	again := NewContentFetcher(s, 0).FetchMissingContent("2026-02-13")
	if again.Fetched != 0 || again.Failed != 0 {
		t.Errorf("expected no work on second pass, got %+v", again)
	}
}

func TestFetchSkipsDomainAfterHTTPError(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	s := openTestStore(t)
	insertShortArticle(t, s, "a1", server.URL+"/one")
	insertShortArticle(t, s, "a2", server.URL+"/two")

	result := NewContentFetcher(s, 0).FetchMissingContent("2026-02-13")
	if result.Failed != 2 {
		t.Errorf("expected 2 failures, got %+v", result)
	}
	if requests != 1 {
		t.Errorf("expected 1 request before the domain skip, got %d", requests)
	}

	// Both marked attempted, so they are not retried.
	pending, err := s.GetArticlesNeedingFetch("2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending articles, got %d", len(pending))
	}
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("长", 6000)
	got := truncateRunes(long, maxContentRunes)
	if n := len([]rune(got)); n != maxContentRunes {
		t.Errorf("expected %d runes, got %d", maxContentRunes, n)
	}
	if truncateRunes("short", maxContentRunes) != "short" {
		t.Error("expected short text unchanged")
	}
}

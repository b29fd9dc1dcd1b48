package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dailybrief/dailybrief/internal/config"
	"github.com/dailybrief/dailybrief/internal/store"
)

func TestArticleIDStable(t *testing.T) {
	a := ArticleID("https://example.com/story")
	b := ArticleID("https://example.com/story")
	if a != b {
		t.Error("expected stable IDs for the same URL")
	}
	if len(a) != 16 {
		t.Errorf("expected 16-char ID, got %d", len(a))
	}
	if ArticleID("https://example.com/other") == a {
		t.Error("expected distinct IDs for distinct URLs")
	}
}

func TestStripHTML(t *testing.T) {
	in := "<p>Hello &amp; <b>world</b></p>\n  <img src=\"x.png\"/> done"
	got := StripHTML(in)
	want := "Hello & world done"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStripHTMLEntities(t *testing.T) {
	got := StripHTML("a&nbsp;&lt;b&gt;&quot;c&quot;&#39;d&#39;")
	want := `a <b> "c" 'd'`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractSourceName(t *testing.T) {
	cases := map[string]string{
		"https://www.theverge.com/rss/index.xml":  "Theverge",
		"https://feeds.arstechnica.com/index":     "Arstechnica",
		"https://techcrunch.com/feed/":            "Techcrunch",
	}
	for url, want := range cases {
		if got := extractSourceName(url); got != want {
			t.Errorf("extractSourceName(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestParseItemSkipsEmptyTitleOrURL(t *testing.T) {
	if parseItem(&gofeed.Item{Title: "Headline"}, "Src", "en") != nil {
		t.Error("expected nil for item without URL")
	}
	if parseItem(&gofeed.Item{Link: "https://example.com"}, "Src", "en") != nil {
		t.Error("expected nil for item without title")
	}
}

func TestParseItemPrefersContent(t *testing.T) {
	published := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	entry := parseItem(&gofeed.Item{
		Link:            "https://example.com/story",
		Title:           "  Headline  ",
		Content:         "<p>full text</p>",
		Description:     "<p>teaser</p>",
		PublishedParsed: &published,
	}, "Example", "en")
	if entry == nil {
		t.Fatal("expected entry")
	}
	if entry.Title != "Headline" {
		t.Errorf("expected trimmed title, got %q", entry.Title)
	}
	if entry.Content != "full text" {
		t.Errorf("expected content over description, got %q", entry.Content)
	}
	if !entry.PublishedAt.Equal(published) {
		t.Errorf("expected published time, got %v", entry.PublishedAt)
	}
}

func TestSameDay(t *testing.T) {
	day := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	if !sameDay(time.Date(2026, 2, 13, 23, 59, 0, 0, time.UTC), day) {
		t.Error("expected same day for late evening")
	}
	if sameDay(time.Date(2026, 2, 14, 0, 1, 0, 0, time.UTC), day) {
		t.Error("expected different day for next morning")
	}
}

func rssDoc(day string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test Feed</title>
<item>
  <title>Chip plant opens</title>
  <link>https://example.com/chip-plant</link>
  <description>&lt;p&gt;A new plant&lt;/p&gt;</description>
  <pubDate>%s 09:00:00 GMT</pubDate>
</item>
<item>
  <title>Old news</title>
  <link>https://example.com/old</link>
  <pubDate>Mon, 02 Feb 2026 09:00:00 GMT</pubDate>
</item>
</channel></rss>`, day)
}

func TestCollectStoresNewArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssDoc("Fri, 13 Feb 2026"))
	}))
	defer server.Close()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	cfg := &config.Config{Feeds: []config.Feed{{URL: server.URL, Name: "Test Feed", Language: "en"}}}
	collector := NewCollector(cfg, s)

	result, err := collector.Collect(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewArticles != 1 {
		t.Fatalf("expected 1 new article (old one outside window), got %d", result.NewArticles)
	}
	if result.Sources["Test Feed"] != 1 {
		t.Errorf("expected source counter, got %v", result.Sources)
	}

	// Second run over the same feed only finds duplicates.
	again, err := collector.Collect(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.NewArticles != 0 || again.Duplicates != 1 {
		t.Errorf("expected 0 new / 1 duplicate, got %d / %d", again.NewArticles, again.Duplicates)
	}

	articles, err := s.GetArticlesForRun("2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Chip plant opens" {
		t.Fatalf("unexpected stored articles: %+v", articles)
	}
	if articles[0].Content != "A new plant" {
		t.Errorf("expected HTML-stripped description, got %q", articles[0].Content)
	}
}

func TestCollectInvalidRunDate(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	collector := NewCollector(&config.Config{}, s)
	if _, err := collector.Collect(context.Background(), "13/02/2026"); err == nil {
		t.Error("expected error for malformed run date")
	}
}

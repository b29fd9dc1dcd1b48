package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dailybrief/dailybrief/internal/config"
)

const maxPerFeed = 20

// FeedEntry is one parsed feed item.
type FeedEntry struct {
	URL         string
	Title       string
	Source      string
	Language    string
	PublishedAt time.Time
	Content     string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	parser *gofeed.Parser
}

// NewFeedParser creates a feed parser.
func NewFeedParser() *FeedParser {
	p := gofeed.NewParser()
	p.UserAgent = "dailybrief/1.0 (news briefing generator)"
	return &FeedParser{parser: p}
}

// Parse fetches one feed and returns its entries published on day, capped
// at maxPerFeed.
func (fp *FeedParser) Parse(ctx context.Context, fc config.Feed, day time.Time) ([]FeedEntry, error) {
	feed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, err
	}

	name := fc.Name
	if name == "" {
		name = extractSourceName(fc.URL)
	}
	language := fc.Language
	if language == "" {
		language = "en"
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := parseItem(item, name, language)
		if entry == nil {
			continue
		}
		if sameDay(entry.PublishedAt, day) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, source, language string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	published := time.Now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	var content string
	if item.Content != "" {
		content = StripHTML(item.Content)
	} else if item.Description != "" {
		content = StripHTML(item.Description)
	}

	return &FeedEntry{
		URL:         itemURL,
		Title:       title,
		Source:      source,
		Language:    language,
		PublishedAt: published,
		Content:     content,
	}
}

// sameDay reports whether t falls on the same UTC calendar day as day.
func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// StripHTML removes tags, decodes common entities and normalizes whitespace.
func StripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}

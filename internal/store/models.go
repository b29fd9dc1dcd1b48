package store

import (
	"time"

	"github.com/dailybrief/dailybrief/internal/classify"
)

// RawArticle is one collected news item before processing.
type RawArticle struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Language    string    `json:"language"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
	RunDate     string    `json:"run_date"`
	CollectedAt time.Time `json:"collected_at"`
}

// ProcessedArticle is an article after translation, summarization,
// classification and deduplication. IsPrimary and RelatedEventID are written
// by the duplicate detector: exactly one primary per event, and every
// surviving non-primary points back at its event's representative article.
type ProcessedArticle struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	TitleOriginal   string            `json:"title_original"`
	TitleTranslated string            `json:"title_translated"`
	Source          string            `json:"source"`
	Language        string            `json:"language"`
	PublishedAt     time.Time         `json:"published_at"`
	Category        classify.Category `json:"category"`
	Confidence      float64           `json:"confidence"`
	Summary         string            `json:"summary"`
	KeyPoints       []string          `json:"key_points,omitempty"`
	Impact          string            `json:"impact,omitempty"`
	MentionedPeople []string          `json:"mentioned_people,omitempty"`
	IsPrimary       bool              `json:"is_primary"`
	RelatedEventID  *string           `json:"related_event_id,omitempty"`
	ProcessedAt     time.Time         `json:"processed_at"`
}

// Prediction is the current outlook for one category and timeframe.
type Prediction struct {
	Category  classify.Category `json:"category"`
	Timeframe string            `json:"timeframe"`
	Content   string            `json:"content"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PredictionChange records a revision of a stored prediction.
type PredictionChange struct {
	Category   classify.Category `json:"category"`
	Timeframe  string            `json:"timeframe"`
	OldContent string            `json:"old_content"`
	NewContent string            `json:"new_content"`
	Reason     string            `json:"reason"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// Briefing is a stored render of one day's briefing document.
type Briefing struct {
	RunDate       string
	BodyMarkdown  string
	ArticleCount  int
	CategoryCount int
	GeneratedAt   string
}

// Person is one entry of the key-people watchlist.
type Person struct {
	ID        int64
	Name      string
	NameZh    string
	Active    bool
	CreatedAt string
}

// Stats summarizes database contents for the status command.
type Stats struct {
	ArticleCount    int
	ProcessedCount  int
	PredictionCount int
	BriefingCount   int
	PeopleCount     int
	LastRunDate     string
}

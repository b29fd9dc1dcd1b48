// Package report renders the daily briefing document from stored processed
// articles and predictions, in Markdown, JSON and HTML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dailybrief/dailybrief/internal/classify"
	"github.com/dailybrief/dailybrief/internal/predict"
	"github.com/dailybrief/dailybrief/internal/store"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

const (
	maxSummaryHeadlines  = 5
	maxTableContentRunes = 100
	maxChangeReasonRunes = 30
)

var divider = strings.Repeat("━", 50)

// Result holds the outcome of one report run.
type Result struct {
	Articles     int
	Categories   int
	MarkdownPath string
	JSONPath     string
	HTMLPath     string
}

// Generator renders and persists briefing documents.
type Generator struct {
	store     *store.Store
	outputDir string
}

// NewGenerator creates a generator writing into outputDir.
func NewGenerator(s *store.Store, outputDir string) *Generator {
	return &Generator{store: s, outputDir: outputDir}
}

// briefingExport is the JSON shape written next to the Markdown file.
type briefingExport struct {
	RunDate     string                                           `json:"run_date"`
	GeneratedAt time.Time                                        `json:"generated_at"`
	Summary     string                                           `json:"summary"`
	Articles    map[classify.Category][]*store.ProcessedArticle `json:"articles"`
	Predictions []store.Prediction                               `json:"predictions"`
	Changes     []store.PredictionChange                         `json:"prediction_changes,omitempty"`
}

// GenerateRun builds the briefing for runDate, writes the .md/.json/.html
// files and records the Markdown body in the store. changes come from the
// prediction step of the same run; nil is fine for a re-render.
func (g *Generator) GenerateRun(runDate string, changes []store.PredictionChange) (*Result, error) {
	day, err := store.ParseRunDate(runDate)
	if err != nil {
		return nil, err
	}

	articles, err := g.store.GetProcessedForRun(runDate)
	if err != nil {
		return nil, fmt.Errorf("loading processed articles: %w", err)
	}
	predictions, err := g.store.GetAllPredictions()
	if err != nil {
		return nil, fmt.Errorf("loading predictions: %w", err)
	}

	byCategory := make(map[classify.Category][]*store.ProcessedArticle)
	for _, a := range articles {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}

	generatedAt := time.Now()
	summary := dailySummary(byCategory)
	body := renderMarkdown(day, byCategory, predictions, changes, summary, generatedAt)

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	stem := "briefing_" + day.Format("20060102")
	r := &Result{
		Articles:     len(articles),
		Categories:   countNonEmpty(byCategory),
		MarkdownPath: filepath.Join(g.outputDir, stem+".md"),
		JSONPath:     filepath.Join(g.outputDir, stem+".json"),
		HTMLPath:     filepath.Join(g.outputDir, stem+".html"),
	}

	if err := os.WriteFile(r.MarkdownPath, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("writing markdown: %w", err)
	}

	export := briefingExport{
		RunDate:     runDate,
		GeneratedAt: generatedAt,
		Summary:     summary,
		Articles:    byCategory,
		Predictions: predictions,
		Changes:     changes,
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding briefing: %w", err)
	}
	if err := os.WriteFile(r.JSONPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing json: %w", err)
	}

	var htmlBuf bytes.Buffer
	if err := md.Convert([]byte(body), &htmlBuf); err != nil {
		return nil, fmt.Errorf("rendering html: %w", err)
	}
	if err := os.WriteFile(r.HTMLPath, wrapHTML(runDate, htmlBuf.String()), 0o644); err != nil {
		return nil, fmt.Errorf("writing html: %w", err)
	}

	if err := g.store.UpsertBriefing(runDate, body, r.Articles, r.Categories); err != nil {
		return nil, fmt.Errorf("storing briefing: %w", err)
	}

	logrus.Infof("Briefing written to %s", r.MarkdownPath)
	return r, nil
}

// dailySummary lists the top headline of up to five categories.
func dailySummary(byCategory map[classify.Category][]*store.ProcessedArticle) string {
	var headlines []string
	for _, category := range classify.AllCategories() {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		headlines = append(headlines, "• "+group[0].TitleTranslated)
		if len(headlines) == maxSummaryHeadlines {
			break
		}
	}
	if len(headlines) == 0 {
		return "今日暂无重大新闻。"
	}
	return "今日要闻：\n" + strings.Join(headlines, "\n")
}

var weekdaysZh = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

func renderMarkdown(day time.Time, byCategory map[classify.Category][]*store.ProcessedArticle, predictions []store.Prediction, changes []store.PredictionChange, summary string, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# 📰 全球科技简报\n\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "## 📅 %s（%s）\n", day.Format("2006年01月02日"), weekdaysZh[day.Weekday()])
	b.WriteString(divider + "\n\n")

	b.WriteString("## 📊 今日概览\n\n")
	total := 0
	for _, group := range byCategory {
		total += len(group)
	}
	fmt.Fprintf(&b, "**共计 %d 条新闻**\n\n", total)
	for _, category := range classify.AllCategories() {
		if group := byCategory[category]; len(group) > 0 {
			fmt.Fprintf(&b, "- %s %s: %d条\n", category.Icon(), category.DisplayName(), len(group))
		}
	}
	b.WriteString("\n")
	if summary != "" {
		b.WriteString("**今日要点:**\n")
		b.WriteString(summary + "\n\n")
	}
	b.WriteString(divider + "\n\n")

	for _, category := range classify.AllCategories() {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s %s\n\n", category.Icon(), category.DisplayName())
		for i, article := range group {
			writeArticle(&b, article, byCategory, i+1)
		}
	}

	b.WriteString(divider + "\n\n")
	b.WriteString("## 🎯 未来预测\n\n")
	writePredictions(&b, predictions, changes)

	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "*生成时间: %s*\n", generatedAt.Format("2006-01-02 15:04:05"))

	return b.String()
}

func writeArticle(b *strings.Builder, article *store.ProcessedArticle, byCategory map[classify.Category][]*store.ProcessedArticle, index int) {
	fmt.Fprintf(b, "### %d. %s\n", index, article.TitleOriginal)
	fmt.Fprintf(b, "### %s\n\n", article.TitleTranslated)

	fmt.Fprintf(b, "**来源:** %s | **时间:** %s\n\n",
		article.Source, article.PublishedAt.Format("2006-01-02 15:04"))

	if ref := relatedTitle(article, byCategory); ref != "" {
		fmt.Fprintf(b, "**🔁 关联事件:** 与「%s」为同一事件的后续报道\n\n", ref)
	}

	if len(article.MentionedPeople) > 0 {
		fmt.Fprintf(b, "**提及人物:** %s\n\n", strings.Join(article.MentionedPeople, ", "))
	}

	b.WriteString("**📰 详细摘要:**\n\n")
	b.WriteString(article.Summary + "\n\n")

	if len(article.KeyPoints) > 0 {
		b.WriteString("**🔑 关键要点:**\n")
		for _, point := range article.KeyPoints {
			b.WriteString("- " + point + "\n")
		}
		b.WriteString("\n")
	}

	if article.Impact != "" {
		b.WriteString("**📈 影响分析:**\n")
		b.WriteString(article.Impact + "\n\n")
	}

	fmt.Fprintf(b, "**🔗 原文链接:** [%s](%s)\n\n", article.URL, article.URL)
	b.WriteString("---\n\n")
}

// relatedTitle resolves the primary article's translated title for a
// retained duplicate.
func relatedTitle(article *store.ProcessedArticle, byCategory map[classify.Category][]*store.ProcessedArticle) string {
	if article.IsPrimary || article.RelatedEventID == nil {
		return ""
	}
	for _, group := range byCategory {
		for _, other := range group {
			if other.ID == *article.RelatedEventID {
				return other.TitleTranslated
			}
		}
	}
	return ""
}

func writePredictions(b *strings.Builder, predictions []store.Prediction, changes []store.PredictionChange) {
	for _, timeframe := range predict.Timeframes {
		fmt.Fprintf(b, "### 📆 %s关注点\n\n", predict.TimeframeName(timeframe))
		b.WriteString("| 领域 | 预测关注 | 变化说明 |\n")
		b.WriteString("|------|----------|----------|\n")

		changed := make(map[classify.Category]store.PredictionChange)
		for _, c := range changes {
			if c.Timeframe == timeframe {
				changed[c.Category] = c
			}
		}

		for _, p := range predictions {
			if p.Timeframe != timeframe || p.Content == "" {
				continue
			}
			note := "—"
			if c, ok := changed[p.Category]; ok {
				note = "⬆️ " + tableCell(c.Reason, maxChangeReasonRunes)
			}
			fmt.Fprintf(b, "| %s %s | %s | %s |\n",
				p.Category.Icon(), p.Category.DisplayName(),
				tableCell(p.Content, maxTableContentRunes), note)
		}
		b.WriteString("\n")
	}
}

// tableCell truncates and escapes text for a Markdown table cell.
func tableCell(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		s = string(runes[:max]) + "..."
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func wrapHTML(runDate, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>全球科技简报 %s</title>
<style>
body { max-width: 860px; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.6; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
</style>
</head>
<body>
%s</body>
</html>
`, runDate, body)
	return b.Bytes()
}

func countNonEmpty(byCategory map[classify.Category][]*store.ProcessedArticle) int {
	n := 0
	for _, group := range byCategory {
		if len(group) > 0 {
			n++
		}
	}
	return n
}

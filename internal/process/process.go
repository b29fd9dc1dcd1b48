// Package process runs the per-article LLM stage: translation, summary,
// classification and key-people detection, followed by deduplication.
package process

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dailybrief/dailybrief/internal/classify"
	"github.com/dailybrief/dailybrief/internal/dedup"
	"github.com/dailybrief/dailybrief/internal/llm"
	"github.com/dailybrief/dailybrief/internal/store"
)

const processSystemPrompt = `你是一位专业的科技新闻编辑。你的任务是：
1. 将新闻标题翻译成中文（如已是中文则保持原样）
2. 生成详细的中文摘要（3-5段，包含所有关键信息）
3. 提取3-5个关键要点
4. 分析这条新闻的行业影响
5. 对文章进行分类

可选分类：
- ai: AI类（AI技术、Agent、AI Coding、新功能）
- robotics: 机器人类（人形机器人、工业机器人、军用机器人）
- embodied_ai: 具身智能类（AI眼镜、可穿戴设备、新型交互）
- semiconductor: 半导体行业类（芯片、存储、制程、设备）
- auto: 汽车类（新能源车、燃油车、自动驾驶）
- health: 健康医疗类（生物科技、医疗器械、制药）
- economy: 经济政策类（宏观经济、产业政策、贸易）
- business: 商业科技类（企业动态、并购、融资）
- politics: 政治政策类（科技监管、地缘政治）
- investment: 投资财经类（股市、风投、IPO）
- consumer_electronics: 消费电子类（手机、电脑、智能家居）
- key_people: 关键人物发言（科技大佬观点和预测）

输出JSON格式，不要包含markdown标记。`

const processPromptTemplate = `请处理以下新闻：

标题: %s
来源: %s
发布时间: %s
语言: %s

正文:
%s

请输出JSON：
{
    "title_zh": "中文标题",
    "summary_zh": "详细中文摘要（3-5段）",
    "key_points": ["要点1", "要点2", "要点3"],
    "impact_analysis": "对行业的影响分析",
    "category": "分类ID",
    "category_confidence": 0.95
}`

// A summary mentioning a watched person counts as a statement only when it
// carries one of these verbs.
var statementVerbs = []string{"表示", "称", "认为", "宣布", "透露", "预测"}

const maxPromptContentRunes = 5000

// Result holds the counters of one processing run.
type Result struct {
	Input      int
	Processed  int
	Failed     int
	CacheHits  int
	Fallbacks  int
	Duplicates int
	Kept       int
}

// Processor turns collected articles into classified, deduplicated
// processing results.
type Processor struct {
	store          *store.Store
	provider       llm.Provider
	cache          *classify.Cache
	detector       *dedup.Detector
	concurrency    int
	cacheThreshold float64
}

// NewProcessor creates a processor. Concurrency <= 0 defaults to 5.
func NewProcessor(s *store.Store, provider llm.Provider, cache *classify.Cache, detector *dedup.Detector, concurrency int, cacheThreshold float64) *Processor {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Processor{
		store:          s,
		provider:       provider,
		cache:          cache,
		detector:       detector,
		concurrency:    concurrency,
		cacheThreshold: cacheThreshold,
	}
}

// ProcessRun processes every article collected for the run date and stores
// the surviving results. Per-article failures are logged and counted, not
// fatal.
func (p *Processor) ProcessRun(ctx context.Context, runDate string) (*Result, error) {
	articles, err := p.store.GetArticlesForRun(runDate)
	if err != nil {
		return nil, fmt.Errorf("loading articles: %w", err)
	}

	r := &Result{Input: len(articles)}
	if len(articles) == 0 {
		logrus.Infof("No articles to process for %s", runDate)
		return r, nil
	}

	people, err := p.store.GetActivePeople()
	if err != nil {
		return nil, fmt.Errorf("loading key people: %w", err)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var processed []*store.ProcessedArticle
	sem := make(chan struct{}, p.concurrency)

	for _, article := range articles {
		wg.Add(1)
		go func(article store.RawArticle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, cacheHit, fallback, err := p.processArticle(ctx, &article, people)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logrus.Errorf("Failed to process %s: %v", article.ID, err)
				r.Failed++
				return
			}
			r.Processed++
			if cacheHit {
				r.CacheHits++
			}
			if fallback {
				r.Fallbacks++
			}
			processed = append(processed, result)
		}(article)
	}
	wg.Wait()

	p.cache.Save()

	kept, dr := p.detector.Deduplicate(processed)
	r.Duplicates = dr.Dropped
	r.Kept = len(kept)

	if err := p.store.ReplaceProcessedForRun(runDate, kept); err != nil {
		return nil, fmt.Errorf("storing processed articles: %w", err)
	}

	logrus.Infof("Processing complete: %d/%d processed, %d cache hits, %d fallbacks, %d duplicates dropped",
		r.Processed, r.Input, r.CacheHits, r.Fallbacks, r.Duplicates)
	return r, nil
}

// processArticle runs the combined translate/summarize/classify call for one
// article. The classification cache is consulted up front so its label can
// stand in when the LLM returns an invalid category.
func (p *Processor) processArticle(ctx context.Context, article *store.RawArticle, people []store.Person) (*store.ProcessedArticle, bool, bool, error) {
	cachedCategory, cachedConfidence, cacheHit := p.cache.Lookup(article.Title, p.cacheThreshold)

	content := article.Content
	if content == "" {
		content = "(无正文)"
	}
	content = truncateRunes(content, maxPromptContentRunes)

	prompt := fmt.Sprintf(processPromptTemplate,
		article.Title, article.Source,
		article.PublishedAt.Format("2006-01-02 15:04"), article.Language, content)

	reply, err := p.provider.Chat(ctx, processSystemPrompt, prompt)
	if err != nil {
		return nil, cacheHit, false, err
	}

	parsed := llm.ParseJSONResponse(reply)
	fallback := false
	if parsed == nil {
		// Unparseable reply degrades to the raw article, never aborts the
		// batch.
		logrus.Errorf("Failed to parse LLM response for %s", article.ID)
		parsed = map[string]any{
			"title_zh":            article.Title,
			"summary_zh":          truncateRunes(article.Content, 500),
			"category":            string(classify.DefaultCategory),
			"category_confidence": 0.5,
		}
		fallback = true
	}

	category, ok := classify.ParseCategory(llm.GetString(parsed, "category", ""))
	confidence := llm.GetFloat(parsed, "category_confidence", 0.8)
	if !ok {
		if cacheHit {
			category = cachedCategory
			confidence = cachedConfidence
			logrus.Infof("Using cached category for %q: %s", article.Title, category)
		} else {
			category = classify.DefaultCategory
			confidence = 0.5
		}
		fallback = true
	}

	p.cache.Insert(article.Title, category, confidence)

	titleZh := llm.GetString(parsed, "title_zh", article.Title)
	summary := llm.GetString(parsed, "summary_zh", "")

	mentioned := identifyKeyPeople(article.Title+" "+titleZh+" "+summary, people)
	if len(mentioned) > 0 && containsStatementVerb(summary) {
		category = classify.KeyPeople
	}

	return &store.ProcessedArticle{
		ID:              article.ID,
		URL:             article.URL,
		TitleOriginal:   article.Title,
		TitleTranslated: titleZh,
		Source:          article.Source,
		Language:        article.Language,
		PublishedAt:     article.PublishedAt,
		Category:        category,
		Confidence:      confidence,
		Summary:         summary,
		KeyPoints:       llm.GetStringSlice(parsed, "key_points", 5),
		Impact:          llm.GetString(parsed, "impact_analysis", ""),
		MentionedPeople: mentioned,
		ProcessedAt:     time.Now(),
	}, cacheHit, fallback, nil
}

// identifyKeyPeople returns the watched people mentioned in text, by English
// name (case-insensitive) or Chinese name.
func identifyKeyPeople(text string, people []store.Person) []string {
	lower := strings.ToLower(text)
	var mentioned []string
	for _, person := range people {
		if person.Name != "" && strings.Contains(lower, strings.ToLower(person.Name)) {
			mentioned = append(mentioned, person.Name)
			continue
		}
		if person.NameZh != "" && strings.Contains(text, person.NameZh) {
			mentioned = append(mentioned, person.Name)
		}
	}
	return mentioned
}

func containsStatementVerb(summary string) bool {
	for _, verb := range statementVerbs {
		if strings.Contains(summary, verb) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

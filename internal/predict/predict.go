// Package predict generates per-category market outlooks from the day's
// primary articles and tracks how they change over time.
package predict

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dailybrief/dailybrief/internal/classify"
	"github.com/dailybrief/dailybrief/internal/llm"
	"github.com/dailybrief/dailybrief/internal/store"
)

// Timeframes are the forecast horizons, in rendering order.
var Timeframes = []string{"week", "month", "half_year", "year"}

// TimeframeName returns the Chinese heading for a forecast horizon.
func TimeframeName(timeframe string) string {
	switch timeframe {
	case "week":
		return "未来一周"
	case "month":
		return "未来一个月"
	case "half_year":
		return "未来半年"
	case "year":
		return "未来一年"
	}
	return timeframe
}

const predictSystemTemplate = `你是一位资深的%s行业分析师。
基于最新的新闻动态，你需要对该领域的未来发展做出专业预测。

预测要求：
1. 基于当前趋势和具体事件
2. 给出具体的预期事件或变化
3. 包含可能的风险和不确定性
4. 语言专业但易懂

输出JSON格式，不要包含markdown标记。`

const predictPromptTemplate = `以下是%s领域的最新新闻：

%s

请分别预测：
1. 未来一周需要关注什么
2. 未来一个月需要关注什么
3. 未来半年需要关注什么
4. 未来一年需要关注什么

按以下JSON格式输出：
{
    "week": "未来一周预测内容",
    "month": "未来一个月预测内容",
    "half_year": "未来半年预测内容",
    "year": "未来一年预测内容"
}`

const changeReasonSystem = `你是一位分析师，需要解释预测发生变化的原因。
基于新旧预测内容和最新新闻，简要说明为什么预测发生了变化。
输出简洁的一句话原因。`

const changeReasonTemplate = `旧预测：%s

新预测：%s

相关新闻：
%s

请用一句话解释预测变化的原因：`

const (
	maxArticleSummaryRunes = 300
	maxOldContentRunes     = 500
	maxReasonArticles      = 5
)

// Result holds the outcome of one prediction run.
type Result struct {
	Categories  int
	Predictions []store.Prediction
	Changes     []store.PredictionChange
}

// Predictor produces and stores category forecasts.
type Predictor struct {
	store    *store.Store
	provider llm.Provider
	topN     int
}

// NewPredictor creates a predictor. topN caps the articles quoted per
// category prompt; <= 0 defaults to 20.
func NewPredictor(s *store.Store, provider llm.Provider, topN int) *Predictor {
	if topN <= 0 {
		topN = 20
	}
	return &Predictor{store: s, provider: provider, topN: topN}
}

// PredictRun generates forecasts for every category with at least one
// primary article in the run, compares them with the stored previous
// forecasts, and upserts the new ones. A failed category is skipped, not
// fatal.
func (p *Predictor) PredictRun(ctx context.Context, runDate string) (*Result, error) {
	articles, err := p.store.GetProcessedForRun(runDate)
	if err != nil {
		return nil, fmt.Errorf("loading processed articles: %w", err)
	}

	byCategory := make(map[classify.Category][]*store.ProcessedArticle)
	for _, a := range articles {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}

	r := &Result{}
	for _, category := range classify.AllCategories() {
		group := byCategory[category]
		if !hasPrimary(group) {
			continue
		}

		predictions, err := p.predictCategory(ctx, category, group)
		if err != nil {
			logrus.Errorf("Prediction failed for %s: %v", category, err)
			continue
		}
		r.Categories++

		for _, prediction := range predictions {
			old, err := p.store.GetPrediction(category, prediction.Timeframe)
			if err != nil {
				return nil, fmt.Errorf("loading previous prediction: %w", err)
			}
			if old != nil && old.Content != prediction.Content {
				r.Changes = append(r.Changes, store.PredictionChange{
					Category:   category,
					Timeframe:  prediction.Timeframe,
					OldContent: old.Content,
					NewContent: prediction.Content,
					Reason:     p.changeReason(ctx, old.Content, prediction.Content, group),
					ChangedAt:  time.Now(),
				})
			}
			if err := p.store.UpsertPrediction(&prediction); err != nil {
				return nil, fmt.Errorf("storing prediction: %w", err)
			}
			r.Predictions = append(r.Predictions, prediction)
		}
		logrus.Infof("Generated predictions for %s", category)
	}

	logrus.Infof("Prediction complete: %d categories, %d changes", r.Categories, len(r.Changes))
	return r, nil
}

// predictCategory makes one LLM call covering all four horizons.
func (p *Predictor) predictCategory(ctx context.Context, category classify.Category, articles []*store.ProcessedArticle) ([]store.Prediction, error) {
	var quoted []string
	for i, a := range articles {
		if i >= p.topN {
			break
		}
		quoted = append(quoted, fmt.Sprintf("- %s\n  摘要: %s",
			a.TitleTranslated, truncateRunes(a.Summary, maxArticleSummaryRunes)))
	}

	system := fmt.Sprintf(predictSystemTemplate, category.DisplayName())
	prompt := fmt.Sprintf(predictPromptTemplate, category.DisplayName(), strings.Join(quoted, "\n\n"))

	reply, err := p.provider.Chat(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	parsed := llm.ParseJSONResponse(reply)
	if parsed == nil {
		return nil, fmt.Errorf("unparseable forecast reply")
	}

	now := time.Now()
	var predictions []store.Prediction
	for _, timeframe := range Timeframes {
		predictions = append(predictions, store.Prediction{
			Category:  category,
			Timeframe: timeframe,
			Content:   llm.GetString(parsed, timeframe, ""),
			UpdatedAt: now,
		})
	}
	return predictions, nil
}

// changeReason asks the LLM to explain a revision in one sentence. On
// failure a generic reason stands in.
func (p *Predictor) changeReason(ctx context.Context, oldContent, newContent string, articles []*store.ProcessedArticle) string {
	var titles []string
	for i, a := range articles {
		if i >= maxReasonArticles {
			break
		}
		titles = append(titles, "- "+a.TitleTranslated)
	}

	prompt := fmt.Sprintf(changeReasonTemplate,
		truncateRunes(oldContent, maxOldContentRunes),
		truncateRunes(newContent, maxOldContentRunes),
		strings.Join(titles, "\n"))

	reason, err := p.provider.Chat(ctx, changeReasonSystem, prompt)
	if err != nil || strings.TrimSpace(reason) == "" {
		if err != nil {
			logrus.Warnf("Change reason generation failed: %v", err)
		}
		return "根据最新新闻动态更新"
	}
	return strings.TrimSpace(reason)
}

func hasPrimary(articles []*store.ProcessedArticle) bool {
	for _, a := range articles {
		if a.IsPrimary {
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

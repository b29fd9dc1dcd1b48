// Package pipeline orchestrates the daily briefing steps.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dailybrief/dailybrief/internal/classify"
	"github.com/dailybrief/dailybrief/internal/collect"
	"github.com/dailybrief/dailybrief/internal/config"
	"github.com/dailybrief/dailybrief/internal/dedup"
	"github.com/dailybrief/dailybrief/internal/fetch"
	"github.com/dailybrief/dailybrief/internal/llm"
	"github.com/dailybrief/dailybrief/internal/predict"
	"github.com/dailybrief/dailybrief/internal/process"
	"github.com/dailybrief/dailybrief/internal/report"
	"github.com/dailybrief/dailybrief/internal/store"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunDate string
	Steps   []StepResult
}

// Failed reports whether any step ended with an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the 5-step briefing generation for one day.
type Pipeline struct {
	cfg      *config.Config
	store    *store.Store
	provider llm.Provider
	cache    *classify.Cache
}

// New creates a pipeline. The LLM provider is auto-detected from the
// environment and rate limited per the config.
func New(cfg *config.Config, s *store.Store) (*Pipeline, error) {
	provider, err := llm.CreateProvider(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.MaxTokens)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.RequestsPerMinute > 0 {
		provider = llm.Throttle(provider, cfg.LLM.RequestsPerMinute)
	}
	return &Pipeline{
		cfg:      cfg,
		store:    s,
		provider: provider,
		cache:    classify.OpenCache(cfg.CachePath(), cfg.Processing.CacheMaxSize),
	}, nil
}

// Run executes Collect, Fetch, Process, Predict and Report in order for
// runDate. The run aborts at the first failing step. On success the step
// counters are recorded as the day's run report.
func (p *Pipeline) Run(ctx context.Context, runDate string) *Result {
	r := &Result{RunDate: runDate}
	var collected, processed, duplicates, predictions int

	logrus.Infof("Step 1/5: Collecting news for %s...", runDate)
	collector := collect.NewCollector(p.cfg, p.store)
	collectResult, err := collector.Collect(ctx, runDate)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Collect", Err: err})
		return r
	}
	collected = collectResult.NewArticles
	r.Steps = append(r.Steps, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("%d new articles (%d found, %d already known)",
			collectResult.NewArticles, collectResult.TotalFound, collectResult.Duplicates),
	})

	logrus.Info("Step 2/5: Fetching article content...")
	fetcher := fetch.NewContentFetcher(p.store, 15*time.Second)
	fetchResult := fetcher.FetchMissingContent(runDate)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("%d fetched, %d failed", fetchResult.Fetched, fetchResult.Failed),
	})

	logrus.Info("Step 3/5: Processing articles...")
	detector := dedup.NewDetector(dedup.NewEmbeddingCache(), p.cfg.Processing.DedupThreshold)
	processor := process.NewProcessor(p.store, p.provider, p.cache, detector,
		p.cfg.Processing.Concurrency, p.cfg.Processing.CacheThreshold)
	processResult, err := processor.ProcessRun(ctx, runDate)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Process", Err: err})
		return r
	}
	processed = processResult.Kept
	duplicates = processResult.Duplicates
	r.Steps = append(r.Steps, StepResult{
		Name: "Process",
		Summary: fmt.Sprintf("%d processed (%d cache hits), %d duplicates collapsed, %d kept",
			processResult.Processed, processResult.CacheHits, processResult.Duplicates, processResult.Kept),
	})

	logrus.Info("Step 4/5: Generating predictions...")
	predictor := predict.NewPredictor(p.store, p.provider, p.cfg.Processing.PredictionTopN)
	predictResult, err := predictor.PredictRun(ctx, runDate)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Predict", Err: err})
		return r
	}
	predictions = len(predictResult.Predictions)
	r.Steps = append(r.Steps, StepResult{
		Name: "Predict",
		Summary: fmt.Sprintf("%d forecasts across %d categories, %d changed",
			len(predictResult.Predictions), predictResult.Categories, len(predictResult.Changes)),
	})

	logrus.Info("Step 5/5: Generating briefing...")
	generator := report.NewGenerator(p.store, p.cfg.GetOutputDir())
	reportResult, err := generator.GenerateRun(runDate, predictResult.Changes)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Report", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Report",
		Summary: fmt.Sprintf("%d articles in %d categories, written to %s",
			reportResult.Articles, reportResult.Categories, reportResult.MarkdownPath),
	})

	if err := p.store.InsertRunReport(runDate, collected, processed, duplicates, predictions); err != nil {
		logrus.Warnf("Recording run report: %v", err)
	}
	return r
}

// DryRun reports what each step would do for runDate without running it.
func (p *Pipeline) DryRun(runDate string) *Result {
	r := &Result{RunDate: runDate}

	known, _ := p.store.CountArticlesForRun(runDate)
	r.Steps = append(r.Steps, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("[dry-run] %d feeds to poll, %d articles already collected for %s",
			len(p.cfg.Feeds), known, runDate),
	})

	needing, _ := p.store.GetArticlesNeedingFetch(runDate)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d articles need content fetching", len(needing)),
	})

	r.Steps = append(r.Steps, StepResult{
		Name:    "Process",
		Summary: fmt.Sprintf("[dry-run] %d articles to classify and deduplicate", known),
	})

	processed, _ := p.store.CountProcessedForRun(runDate)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Predict",
		Summary: fmt.Sprintf("[dry-run] %d processed articles feed the forecasts", processed),
	})

	if briefing, _ := p.store.GetBriefing(runDate); briefing != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] briefing for %s exists, would be regenerated", runDate),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] would write briefing for %s", runDate),
		})
	}

	return r
}

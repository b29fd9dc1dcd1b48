package process

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dailybrief/dailybrief/internal/classify"
	"github.com/dailybrief/dailybrief/internal/dedup"
	"github.com/dailybrief/dailybrief/internal/store"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(_ context.Context, _, _ string) (string, error) {
	return m.response, m.err
}

// promptCapture records the prompts sent through it.
type promptCapture struct {
	inner   *mockProvider
	systems []string
	prompts []string
}

func (p *promptCapture) Name() string { return "capture" }

func (p *promptCapture) Chat(ctx context.Context, system, prompt string) (string, error) {
	p.systems = append(p.systems, system)
	p.prompts = append(p.prompts, prompt)
	return p.inner.Chat(ctx, system, prompt)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func openTestCache(t *testing.T) *classify.Cache {
	t.Helper()
	return classify.OpenCache(filepath.Join(t.TempDir(), "cache.json"), 0)
}

func insertRaw(t *testing.T, s *store.Store, id, title string, offset time.Duration) {
	t.Helper()
	_, err := s.InsertArticle(&store.RawArticle{
		ID:          id,
		URL:         "https://example.com/" + id,
		Title:       title,
		Source:      "TechCrunch",
		Language:    "en",
		PublishedAt: time.Date(2026, 2, 13, 9, 0, 0, 0, time.UTC).Add(offset),
		Content:     "Article body for " + title,
		RunDate:     "2026-02-13",
		CollectedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to insert article: %v", err)
	}
}

func llmReply(t *testing.T, fields map[string]any) string {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to marshal reply: %v", err)
	}
	return string(data)
}

func newProcessor(s *store.Store, provider interface {
	Name() string
	Chat(context.Context, string, string) (string, error)
}, cache *classify.Cache) *Processor {
	return NewProcessor(s, provider, cache, dedup.NewDetector(dedup.NewEmbeddingCache(), 0), 2, 0)
}

func TestProcessRunEmpty(t *testing.T) {
	s := openTestStore(t)
	p := newProcessor(s, &mockProvider{}, openTestCache(t))

	r, err := p.ProcessRun(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Input != 0 || r.Processed != 0 {
		t.Errorf("expected zero counters, got %+v", r)
	}
}

func TestProcessRunStoresResult(t *testing.T) {
	s := openTestStore(t)
	insertRaw(t, s, "a1", "OpenAI launches new reasoning model", 0)

	reply := llmReply(t, map[string]any{
		"title_zh":            "OpenAI发布新推理模型",
		"summary_zh":          "摘要正文。",
		"key_points":          []string{"要点1", "要点2"},
		"impact_analysis":     "影响分析。",
		"category":            "ai",
		"category_confidence": 0.95,
	})
	p := newProcessor(s, &mockProvider{response: reply}, openTestCache(t))

	r, err := p.ProcessRun(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Processed != 1 || r.Kept != 1 {
		t.Fatalf("expected 1 processed and kept, got %+v", r)
	}

	stored, err := s.GetProcessedForRun("2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored result, got %d", len(stored))
	}
	got := stored[0]
	if got.Category != classify.AI || got.Confidence != 0.95 {
		t.Errorf("unexpected classification %s/%v", got.Category, got.Confidence)
	}
	if got.TitleTranslated != "OpenAI发布新推理模型" || got.Summary != "摘要正文。" {
		t.Errorf("unexpected translation %q / %q", got.TitleTranslated, got.Summary)
	}
	if len(got.KeyPoints) != 2 || got.Impact != "影响分析。" {
		t.Errorf("unexpected key points %v / impact %q", got.KeyPoints, got.Impact)
	}
	if !got.IsPrimary {
		t.Error("expected sole article to be primary")
	}
}

func TestProcessRunPromptContents(t *testing.T) {
	s := openTestStore(t)
	insertRaw(t, s, "a1", "Chip exports face new rules", 0)

	capture := &promptCapture{inner: &mockProvider{response: llmReply(t, map[string]any{
		"title_zh": "芯片出口新规", "summary_zh": "摘要。", "category": "semiconductor", "category_confidence": 0.9,
	})}}
	p := newProcessor(s, capture, openTestCache(t))

	if _, err := p.ProcessRun(context.Background(), "2026-02-13"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(capture.prompts) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(capture.prompts))
	}
	if !strings.Contains(capture.prompts[0], "Chip exports face new rules") {
		t.Error("expected prompt to carry the article title")
	}
	if !strings.Contains(capture.prompts[0], "TechCrunch") {
		t.Error("expected prompt to carry the source")
	}
	if !strings.Contains(capture.systems[0], "可选分类") {
		t.Error("expected system prompt to list the categories")
	}
}

func TestProcessRunFallbackOnUnparseableReply(t *testing.T) {
	s := openTestStore(t)
	insertRaw(t, s, "a1", "Quantum startup raises funding round", 0)

	p := newProcessor(s, &mockProvider{response: "sorry, I cannot do that"}, openTestCache(t))
	r, err := p.ProcessRun(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Fallbacks != 1 {
		t.Errorf("expected 1 fallback, got %+v", r)
	}

	stored, _ := s.GetProcessedForRun("2026-02-13")
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored result, got %d", len(stored))
	}
	if stored[0].Category != classify.DefaultCategory || stored[0].Confidence != 0.5 {
		t.Errorf("expected default category fallback, got %s/%v", stored[0].Category, stored[0].Confidence)
	}
	if stored[0].TitleTranslated != "Quantum startup raises funding round" {
		t.Errorf("expected original title kept, got %q", stored[0].TitleTranslated)
	}
}

func TestProcessRunInvalidCategoryUsesCache(t *testing.T) {
	s := openTestStore(t)
	insertRaw(t, s, "a1", "Nvidia ships Blackwell accelerator chips", 0)

	cache := openTestCache(t)
	cache.Insert("Nvidia ships new Blackwell accelerator chips", classify.Semiconductor, 0.9)

	reply := llmReply(t, map[string]any{
		"title_zh": "英伟达出货新芯片", "summary_zh": "摘要。",
		"category": "sports", "category_confidence": 0.99,
	})
	p := newProcessor(s, &mockProvider{response: reply}, cache)

	r, err := p.ProcessRun(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.CacheHits != 1 || r.Fallbacks != 1 {
		t.Errorf("expected cache hit and fallback, got %+v", r)
	}

	stored, _ := s.GetProcessedForRun("2026-02-13")
	if stored[0].Category != classify.Semiconductor {
		t.Errorf("expected cached category, got %s", stored[0].Category)
	}
	if stored[0].Confidence >= 0.9 {
		t.Errorf("expected similarity-scaled confidence below 0.9, got %v", stored[0].Confidence)
	}
}

func TestProcessRunInvalidCategoryWithoutCache(t *testing.T) {
	s := openTestStore(t)
	insertRaw(t, s, "a1", "Mystery topic defies labels entirely", 0)

	reply := llmReply(t, map[string]any{
		"title_zh": "未知", "summary_zh": "摘要。", "category": "sports", "category_confidence": 0.99,
	})
	p := newProcessor(s, &mockProvider{response: reply}, openTestCache(t))

	if _, err := p.ProcessRun(context.Background(), "2026-02-13"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := s.GetProcessedForRun("2026-02-13")
	if stored[0].Category != classify.DefaultCategory || stored[0].Confidence != 0.5 {
		t.Errorf("expected business/0.5 fallback, got %s/%v", stored[0].Category, stored[0].Confidence)
	}
}

func TestProcessRunKeyPeopleReassignment(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.AddPerson("Sam Altman", "奥特曼"); err != nil {
		t.Fatalf("failed to add person: %v", err)
	}
	insertRaw(t, s, "a1", "Sam Altman speaks about AGI timelines", 0)

	reply := llmReply(t, map[string]any{
		"title_zh":            "奥特曼谈AGI时间表",
		"summary_zh":          "奥特曼表示AGI可能在十年内实现。",
		"category":            "ai",
		"category_confidence": 0.9,
	})
	p := newProcessor(s, &mockProvider{response: reply}, openTestCache(t))

	if _, err := p.ProcessRun(context.Background(), "2026-02-13"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := s.GetProcessedForRun("2026-02-13")
	if stored[0].Category != classify.KeyPeople {
		t.Errorf("expected key_people reassignment, got %s", stored[0].Category)
	}
	if len(stored[0].MentionedPeople) != 1 || stored[0].MentionedPeople[0] != "Sam Altman" {
		t.Errorf("expected mentioned person, got %v", stored[0].MentionedPeople)
	}
}

func TestProcessRunNoReassignmentWithoutStatementVerb(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.AddPerson("Sam Altman", "奥特曼"); err != nil {
		t.Fatalf("failed to add person: %v", err)
	}
	insertRaw(t, s, "a1", "Sam Altman visits data center site", 0)

	reply := llmReply(t, map[string]any{
		"title_zh":            "奥特曼参观数据中心",
		"summary_zh":          "他参观了新的数据中心。",
		"category":            "ai",
		"category_confidence": 0.9,
	})
	p := newProcessor(s, &mockProvider{response: reply}, openTestCache(t))

	if _, err := p.ProcessRun(context.Background(), "2026-02-13"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := s.GetProcessedForRun("2026-02-13")
	if stored[0].Category != classify.AI {
		t.Errorf("expected ai category kept, got %s", stored[0].Category)
	}
}

func TestProcessRunDropsDuplicates(t *testing.T) {
	s := openTestStore(t)
	insertRaw(t, s, "a1", "Nvidia posts record quarterly revenue", 0)
	insertRaw(t, s, "a2", "Nvidia posts record quarterly revenue", time.Minute)

	reply := llmReply(t, map[string]any{
		"title_zh":            "英伟达季度营收创纪录",
		"summary_zh":          "简短摘要。",
		"category":            "business",
		"category_confidence": 0.9,
	})
	p := newProcessor(s, &mockProvider{response: reply}, openTestCache(t))

	r, err := p.ProcessRun(context.Background(), "2026-02-13")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Processed != 2 || r.Duplicates != 1 || r.Kept != 1 {
		t.Errorf("expected 2 processed / 1 duplicate / 1 kept, got %+v", r)
	}

	stored, _ := s.GetProcessedForRun("2026-02-13")
	if len(stored) != 1 || stored[0].ID != "a1" {
		t.Fatalf("expected only the earliest article stored, got %+v", stored)
	}
}

func TestIdentifyKeyPeopleChineseName(t *testing.T) {
	people := []store.Person{{Name: "Elon Musk", NameZh: "马斯克"}}
	got := identifyKeyPeople("马斯克今日宣布新计划", people)
	if len(got) != 1 || got[0] != "Elon Musk" {
		t.Errorf("expected English name returned for Chinese match, got %v", got)
	}
	if len(identifyKeyPeople("无关内容", people)) != 0 {
		t.Error("expected no match for unrelated text")
	}
}

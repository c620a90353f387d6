package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gunksd/Perps-news/internal/analyzer"
	"github.com/gunksd/Perps-news/internal/collector"
	"github.com/gunksd/Perps-news/internal/config"
	"github.com/gunksd/Perps-news/internal/store"
	"github.com/gunksd/Perps-news/internal/types"
)

type stubCollector struct {
	name  string
	items []types.RawNews
	err   error
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(ctx context.Context) ([]types.RawNews, error) {
	return s.items, s.err
}

func testConfig() *config.Config {
	cfg := &config.Config{DataDir: "unused"}
	cfg.Collect.WindowHours = 48
	cfg.Analysis.MaxPerRun = 50
	cfg.Analysis.BatchSize = 10
	cfg.Analysis.BatchDelayMS = 1
	cfg.Summary.IndexDelayMS = 1
	return cfg
}

func testStore(t *testing.T) *store.FileStore {
	t.Helper()
	st := store.NewFileStore(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	return st
}

// chatServer serves a fixed chat-completions content and counts requests.
func chatServer(t *testing.T, content string, count *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if count != nil {
			count.Add(1)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func aiConfig(url string) config.AIConfig {
	return config.AIConfig{APIKey: "test-key", Endpoint: url, Model: "test-model"}
}

const analysisContent = `{
	"summary_cn": "摘要",
	"summary_en": "summary",
	"market_impact": {"direction": "利多", "affected_markets": ["中证指数"], "logic": "测试"},
	"confidence": 0.8
}`

const summaryContent = `{
	"short_term": {"direction": "看多", "logic": "测试"},
	"medium_term": {"direction": "震荡", "logic": "测试"},
	"confidence": 0.6
}`

func recentNews(n int, now time.Time) []types.RawNews {
	items := make([]types.RawNews, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, types.RawNews{
			ID:     "id-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Time:   now.Add(-time.Duration(i+1) * time.Minute),
			Source: types.SourceCLS,
			Title:  "news item",
		})
	}
	return items
}

func TestCollectNewsPartialFailure(t *testing.T) {
	now := time.Now()
	st := testStore(t)

	p := New(st, []collector.Collector{
		&stubCollector{name: "good", items: recentNews(3, now)},
		&stubCollector{name: "broken", err: errors.New("upstream down")},
	}, nil, nil, nil, testConfig())

	if err := p.CollectNews(context.Background()); err != nil {
		t.Fatalf("Expected partial failure to be tolerated, got %v", err)
	}

	news, err := st.LoadNews()
	if err != nil {
		t.Fatal(err)
	}
	if len(news) != 3 {
		t.Errorf("Expected 3 items from the healthy collector, got %d", len(news))
	}
}

func TestAnalyzeNewsRespectsMaxPerRun(t *testing.T) {
	now := time.Now()
	st := testStore(t)
	if err := st.SaveNews(recentNews(80, now)); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := chatServer(t, analysisContent, &calls)
	defer srv.Close()

	cfg := testConfig()
	p := New(st, nil, analyzer.NewNewsAnalyzer(aiConfig(srv.URL)), nil, nil, cfg)

	if err := p.AnalyzeNews(context.Background()); err != nil {
		t.Fatalf("AnalyzeNews failed: %v", err)
	}

	if n := calls.Load(); n != int32(cfg.Analysis.MaxPerRun) {
		t.Errorf("Expected %d analyzer calls, got %d", cfg.Analysis.MaxPerRun, n)
	}

	analyses, err := st.LoadAnalyses()
	if err != nil {
		t.Fatal(err)
	}
	if len(analyses) != cfg.Analysis.MaxPerRun {
		t.Errorf("Expected %d stored analyses, got %d", cfg.Analysis.MaxPerRun, len(analyses))
	}
}

func TestAnalyzeNewsSkipsAnalyzed(t *testing.T) {
	now := time.Now()
	st := testStore(t)

	items := recentNews(5, now)
	if err := st.SaveNews(items); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveAnalyses([]types.NewsAnalysis{
		{NewsID: items[0].ID, SummaryCN: "done", AnalyzedAt: now},
		{NewsID: items[1].ID, SummaryCN: "done", AnalyzedAt: now},
	}); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := chatServer(t, analysisContent, &calls)
	defer srv.Close()

	p := New(st, nil, analyzer.NewNewsAnalyzer(aiConfig(srv.URL)), nil, nil, testConfig())

	if err := p.AnalyzeNews(context.Background()); err != nil {
		t.Fatalf("AnalyzeNews failed: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("Expected 3 calls for the unanalyzed items, got %d", n)
	}
}

func TestAnalyzeNewsFailureIsolation(t *testing.T) {
	now := time.Now()
	st := testStore(t)
	if err := st.SaveNews(recentNews(10, now)); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1)%3 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": analysisContent}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := New(st, nil, analyzer.NewNewsAnalyzer(aiConfig(srv.URL)), nil, nil, testConfig())

	if err := p.AnalyzeNews(context.Background()); err != nil {
		t.Fatalf("Expected per-item failures to be isolated, got %v", err)
	}

	analyses, err := st.LoadAnalyses()
	if err != nil {
		t.Fatal(err)
	}
	// requests 3, 6 and 9 fail
	if len(analyses) != 7 {
		t.Errorf("Expected 7 successful analyses, got %d", len(analyses))
	}
}

func TestAnalyzeNewsNoAnalyzer(t *testing.T) {
	p := New(testStore(t), nil, nil, nil, nil, testConfig())
	if err := p.AnalyzeNews(context.Background()); err == nil {
		t.Error("Expected error when analyzer is not configured")
	}
}

func TestGenerateSummariesPerIndex(t *testing.T) {
	now := time.Now()
	st := testStore(t)

	items := recentNews(2, now)
	if err := st.SaveNews(items); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveAnalyses([]types.NewsAnalysis{
		{
			NewsID:       items[0].ID,
			SummaryCN:    "a",
			AnalyzedAt:   now,
			MarketImpact: types.MarketImpact{Direction: types.DirectionBullish, AffectedMarkets: []string{types.IndexCSI}},
		},
		{
			NewsID:       items[1].ID,
			SummaryCN:    "b",
			AnalyzedAt:   now,
			MarketImpact: types.MarketImpact{Direction: types.DirectionBearish, AffectedMarkets: []string{types.IndexNasdaq}},
		},
	}); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := chatServer(t, summaryContent, &calls)
	defer srv.Close()

	p := New(st, nil, nil, analyzer.NewSummaryAnalyzer(aiConfig(srv.URL)), nil, testConfig())

	if err := p.GenerateSummaries(context.Background()); err != nil {
		t.Fatalf("GenerateSummaries failed: %v", err)
	}

	if n := calls.Load(); n != 2 {
		t.Errorf("Expected one summary call per index, got %d", n)
	}

	summaries, err := st.LoadSummaries()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if len(s.KeyNewsIDs) != 1 {
			t.Errorf("Expected 1 key news id for %s, got %v", s.Index, s.KeyNewsIDs)
		}
	}
}

func TestGenerateSummariesSkipsEmptyIndex(t *testing.T) {
	now := time.Now()
	st := testStore(t)
	if err := st.SaveAnalyses([]types.NewsAnalysis{
		{
			NewsID:       "n1",
			SummaryCN:    "a",
			AnalyzedAt:   now,
			MarketImpact: types.MarketImpact{Direction: types.DirectionNeutral, AffectedMarkets: []string{types.IndexCSI}},
		},
	}); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := chatServer(t, summaryContent, &calls)
	defer srv.Close()

	p := New(st, nil, nil, analyzer.NewSummaryAnalyzer(aiConfig(srv.URL)), nil, testConfig())

	if err := p.GenerateSummaries(context.Background()); err != nil {
		t.Fatalf("GenerateSummaries failed: %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("Expected no summary calls for neutral-only analyses, got %d", n)
	}

	summaries, err := st.LoadSummaries()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("Expected no summaries, got %d", len(summaries))
	}
}

func TestSummaryPeriod(t *testing.T) {
	morning := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	if got := summaryPeriod(morning); got != types.PeriodMorning {
		t.Errorf("Expected 10:00 period before 16h, got %q", got)
	}

	evening := time.Date(2026, 8, 28, 21, 30, 0, 0, time.UTC)
	if got := summaryPeriod(evening); got != types.PeriodEvening {
		t.Errorf("Expected 22:00 period after 16h, got %q", got)
	}
}

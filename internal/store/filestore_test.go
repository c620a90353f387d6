package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

func newTestStore(t *testing.T, now time.Time) *FileStore {
	t.Helper()
	s := NewFileStore(t.TempDir())
	s.now = func() time.Time { return now }
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s
}

func newsItem(id string, ts time.Time) types.RawNews {
	return types.RawNews{
		ID:     id,
		Time:   ts,
		Source: types.SourceCLS,
		Title:  "title " + id,
	}
}

func TestLoadNewsMissingFile(t *testing.T) {
	s := newTestStore(t, time.Now())

	news, err := s.LoadNews()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(news) != 0 {
		t.Errorf("Expected empty slice, got %d items", len(news))
	}
}

func TestLoadNewsMalformedFile(t *testing.T) {
	s := newTestStore(t, time.Now())

	if err := os.WriteFile(s.path("news.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadNews(); err == nil {
		t.Error("Expected error for malformed file")
	}
}

func TestSaveNewsMergeIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	items := []types.RawNews{
		newsItem("a", now.Add(-1*time.Hour)),
		newsItem("b", now.Add(-2*time.Hour)),
	}
	if err := s.SaveNews(items); err != nil {
		t.Fatalf("SaveNews failed: %v", err)
	}
	if err := s.SaveNews(items); err != nil {
		t.Fatalf("Second SaveNews failed: %v", err)
	}

	news, err := s.LoadNews()
	if err != nil {
		t.Fatal(err)
	}
	if len(news) != 2 {
		t.Errorf("Expected 2 items after re-save, got %d", len(news))
	}
}

func TestSaveNewsReplacesById(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	first := newsItem("a", now.Add(-1*time.Hour))
	if err := s.SaveNews([]types.RawNews{first}); err != nil {
		t.Fatal(err)
	}

	updated := first
	updated.Content = "fuller content"
	if err := s.SaveNews([]types.RawNews{updated}); err != nil {
		t.Fatal(err)
	}

	news, err := s.LoadNews()
	if err != nil {
		t.Fatal(err)
	}
	if len(news) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(news))
	}
	if news[0].Content != "fuller content" {
		t.Errorf("Expected last write to win, got content %q", news[0].Content)
	}
}

func TestSaveNewsSortsByTimeDesc(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	items := []types.RawNews{
		newsItem("old", now.Add(-5*time.Hour)),
		newsItem("new", now.Add(-1*time.Hour)),
		newsItem("mid", now.Add(-3*time.Hour)),
	}
	if err := s.SaveNews(items); err != nil {
		t.Fatal(err)
	}

	news, err := s.LoadNews()
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(news); i++ {
		if news[i].Time.After(news[i-1].Time) {
			t.Fatalf("Expected time-descending order, got %v before %v", news[i-1].Time, news[i].Time)
		}
	}
}

func TestSaveNewsByteStable(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	items := []types.RawNews{
		newsItem("a", now.Add(-1*time.Hour)),
		newsItem("b", now.Add(-1*time.Hour)), // same timestamp as a
		newsItem("c", now.Add(-2*time.Hour)),
	}
	if err := s.SaveNews(items); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(s.path("news.json"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SaveNews(items); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(s.path("news.json"))
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Error("Expected identical bytes after re-saving unchanged data")
	}
}

func TestSaveNewsArchivesPastMonths(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	items := []types.RawNews{
		newsItem("current", time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)),
		newsItem("past", time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)),
	}
	if err := s.SaveNews(items); err != nil {
		t.Fatal(err)
	}

	current, err := s.LoadNews()
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 1 || current[0].ID != "current" {
		t.Errorf("Expected only the current-month item in news.json, got %+v", current)
	}

	if _, err := os.Stat(filepath.Join(s.archiveDir(), "news-2026-02.json")); err != nil {
		t.Errorf("Expected archive file for 2026-02: %v", err)
	}

	all, err := s.GetNewsInRange("2026-02", "2026-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("Expected both items from range query, got %d", len(all))
	}
}

func TestArchiveMergeIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	past := newsItem("past", time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	if err := s.SaveNews([]types.RawNews{past}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNews([]types.RawNews{past}); err != nil {
		t.Fatal(err)
	}

	archived, err := readJSON[types.RawNews](s.newsArchivePath("2026-02"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 {
		t.Errorf("Expected 1 archived item after double save, got %d", len(archived))
	}
}

func TestGetRecentNewsRollingWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	items := []types.RawNews{
		newsItem("h1", now.Add(-1*time.Hour)),
		newsItem("h10", now.Add(-10*time.Hour)),
		newsItem("h30", now.Add(-30*time.Hour)),
		newsItem("h50", now.Add(-50*time.Hour)),
	}
	if err := s.SaveNews(items); err != nil {
		t.Fatal(err)
	}

	recent, err := s.GetRecentNews(48)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 items within 48h, got %d", len(recent))
	}
	for _, n := range recent {
		if n.ID == "h50" {
			t.Error("Expected h50 to be outside the window")
		}
	}
}

func TestSaveAnalysesOverwritesByNewsID(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	first := types.NewsAnalysis{NewsID: "a", SummaryCN: "v1", AnalyzedAt: now.Add(-time.Hour)}
	second := types.NewsAnalysis{NewsID: "a", SummaryCN: "v2", AnalyzedAt: now}

	if err := s.SaveAnalyses([]types.NewsAnalysis{first}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAnalyses([]types.NewsAnalysis{second}); err != nil {
		t.Fatal(err)
	}

	analyses, err := s.LoadAnalyses()
	if err != nil {
		t.Fatal(err)
	}
	if len(analyses) != 1 {
		t.Fatalf("Expected 1 analysis, got %d", len(analyses))
	}
	if analyses[0].SummaryCN != "v2" {
		t.Errorf("Expected re-analysis to overwrite, got %q", analyses[0].SummaryCN)
	}
}

func TestSaveSummariesCap(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	batch := make([]types.IndexSummary, 0, summariesCap+5)
	for i := 0; i < summariesCap+5; i++ {
		batch = append(batch, types.IndexSummary{
			Index:     types.IndexCSI,
			Period:    types.PeriodMorning,
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	if err := s.SaveSummaries(batch); err != nil {
		t.Fatal(err)
	}

	summaries, err := s.LoadSummaries()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != summariesCap {
		t.Fatalf("Expected cap of %d summaries, got %d", summariesCap, len(summaries))
	}
	if !summaries[0].Timestamp.Equal(now) {
		t.Errorf("Expected newest summary first, got %v", summaries[0].Timestamp)
	}
}

func TestSaveIndicesOverwrites(t *testing.T) {
	s := newTestStore(t, time.Now())

	if err := s.SaveIndices([]types.IndexData{{Symbol: "000905.SS", Price: 6000}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveIndices([]types.IndexData{{Symbol: "^IXIC", Price: 21000}}); err != nil {
		t.Fatal(err)
	}

	indices, err := s.LoadIndices()
	if err != nil {
		t.Fatal(err)
	}
	if len(indices) != 1 || indices[0].Symbol != "^IXIC" {
		t.Errorf("Expected snapshot overwrite, got %+v", indices)
	}
}

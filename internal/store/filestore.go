package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

// FileStore persists the pipeline collections as pretty-printed JSON under
// a data directory:
//
//	news.json      current-month raw news
//	analyses.json  current-month analyses
//	summaries.json rolling window of index summaries (capped at 100)
//	indices.json   latest index snapshots
//	archive/       news-YYYY-MM.json / analyses-YYYY-MM.json per past month
//
// The store assumes a single writer at a time per collection; the batch
// pipeline's sequential stage invocation is what upholds that. A
// multi-process deployment would need external locking.
type FileStore struct {
	dataDir string
	now     func() time.Time
}

const summariesCap = 100

// NewFileStore creates a store rooted at dataDir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir, now: time.Now}
}

// Init creates the data and archive directories.
func (s *FileStore) Init() error {
	if err := os.MkdirAll(s.archiveDir(), 0o755); err != nil {
		return fmt.Errorf("create data dirs: %w", err)
	}
	return nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dataDir, name)
}

func (s *FileStore) archiveDir() string {
	return filepath.Join(s.dataDir, "archive")
}

// monthKey renders the calendar month partition key. "YYYY-MM" sorts
// chronologically under plain string comparison.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// readJSON loads a JSON array file. A missing file yields an empty slice,
// not an error; a malformed file is an error.
func readJSON[T any](path string) ([]T, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

// writeJSON persists a collection. Write failures propagate: a silently
// partial write would corrupt the merge invariants.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SaveNews merges items into the news corpus keyed by id, re-sorts by time
// descending, archives months older than the current one, and writes the
// current-month subset back. Ids are content-derived, so re-saving
// unchanged upstream data is a no-op.
func (s *FileStore) SaveNews(items []types.RawNews) error {
	existing, err := s.LoadNews()
	if err != nil {
		return err
	}

	merged := mergeNews(existing, items)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time.After(merged[j].Time)
	})

	current, err := s.archiveNews(merged)
	if err != nil {
		return err
	}

	return writeJSON(s.path("news.json"), current)
}

// LoadNews returns the current-month news. Missing file means empty.
func (s *FileStore) LoadNews() ([]types.RawNews, error) {
	return readJSON[types.RawNews](s.path("news.json"))
}

// SaveAnalyses merges analyses keyed by news id (a re-analysis overwrites
// the older result), archives past months by analyzedAt, and writes the
// current month back.
func (s *FileStore) SaveAnalyses(items []types.NewsAnalysis) error {
	existing, err := s.LoadAnalyses()
	if err != nil {
		return err
	}

	merged := mergeAnalyses(existing, items)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].AnalyzedAt.After(merged[j].AnalyzedAt)
	})

	current, err := s.archiveAnalyses(merged)
	if err != nil {
		return err
	}

	return writeJSON(s.path("analyses.json"), current)
}

// LoadAnalyses returns the current-month analyses. Missing file means empty.
func (s *FileStore) LoadAnalyses() ([]types.NewsAnalysis, error) {
	return readJSON[types.NewsAnalysis](s.path("analyses.json"))
}

// SaveSummaries appends, sorts by timestamp descending and keeps only the
// most recent entries. Evicted summaries are dropped, not archived.
func (s *FileStore) SaveSummaries(items []types.IndexSummary) error {
	existing, err := s.LoadSummaries()
	if err != nil {
		return err
	}

	merged := append(existing, items...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	if len(merged) > summariesCap {
		merged = merged[:summariesCap]
	}

	return writeJSON(s.path("summaries.json"), merged)
}

// LoadSummaries returns the stored summaries. Missing file means empty.
func (s *FileStore) LoadSummaries() ([]types.IndexSummary, error) {
	return readJSON[types.IndexSummary](s.path("summaries.json"))
}

// SaveIndices overwrites the snapshot file wholesale.
func (s *FileStore) SaveIndices(items []types.IndexData) error {
	return writeJSON(s.path("indices.json"), items)
}

// LoadIndices returns the latest index snapshots. Missing file means empty.
func (s *FileStore) LoadIndices() ([]types.IndexData, error) {
	return readJSON[types.IndexData](s.path("indices.json"))
}

// SaveCandles overwrites the K-line file for one index. Candles are chart
// material only, so like snapshots they are never merged or archived.
func (s *FileStore) SaveCandles(index string, items []types.Candle) error {
	return writeJSON(s.path("candles-"+index+".json"), items)
}

// LoadCandles returns the stored K-line points for one index.
func (s *FileStore) LoadCandles(index string) ([]types.Candle, error) {
	return readJSON[types.Candle](s.path("candles-" + index + ".json"))
}

// GetTodayNews filters the current file to the local calendar day.
//
// Deprecated: the calendar-day window is empty in early morning hours;
// use GetRecentNews. Kept because the serving layer still reads it.
func (s *FileStore) GetTodayNews() ([]types.RawNews, error) {
	news, err := s.LoadNews()
	if err != nil {
		return nil, err
	}

	now := s.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var out []types.RawNews
	for _, n := range news {
		t := n.Time.In(now.Location())
		ny, nm, nd := t.Date()
		if time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location()).Equal(today) {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetRecentNews filters the current file to a rolling window of the given
// number of hours. This is the window the pipeline and serving layer use.
func (s *FileStore) GetRecentNews(hours int) ([]types.RawNews, error) {
	news, err := s.LoadNews()
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)
	var out []types.RawNews
	for _, n := range news {
		if n.Time.After(cutoff) {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetNewsInRange returns the union of the current-month news (when the
// current month is in range) and every archive whose month key falls within
// [startMonth, endMonth], both "YYYY-MM", inclusive.
func (s *FileStore) GetNewsInRange(startMonth, endMonth string) ([]types.RawNews, error) {
	var all []types.RawNews

	months, err := s.archivedMonths("news-")
	if err != nil {
		return nil, err
	}
	for _, m := range months {
		if m < startMonth || m > endMonth {
			continue
		}
		items, err := readJSON[types.RawNews](s.newsArchivePath(m))
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	if cur := monthKey(s.now()); cur >= startMonth && cur <= endMonth {
		items, err := s.LoadNews()
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	deduped := mergeNews(nil, all)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Time.After(deduped[j].Time)
	})
	return deduped, nil
}

// archivedMonths lists the month keys present in the archive directory for
// files with the given prefix.
func (s *FileStore) archivedMonths(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.archiveDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var months []string
	for _, e := range entries {
		name := e.Name()
		if len(name) != len(prefix)+len("2006-01.json") {
			continue
		}
		if name[:len(prefix)] != prefix || filepath.Ext(name) != ".json" {
			continue
		}
		months = append(months, name[len(prefix):len(name)-len(".json")])
	}
	sort.Strings(months)
	return months, nil
}

// mergeNews merges right into left keyed by id, preserving left's order and
// appending unseen items in input order. Keeping the order deterministic is
// what makes repeated saves byte-stable.
func mergeNews(left, right []types.RawNews) []types.RawNews {
	index := make(map[string]int, len(left))
	merged := make([]types.RawNews, len(left))
	copy(merged, left)
	for i, n := range merged {
		index[n.ID] = i
	}

	for _, n := range right {
		if i, ok := index[n.ID]; ok {
			merged[i] = n
			continue
		}
		index[n.ID] = len(merged)
		merged = append(merged, n)
	}
	return merged
}

// mergeAnalyses merges right into left keyed by newsId, last write wins.
func mergeAnalyses(left, right []types.NewsAnalysis) []types.NewsAnalysis {
	index := make(map[string]int, len(left))
	merged := make([]types.NewsAnalysis, len(left))
	copy(merged, left)
	for i, a := range merged {
		index[a.NewsID] = i
	}

	for _, a := range right {
		if i, ok := index[a.NewsID]; ok {
			merged[i] = a
			continue
		}
		index[a.NewsID] = len(merged)
		merged = append(merged, a)
	}
	return merged
}

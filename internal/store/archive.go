package store

import (
	"path/filepath"
	"sort"

	"github.com/gunksd/Perps-news/internal/types"
)

// Monthly archival. Each save partitions the full merged collection by the
// calendar month of its primary timestamp. The current month stays in the
// live file; every earlier month is merged into that month's archive file
// (read-if-exists, merge, dedup, sort, rewrite), which makes archival
// idempotent and safe to run on every save.
//
// News and analyses get separate, concretely-typed archival passes keyed by
// their own timestamp fields; only the month partitioning is shared.

func (s *FileStore) newsArchivePath(month string) string {
	return filepath.Join(s.archiveDir(), "news-"+month+".json")
}

func (s *FileStore) analysesArchivePath(month string) string {
	return filepath.Join(s.archiveDir(), "analyses-"+month+".json")
}

// archiveNews moves past-month items into their archives and returns the
// current-month remainder.
func (s *FileStore) archiveNews(merged []types.RawNews) ([]types.RawNews, error) {
	currentMonth := monthKey(s.now())

	current := make([]types.RawNews, 0, len(merged))
	byMonth := map[string][]types.RawNews{}
	var months []string
	for _, n := range merged {
		m := monthKey(n.Time)
		if m == currentMonth {
			current = append(current, n)
			continue
		}
		if _, seen := byMonth[m]; !seen {
			months = append(months, m)
		}
		byMonth[m] = append(byMonth[m], n)
	}
	sort.Strings(months)

	for _, m := range months {
		path := s.newsArchivePath(m)
		existing, err := readJSON[types.RawNews](path)
		if err != nil {
			return nil, err
		}
		archived := mergeNews(existing, byMonth[m])
		sort.SliceStable(archived, func(i, j int) bool {
			return archived[i].Time.After(archived[j].Time)
		})
		if err := writeJSON(path, archived); err != nil {
			return nil, err
		}
	}

	return current, nil
}

// archiveAnalyses is the analyses counterpart, partitioned by analyzedAt
// and deduped by news id. An analysis can land in a different month than
// its news item; that looseness is accepted, not repaired.
func (s *FileStore) archiveAnalyses(merged []types.NewsAnalysis) ([]types.NewsAnalysis, error) {
	currentMonth := monthKey(s.now())

	current := make([]types.NewsAnalysis, 0, len(merged))
	byMonth := map[string][]types.NewsAnalysis{}
	var months []string
	for _, a := range merged {
		m := monthKey(a.AnalyzedAt)
		if m == currentMonth {
			current = append(current, a)
			continue
		}
		if _, seen := byMonth[m]; !seen {
			months = append(months, m)
		}
		byMonth[m] = append(byMonth[m], a)
	}
	sort.Strings(months)

	for _, m := range months {
		path := s.analysesArchivePath(m)
		existing, err := readJSON[types.NewsAnalysis](path)
		if err != nil {
			return nil, err
		}
		archived := mergeAnalyses(existing, byMonth[m])
		sort.SliceStable(archived, func(i, j int) bool {
			return archived[i].AnalyzedAt.After(archived[j].AnalyzedAt)
		})
		if err := writeJSON(path, archived); err != nil {
			return nil, err
		}
	}

	return current, nil
}

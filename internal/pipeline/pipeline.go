package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gunksd/Perps-news/internal/analyzer"
	"github.com/gunksd/Perps-news/internal/collector"
	"github.com/gunksd/Perps-news/internal/config"
	"github.com/gunksd/Perps-news/internal/indices"
	"github.com/gunksd/Perps-news/internal/logger"
	"github.com/gunksd/Perps-news/internal/scorer"
	"github.com/gunksd/Perps-news/internal/store"
	"github.com/gunksd/Perps-news/internal/trace"
	"github.com/gunksd/Perps-news/internal/types"
)

// candleCount is how many daily K-line points are kept per index.
const candleCount = 60

// Pipeline wires the collectors, the store, the analyzers and the quote
// client into the scheduled run stages. It owns no state beyond its
// dependencies; all persistence goes through the store.
type Pipeline struct {
	store      *store.FileStore
	collectors []collector.Collector
	news       *analyzer.NewsAnalyzer
	summary    *analyzer.SummaryAnalyzer
	quotes     *indices.SinaClient
	cfg        *config.Config

	now func() time.Time
}

// New builds a pipeline. The analyzers may be nil for collect-only runs;
// stages that need them fail with a clear error instead of panicking.
func New(st *store.FileStore, collectors []collector.Collector, news *analyzer.NewsAnalyzer, summary *analyzer.SummaryAnalyzer, quotes *indices.SinaClient, cfg *config.Config) *Pipeline {
	return &Pipeline{
		store:      st,
		collectors: collectors,
		news:       news,
		summary:    summary,
		quotes:     quotes,
		cfg:        cfg,
		now:        time.Now,
	}
}

// CollectNews runs every collector concurrently and merges the union of
// their items into the store. A failed collector contributes zero items;
// the run only fails if persistence fails.
func (p *Pipeline) CollectNews(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "pipeline.CollectNews")
	defer span.End()

	var (
		mu    sync.Mutex
		items []types.RawNews
		wg    sync.WaitGroup
	)
	for _, c := range p.collectors {
		wg.Add(1)
		go func(c collector.Collector) {
			defer wg.Done()
			got, err := c.Collect(ctx)
			if err != nil {
				logger.ErrorWithErr(ctx, "collector failed", err, "source", c.Name())
				return
			}
			logger.Info(ctx, "collector finished", "source", c.Name(), "items", len(got))
			mu.Lock()
			items = append(items, got...)
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	if err := p.store.SaveNews(items); err != nil {
		return fmt.Errorf("save collected news: %w", err)
	}
	logger.Info(ctx, "collection complete", "collected", len(items))
	return nil
}

// UpdateIndices refreshes the quote snapshots for the tracked indices and
// their daily candles. Candle failures degrade to an empty chart; a failed
// quote fails the stage so a stale snapshot is never half-overwritten.
func (p *Pipeline) UpdateIndices(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "pipeline.UpdateIndices")
	defer span.End()

	data, err := p.quotes.GetMultipleIndices(ctx, indices.TrackedIndices)
	if err != nil {
		return fmt.Errorf("fetch index quotes: %w", err)
	}
	if err := p.store.SaveIndices(data); err != nil {
		return fmt.Errorf("save index snapshots: %w", err)
	}

	for _, symbol := range indices.TrackedIndices {
		candles, err := p.quotes.GetCandleData(ctx, symbol, "240", candleCount)
		if err != nil {
			logger.Warn(ctx, "candle fetch failed", "index", symbol, "error", err)
			continue
		}
		if err := p.store.SaveCandles(string(symbol), candles); err != nil {
			return fmt.Errorf("save candles for %s: %w", symbol, err)
		}
	}

	logger.Info(ctx, "indices updated", "count", len(data))
	return nil
}

// AnalyzeNews selects the highest pre-filter-scoring unanalyzed items from
// the recent window and runs them through the AI analyzer in batches. A
// failed item is logged and skipped; its absence from the analyses file
// makes it a candidate again on the next run.
func (p *Pipeline) AnalyzeNews(ctx context.Context) error {
	if p.news == nil {
		return fmt.Errorf("news analyzer not configured")
	}

	ctx, span := trace.StartSpan(ctx, "pipeline.AnalyzeNews")
	defer span.End()

	recent, err := p.store.GetRecentNews(p.cfg.Collect.WindowHours)
	if err != nil {
		return fmt.Errorf("load recent news: %w", err)
	}
	existing, err := p.store.LoadAnalyses()
	if err != nil {
		return fmt.Errorf("load analyses: %w", err)
	}

	analyzed := make(map[string]bool, len(existing))
	for _, a := range existing {
		analyzed[a.NewsID] = true
	}

	candidates := make([]types.RawNews, 0, len(recent))
	for _, item := range recent {
		if !analyzed[item.ID] {
			candidates = append(candidates, item)
		}
	}

	now := p.now()
	sort.SliceStable(candidates, func(i, j int) bool {
		return scorer.PreFilterScore(candidates[i], now) > scorer.PreFilterScore(candidates[j], now)
	})
	if len(candidates) > p.cfg.Analysis.MaxPerRun {
		candidates = candidates[:p.cfg.Analysis.MaxPerRun]
	}
	if len(candidates) == 0 {
		logger.Info(ctx, "no news to analyze")
		return nil
	}
	logger.Info(ctx, "analyzing news", "candidates", len(candidates), "already_analyzed", len(analyzed))

	var (
		mu      sync.Mutex
		results []types.NewsAnalysis
	)
	batchSize := p.cfg.Analysis.BatchSize
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(item types.RawNews) {
				defer wg.Done()
				analysis, err := p.news.Analyze(ctx, item)
				if err != nil {
					logger.ErrorWithErr(ctx, "analysis failed", err, "news_id", item.ID, "title", item.Title)
					return
				}
				mu.Lock()
				results = append(results, analysis)
				mu.Unlock()
			}(item)
		}
		wg.Wait()

		if end < len(candidates) {
			select {
			case <-time.After(time.Duration(p.cfg.Analysis.BatchDelayMS) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if err := p.store.SaveAnalyses(results); err != nil {
		return fmt.Errorf("save analyses: %w", err)
	}
	logger.Info(ctx, "analysis complete", "succeeded", len(results), "failed", len(candidates)-len(results))
	return nil
}

// GenerateSummaries builds one index-level outlook per tracked index from
// the analyses relevant to it. An index with no relevant analyses is
// skipped; one index failing does not abort the other.
func (p *Pipeline) GenerateSummaries(ctx context.Context) error {
	if p.summary == nil {
		return fmt.Errorf("summary analyzer not configured")
	}

	ctx, span := trace.StartSpan(ctx, "pipeline.GenerateSummaries")
	defer span.End()

	recent, err := p.store.GetRecentNews(p.cfg.Collect.WindowHours)
	if err != nil {
		return fmt.Errorf("load recent news: %w", err)
	}
	analyses, err := p.store.LoadAnalyses()
	if err != nil {
		return fmt.Errorf("load analyses: %w", err)
	}

	period := summaryPeriod(p.now())
	targets := []string{types.IndexCSI, types.IndexNasdaq}

	var summaries []types.IndexSummary
	for i, index := range targets {
		relevant := analyzer.FilterRelevant(analyses, index)
		if len(relevant) == 0 {
			logger.Info(ctx, "no relevant analyses for index", "index", index)
		} else {
			summary, err := p.summary.Summarize(ctx, recent, relevant, index, period)
			if err != nil {
				logger.ErrorWithErr(ctx, "summary failed", err, "index", index)
			} else {
				summaries = append(summaries, summary)
			}
		}

		if i < len(targets)-1 {
			select {
			case <-time.After(time.Duration(p.cfg.Summary.IndexDelayMS) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if len(summaries) == 0 {
		logger.Info(ctx, "no summaries generated")
		return nil
	}
	if err := p.store.SaveSummaries(summaries); err != nil {
		return fmt.Errorf("save summaries: %w", err)
	}
	logger.Info(ctx, "summaries saved", "count", len(summaries))
	return nil
}

// RunAll executes the full scheduled run: collect, refresh indices,
// analyze, and, at the two daily report hours, summarize. Index refresh
// failures are logged but do not block analysis.
func (p *Pipeline) RunAll(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "pipeline.RunAll")
	defer span.End()

	if err := p.CollectNews(ctx); err != nil {
		return err
	}
	if err := p.UpdateIndices(ctx); err != nil {
		logger.ErrorWithErr(ctx, "index update failed", err)
	}
	if err := p.AnalyzeNews(ctx); err != nil {
		return err
	}

	if hour := p.now().Hour(); hour == 10 || hour == 22 {
		if err := p.GenerateSummaries(ctx); err != nil {
			return err
		}
	} else {
		logger.Info(ctx, "skipping summaries outside report hours", "hour", p.now().Hour())
	}
	return nil
}

// summaryPeriod buckets a run into the morning or evening report slot.
func summaryPeriod(t time.Time) string {
	if t.Hour() < 16 {
		return types.PeriodMorning
	}
	return types.PeriodEvening
}

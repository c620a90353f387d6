package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gunksd/Perps-news/internal/config"
	"github.com/gunksd/Perps-news/internal/trace"
	"github.com/gunksd/Perps-news/internal/types"
)

// SummaryAnalyzer aggregates per-item analyses into an index-level outlook.
type SummaryAnalyzer struct {
	client *client
	now    func() time.Time
}

// NewSummaryAnalyzer builds the index summarizer from the AI config.
func NewSummaryAnalyzer(cfg config.AIConfig) *SummaryAnalyzer {
	return &SummaryAnalyzer{client: newClient(cfg), now: time.Now}
}

type summaryResult struct {
	ShortTerm  *types.Outlook `json:"short_term"`
	MediumTerm *types.Outlook `json:"medium_term"`
	Confidence float64        `json:"confidence"`
}

// Summarize sends the already-filtered relevant analyses for one index and
// returns the outlook summary. The caller decides relevance; key_news_ids
// records exactly what went into the request.
func (a *SummaryAnalyzer) Summarize(ctx context.Context, news []types.RawNews, relevant []types.NewsAnalysis, index, period string) (types.IndexSummary, error) {
	ctx, span := trace.StartSpan(ctx, "analyzer.Summarize")
	defer span.End()

	content, err := a.client.complete(ctx, summarySystemPrompt, buildSummaryPrompt(news, relevant, index))
	if err != nil {
		return types.IndexSummary{}, fmt.Errorf("summarize %s: %w", index, err)
	}

	var result summaryResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return types.IndexSummary{}, fmt.Errorf("summarize %s: parse summary JSON: %w (content: %s)", index, err, excerpt(content))
	}

	if result.ShortTerm == nil || result.MediumTerm == nil {
		return types.IndexSummary{}, fmt.Errorf("summarize %s: missing required fields in summary result (content: %s)", index, excerpt(content))
	}

	keyIDs := make([]string, 0, len(relevant))
	for _, a := range relevant {
		keyIDs = append(keyIDs, a.NewsID)
	}

	return types.IndexSummary{
		Index:      index,
		Timestamp:  a.now(),
		Period:     period,
		ShortTerm:  *result.ShortTerm,
		MediumTerm: *result.MediumTerm,
		KeyNewsIDs: keyIDs,
		Confidence: result.Confidence,
	}, nil
}

// FilterRelevant keeps analyses that mention the index among their affected
// markets with a non-neutral direction.
func FilterRelevant(analyses []types.NewsAnalysis, index string) []types.NewsAnalysis {
	var out []types.NewsAnalysis
	for _, a := range analyses {
		if a.MarketImpact.Direction == types.DirectionNeutral {
			continue
		}
		for _, market := range a.MarketImpact.AffectedMarkets {
			if market == index {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

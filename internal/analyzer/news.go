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

// NewsAnalyzer produces one NewsAnalysis per item via the LLM endpoint.
type NewsAnalyzer struct {
	client *client
	now    func() time.Time
}

// NewNewsAnalyzer builds the per-item analyzer from the AI config.
func NewNewsAnalyzer(cfg config.AIConfig) *NewsAnalyzer {
	return &NewsAnalyzer{client: newClient(cfg), now: time.Now}
}

// analysisResult mirrors the JSON shape the model is instructed to emit.
type analysisResult struct {
	TitleEN   string `json:"title_en"`
	SummaryCN string `json:"summary_cn"`
	SummaryEN string `json:"summary_en"`
	Impact    *struct {
		Direction         string   `json:"direction"`
		DirectionEN       string   `json:"direction_en"`
		AffectedMarkets   []string `json:"affected_markets"`
		AffectedMarketsEN []string `json:"affected_markets_en"`
		Logic             string   `json:"logic"`
		LogicEN           string   `json:"logic_en"`
	} `json:"market_impact"`
	RelatedStocks []types.RelatedStock `json:"related_stocks"`
	Confidence    float64              `json:"confidence"`
}

// Analyze sends one news item for analysis and validates the structured
// response. Missing required fields are a hard failure for this item only.
func (a *NewsAnalyzer) Analyze(ctx context.Context, news types.RawNews) (types.NewsAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "analyzer.Analyze")
	defer span.End()

	content, err := a.client.complete(ctx, newsSystemPrompt, buildNewsPrompt(news))
	if err != nil {
		return types.NewsAnalysis{}, fmt.Errorf("analyze news %s: %w", news.ID, err)
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return types.NewsAnalysis{}, fmt.Errorf("analyze news %s: parse analysis JSON: %w (content: %s)", news.ID, err, excerpt(content))
	}

	if result.SummaryCN == "" || result.SummaryEN == "" || result.Impact == nil {
		return types.NewsAnalysis{}, fmt.Errorf("analyze news %s: missing required fields in analysis result (content: %s)", news.ID, excerpt(content))
	}

	impact := types.MarketImpact{
		Direction:         result.Impact.Direction,
		DirectionEN:       result.Impact.DirectionEN,
		AffectedMarkets:   result.Impact.AffectedMarkets,
		AffectedMarketsEN: result.Impact.AffectedMarketsEN,
		Logic:             result.Impact.Logic,
		LogicEN:           result.Impact.LogicEN,
	}
	// English variants fall back to the Chinese canonical values.
	if impact.DirectionEN == "" {
		impact.DirectionEN = impact.Direction
	}
	if len(impact.AffectedMarketsEN) == 0 {
		impact.AffectedMarketsEN = impact.AffectedMarkets
	}
	if impact.LogicEN == "" {
		impact.LogicEN = impact.Logic
	}

	stocks := result.RelatedStocks
	if stocks == nil {
		stocks = []types.RelatedStock{}
	}

	return types.NewsAnalysis{
		NewsID:        news.ID,
		TitleEN:       result.TitleEN,
		SummaryCN:     result.SummaryCN,
		SummaryEN:     result.SummaryEN,
		MarketImpact:  impact,
		RelatedStocks: stocks,
		Confidence:    result.Confidence,
		AnalyzedAt:    a.now(),
	}, nil
}

func excerpt(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

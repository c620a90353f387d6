package types

import "time"

// Known news sources. Unknown sources are still accepted and fall back to
// the default importance weight.
const (
	SourceXinhua = "xinhua"
	SourceCCTV   = "cctv"
	SourceFed    = "fed"
	SourcePeople = "people"
	SourceJin10  = "jin10"
	SourceCLS    = "cls"
	SourceSina   = "sina"
)

// Market impact directions as emitted by the analyzer (Chinese canonical,
// English variants carried alongside).
const (
	DirectionBullish = "利多"
	DirectionBearish = "利空"
	DirectionNeutral = "中性"
)

// The two tracked indices for summary generation.
const (
	IndexCSI    = "中证指数"
	IndexNasdaq = "纳斯达克指数"
)

// Summary period buckets.
const (
	PeriodMorning = "10:00"
	PeriodEvening = "22:00"
)

// RawNews is one collected news item. ID is derived from
// (source, title, time) so re-collection of the same upstream item is a
// merge no-op. Items are never mutated after creation.
type RawNews struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	URL        string    `json:"url"`
	Importance string    `json:"importance,omitempty"`
}

// RelatedStock is a listed company the analyzer tied to a news item.
type RelatedStock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"` // US, CN or HK
}

// MarketImpact describes the analyzer's directional read of one item.
type MarketImpact struct {
	Direction         string   `json:"direction"`
	DirectionEN       string   `json:"direction_en,omitempty"`
	AffectedMarkets   []string `json:"affected_markets"`
	AffectedMarketsEN []string `json:"affected_markets_en,omitempty"`
	Logic             string   `json:"logic"`
	LogicEN           string   `json:"logic_en,omitempty"`
}

// NewsAnalysis is the AI analysis of a single news item. At most one
// analysis exists per news id; re-analysis overwrites.
type NewsAnalysis struct {
	NewsID        string         `json:"newsId"`
	TitleEN       string         `json:"title_en,omitempty"`
	SummaryCN     string         `json:"summary_cn"`
	SummaryEN     string         `json:"summary_en"`
	MarketImpact  MarketImpact   `json:"market_impact"`
	RelatedStocks []RelatedStock `json:"related_stocks"`
	Confidence    float64        `json:"confidence"`
	AnalyzedAt    time.Time      `json:"analyzedAt"`
}

// Outlook is a direction plus the reasoning behind it.
type Outlook struct {
	Direction string `json:"direction"`
	Logic     string `json:"logic"`
}

// IndexSummary aggregates the day's analyses into an index-level outlook.
type IndexSummary struct {
	Index      string    `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	Period     string    `json:"period"`
	ShortTerm  Outlook   `json:"short_term"`
	MediumTerm Outlook   `json:"medium_term"`
	KeyNewsIDs []string  `json:"key_news_ids"`
	Confidence float64   `json:"confidence"`
}

// IndexData is the latest quote snapshot for one index. Overwritten
// wholesale on every refresh, never archived.
type IndexData struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Timestamp     time.Time `json:"timestamp"`
}

// Candle is one K-line data point for an index.
type Candle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

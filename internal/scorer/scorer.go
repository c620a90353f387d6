package scorer

import (
	"strings"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

// Source weight table. Official outlets rank highest; unknown sources get
// the default weight.
var sourceWeights = map[string]float64{
	types.SourceXinhua: 10,
	types.SourceCCTV:   9,
	types.SourceFed:    8,
	types.SourcePeople: 7,
	types.SourceJin10:  6,
	types.SourceCLS:    6,
	types.SourceSina:   5,
}

const defaultSourceWeight = 3

// Financial keyword tiers. High-impact terms score 3 each, medium 2,
// standard 1; the keyword component is capped at 10.
var (
	highImpactKeywords = []string{
		"降息", "加息", "降准", "加准",
		"gdp", "cpi", "ppi", "pmi",
		"通胀", "通缩", "失业率",
		"贸易战", "制裁", "关税",
		"违约", "破产", "危机",
		"央行", "美联储", "fed", "federal reserve",
		"降低利率", "提高利率", "基准利率",
		"量化宽松", "qe", "缩表",
	}
	mediumImpactKeywords = []string{
		"财政政策", "货币政策", "监管政策",
		"利率", "汇率", "利润", "营收",
		"股市", "债券", "期货", "大宗商品",
		"ipo", "上市", "并购", "重组",
		"财报", "业绩", "盈利", "亏损",
		"投资", "融资", "估值", "市值",
		"指数", "涨跌", "震荡", "波动",
		"外汇", "黄金", "原油", "能源",
	}
	standardKeywords = []string{
		"经济", "金融", "市场", "行业",
		"企业", "公司", "产业", "贸易",
		"增长", "下降", "上涨", "下跌",
		"预期", "预测", "展望", "前景",
		"改革", "开放", "创新", "转型",
		"消费", "生产", "出口", "进口",
		"房地产", "制造业", "科技", "互联网",
	}
)

// SourceWeight returns the static weight for a news source.
func SourceWeight(source string) float64 {
	if w, ok := sourceWeights[source]; ok {
		return w
	}
	return defaultSourceWeight
}

// KeywordScore scans title+content for financial keyword matches and
// returns the tiered sum clamped to 10.
func KeywordScore(item types.RawNews) float64 {
	text := strings.ToLower(item.Title + " " + item.Content)
	var score float64

	for _, kw := range highImpactKeywords {
		if strings.Contains(text, kw) {
			score += 3
		}
	}
	for _, kw := range mediumImpactKeywords {
		if strings.Contains(text, kw) {
			score += 2
		}
	}
	for _, kw := range standardKeywords {
		if strings.Contains(text, kw) {
			score += 1
		}
	}

	if score > 10 {
		score = 10
	}
	return score
}

// preFilterRecency is the coarse 3-tier recency component used before any
// analysis exists.
func preFilterRecency(hoursAgo float64) float64 {
	switch {
	case hoursAgo < 2:
		return 5
	case hoursAgo < 6:
		return 3
	case hoursAgo < 12:
		return 1
	default:
		return 0
	}
}

// recency is the smoother 5-tier component used for the final importance
// score. The extra tiers avoid the abrupt cliff that starved day-old items.
func recency(hoursAgo float64) float64 {
	switch {
	case hoursAgo < 2:
		return 8
	case hoursAgo < 6:
		return 6
	case hoursAgo < 12:
		return 4
	case hoursAgo < 24:
		return 2
	case hoursAgo < 48:
		return 1
	default:
		return 0
	}
}

// PreFilterScore ranks an item before AI analysis exists: source weight +
// keyword density + coarse recency. Used to choose which items are worth an
// analyzer call.
func PreFilterScore(item types.RawNews, now time.Time) float64 {
	score := SourceWeight(item.Source)
	score += KeywordScore(item)
	score += preFilterRecency(now.Sub(item.Time).Hours())
	return score
}

// ImportanceScore is the full ranking score. When an analysis exists it
// adds the AI confidence (scaled to 0-10) and a direction bonus: a
// directional call is worth more than a neutral one.
func ImportanceScore(item types.RawNews, analysis *types.NewsAnalysis, now time.Time) float64 {
	score := SourceWeight(item.Source)
	score += KeywordScore(item)
	score += recency(now.Sub(item.Time).Hours())

	if analysis != nil {
		score += analysis.Confidence * 10

		switch analysis.MarketImpact.Direction {
		case types.DirectionBullish, types.DirectionBearish:
			score += 5
		case types.DirectionNeutral:
			score += 2
		}
	}

	return score
}

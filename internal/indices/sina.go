package indices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

// IndexSymbol identifies one of the supported indices.
type IndexSymbol string

const (
	CSI500 IndexSymbol = "CSI500"
	SSE    IndexSymbol = "SSE"
	NASDAQ IndexSymbol = "NASDAQ"
)

// TrackedIndices are the indices the pipeline refreshes on every run.
var TrackedIndices = []IndexSymbol{CSI500, NASDAQ}

type indexMeta struct {
	symbol     string // canonical ticker persisted in snapshots
	name       string
	sinaSymbol string // Sina quote code
}

var supportedIndices = map[IndexSymbol]indexMeta{
	CSI500: {symbol: "000905.SS", name: "中证500", sinaSymbol: "s_sh000905"},
	SSE:    {symbol: "000001.SS", name: "上证指数", sinaSymbol: "s_sh000001"},
	NASDAQ: {symbol: "^IXIC", name: "纳斯达克", sinaSymbol: "int_nasdaq"},
}

// quoteExpr extracts the payload from Sina's var-assignment response:
// var hq_str_s_sh000905="中证500,6300.86,12.05,0.19";
var quoteExpr = regexp.MustCompile(`="([^"]+)"`)

// SinaClient fetches free real-time index quotes and K-line data from Sina
// Finance.
type SinaClient struct {
	quoteURL  string
	candleURL string
	client    *http.Client
	now       func() time.Time
}

// NewSinaClient builds a quote client with a bounded request timeout.
func NewSinaClient() *SinaClient {
	return &SinaClient{
		quoteURL:  "https://hq.sinajs.cn/list=",
		candleURL: "https://money.finance.sina.com.cn/quotes_service/api/json_v2.php/CN_MarketData.getKLineData",
		client:    &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
	}
}

// GetIndexData fetches the latest snapshot for one index.
func (c *SinaClient) GetIndexData(ctx context.Context, symbol IndexSymbol) (types.IndexData, error) {
	meta, ok := supportedIndices[symbol]
	if !ok {
		return types.IndexData{}, fmt.Errorf("unsupported index %s", symbol)
	}

	body, err := c.fetch(ctx, c.quoteURL+meta.sinaSymbol)
	if err != nil {
		return types.IndexData{}, fmt.Errorf("fetch %s quote: %w", symbol, err)
	}

	data, err := parseQuote(string(body))
	if err != nil {
		return types.IndexData{}, fmt.Errorf("parse %s quote: %w", symbol, err)
	}

	data.Symbol = meta.symbol
	data.Name = meta.name
	data.Timestamp = c.now()
	return data, nil
}

// GetMultipleIndices fetches snapshots for all requested indices. One
// failing quote fails the refresh; snapshots are overwritten wholesale, so
// a partial set would silently drop an index.
func (c *SinaClient) GetMultipleIndices(ctx context.Context, symbols []IndexSymbol) ([]types.IndexData, error) {
	out := make([]types.IndexData, 0, len(symbols))
	for _, symbol := range symbols {
		data, err := c.GetIndexData(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// GetCandleData fetches K-line points for an index. A failed candle fetch
// degrades to an empty slice; charts are a nicety, not pipeline input.
func (c *SinaClient) GetCandleData(ctx context.Context, symbol IndexSymbol, scale string, count int) ([]types.Candle, error) {
	meta, ok := supportedIndices[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported index %s", symbol)
	}

	url := fmt.Sprintf("%s?symbol=%s&scale=%s&ma=no&datalen=%d", c.candleURL, meta.sinaSymbol, scale, count)
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, nil
	}

	var raw []struct {
		Day    string `json:"day"`
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, item := range raw {
		candle := types.Candle{
			Time:   item.Day,
			Open:   parseFloat(item.Open),
			High:   parseFloat(item.High),
			Low:    parseFloat(item.Low),
			Close:  parseFloat(item.Close),
			Volume: parseFloat(item.Volume),
		}
		if candle.Open == 0 || candle.High == 0 || candle.Low == 0 || candle.Close == 0 {
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func (c *SinaClient) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Sina rejects requests without a finance referer.
	req.Header.Set("Referer", "https://finance.sina.com.cn")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseQuote decodes the comma-separated quote payload. Both the A-share
// and international formats start with name, price, change, changePercent.
func parseQuote(raw string) (types.IndexData, error) {
	match := quoteExpr.FindStringSubmatch(raw)
	if match == nil {
		return types.IndexData{}, fmt.Errorf("invalid quote format")
	}

	parts := strings.Split(match[1], ",")
	if len(parts) < 4 {
		return types.IndexData{}, fmt.Errorf("quote has %d fields, need at least 4", len(parts))
	}

	return types.IndexData{
		Price:         parseFloat(parts[1]),
		Change:        parseFloat(parts[2]),
		ChangePercent: parseFloat(parts[3]),
	}, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

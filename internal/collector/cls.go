package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

// CLSCollector pulls the Cailianpress telegraph roll via its public JSON
// endpoint.
type CLSCollector struct {
	apiURL string
	client *http.Client
	cfg    Config
	now    func() time.Time
}

var _ Collector = (*CLSCollector)(nil)

// NewCLSCollector builds the Cailianpress collector.
func NewCLSCollector(cfg Config) *CLSCollector {
	cfg = cfg.withDefaults()
	return &CLSCollector{
		apiURL: "https://www.cls.cn/nodeapi/telegraphList",
		client: newHTTPClient(cfg.HTTPTimeout),
		cfg:    cfg,
		now:    time.Now,
	}
}

func (c *CLSCollector) Name() string {
	return types.SourceCLS
}

type clsItem struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	CTime   int64  `json:"ctime"`
}

type clsResponse struct {
	Data struct {
		RollData []clsItem `json:"roll_data"`
	} `json:"data"`
}

// Collect posts the roll query, retrying the fetch; decoding the payload is
// not retried since a malformed body means the endpoint changed shape.
func (c *CLSCollector) Collect(ctx context.Context) ([]types.RawNews, error) {
	body, err := retryFetch(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func() ([]byte, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch cls telegraph list: %w", err)
	}

	var resp clsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse cls response: %w", err)
	}

	news := make([]types.RawNews, 0, len(resp.Data.RollData))
	for _, item := range resp.Data.RollData {
		published := time.Unix(item.CTime, 0)
		news = append(news, types.RawNews{
			ID:      GenerateID(types.SourceCLS, item.Title, published.UTC().Format(time.RFC3339)),
			Time:    published,
			Source:  types.SourceCLS,
			Title:   item.Title,
			Content: CleanContent(item.Content),
			URL:     fmt.Sprintf("https://www.cls.cn/telegraph/%d", item.ID),
		})
	}

	return FilterRecent(news, c.cfg.WindowHours, c.now()), nil
}

func (c *CLSCollector) fetch(ctx context.Context) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"app":          "CailianpressWeb",
		"os":           "web",
		"refresh_type": 1,
		"order":        1,
		"rn":           50,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cls returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

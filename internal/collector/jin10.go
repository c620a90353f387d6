package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

// Jin10Collector pulls the Jin10 flash list. The flash feed carries no
// separate headline, so the title is the leading slice of the content.
type Jin10Collector struct {
	apiURL string
	client *http.Client
	cfg    Config
	now    func() time.Time
}

var _ Collector = (*Jin10Collector)(nil)

const jin10TitleRunes = 50

// NewJin10Collector builds the Jin10 flash collector.
func NewJin10Collector(cfg Config) *Jin10Collector {
	cfg = cfg.withDefaults()
	return &Jin10Collector{
		apiURL: "https://flash-api.jin10.com/get_flash_list",
		client: newHTTPClient(cfg.HTTPTimeout),
		cfg:    cfg,
		now:    time.Now,
	}
}

func (c *Jin10Collector) Name() string {
	return types.SourceJin10
}

type jin10Item struct {
	ID      int64  `json:"id"`
	Time    int64  `json:"time"`
	Content string `json:"content"`
}

type jin10Response struct {
	Data []jin10Item `json:"data"`
}

// Collect fetches the flash list with retries and normalizes every entry.
func (c *Jin10Collector) Collect(ctx context.Context) ([]types.RawNews, error) {
	body, err := retryFetch(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func() ([]byte, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jin10 flash list: %w", err)
	}

	var resp jin10Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse jin10 response: %w", err)
	}

	news := make([]types.RawNews, 0, len(resp.Data))
	for _, item := range resp.Data {
		published := time.Unix(item.Time, 0)
		content := CleanContent(item.Content)

		title := content
		if runes := []rune(title); len(runes) > jin10TitleRunes {
			title = string(runes[:jin10TitleRunes])
		}

		news = append(news, types.RawNews{
			ID:      GenerateID(types.SourceJin10, content, published.UTC().Format(time.RFC3339)),
			Time:    published,
			Source:  types.SourceJin10,
			Title:   title,
			Content: content,
			URL:     fmt.Sprintf("https://www.jin10.com/flash/%d", item.ID),
		})
	}

	return FilterRecent(news, c.cfg.WindowHours, c.now()), nil
}

func (c *Jin10Collector) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jin10 returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/gunksd/Perps-news/internal/types"
)

// RSSCollector covers every feed-backed source; only the source name and
// feed URL differ between them.
type RSSCollector struct {
	source  string
	feedURL string
	parser  *gofeed.Parser
	cfg     Config
	now     func() time.Time
}

var _ Collector = (*RSSCollector)(nil)

// NewRSSCollector builds a collector for one RSS feed.
func NewRSSCollector(source, feedURL string, cfg Config) *RSSCollector {
	cfg = cfg.withDefaults()
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = newHTTPClient(cfg.HTTPTimeout)
	return &RSSCollector{
		source:  source,
		feedURL: feedURL,
		parser:  parser,
		cfg:     cfg,
		now:     time.Now,
	}
}

// NewXinhuaCollector reads the Xinhua finance channel feed.
func NewXinhuaCollector(cfg Config) *RSSCollector {
	return NewRSSCollector(types.SourceXinhua, "http://www.news.cn/fortune/news_fortune.xml", cfg)
}

// NewCCTVCollector reads the China News Service finance feed.
func NewCCTVCollector(cfg Config) *RSSCollector {
	return NewRSSCollector(types.SourceCCTV, "https://www.chinanews.com/rss/finance.xml", cfg)
}

// NewFedCollector reads the Federal Reserve press release feed.
func NewFedCollector(cfg Config) *RSSCollector {
	return NewRSSCollector(types.SourceFed, "https://www.federalreserve.gov/feeds/press_all.xml", cfg)
}

func (c *RSSCollector) Name() string {
	return c.source
}

// Collect fetches the feed with retries and normalizes every entry.
func (c *RSSCollector) Collect(ctx context.Context) ([]types.RawNews, error) {
	feed, err := retryFetch(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func() (*gofeed.Feed, error) {
		return c.parser.ParseURLWithContext(c.feedURL, ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", c.source, err)
	}

	news := make([]types.RawNews, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := c.now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}

		content := item.Description
		if content == "" {
			content = item.Content
		}

		news = append(news, types.RawNews{
			ID:      GenerateID(c.source, item.Title, published.UTC().Format(time.RFC3339)),
			Time:    published,
			Source:  c.source,
			Title:   item.Title,
			Content: CleanContent(content),
			URL:     item.Link,
		})
	}

	return FilterRecent(news, c.cfg.WindowHours, c.now()), nil
}

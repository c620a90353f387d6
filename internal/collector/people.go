package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/gunksd/Perps-news/internal/types"
)

// PeopleCollector scrapes the people.com.cn finance channel list page.
// There is no feed or JSON API for it, so this is the one HTML-scrape
// variant among the collectors.
type PeopleCollector struct {
	listURL string
	cfg     Config
	loc     *time.Location
	now     func() time.Time
}

var _ Collector = (*PeopleCollector)(nil)

// NewPeopleCollector builds the people.com.cn finance collector. Publish
// times on the list page carry no zone and are interpreted as Beijing time.
func NewPeopleCollector(cfg Config) *PeopleCollector {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &PeopleCollector{
		listURL: "http://finance.people.com.cn/GB/70846/index.html",
		cfg:     cfg.withDefaults(),
		loc:     loc,
		now:     time.Now,
	}
}

func (c *PeopleCollector) Name() string {
	return types.SourcePeople
}

// Collect scrapes the list page with retries. Entries whose date cell fails
// to parse are skipped rather than failing the run.
func (c *PeopleCollector) Collect(ctx context.Context) ([]types.RawNews, error) {
	news, err := retryFetch(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func() ([]types.RawNews, error) {
		return c.scrape(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("scrape people finance list: %w", err)
	}
	return FilterRecent(news, c.cfg.WindowHours, c.now()), nil
}

func (c *PeopleCollector) scrape(ctx context.Context) ([]types.RawNews, error) {
	parsed, err := url.Parse(c.listURL)
	if err != nil {
		return nil, fmt.Errorf("invalid list url %s: %w", c.listURL, err)
	}

	scraper := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.MaxDepth(1),
	)
	scraper.SetRequestTimeout(c.cfg.HTTPTimeout)

	scraper.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	var news []types.RawNews
	scraper.OnHTML("div.ej_list_box li", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText("a"))
		if title == "" {
			return
		}

		href := e.ChildAttr("a", "href")
		if href != "" && !strings.HasPrefix(href, "http") {
			href = e.Request.AbsoluteURL(href)
		}

		published, ok := c.parseListDate(e.ChildText("em"))
		if !ok {
			return
		}

		news = append(news, types.RawNews{
			ID:      GenerateID(types.SourcePeople, title, published.UTC().Format(time.RFC3339)),
			Time:    published,
			Source:  types.SourcePeople,
			Title:   title,
			Content: title,
			URL:     href,
		})
	})

	var visitErr error
	scraper.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	if err := scraper.Visit(c.listURL); err != nil {
		return nil, err
	}
	scraper.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	return news, nil
}

// parseListDate handles both timestamp formats the channel uses.
func (c *PeopleCollector) parseListDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02 15:04", "2006年01月02日 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, c.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

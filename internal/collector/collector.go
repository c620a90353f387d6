package collector

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gunksd/Perps-news/internal/types"
)

// Collector fetches and normalizes news from one external source. A failed
// collector contributes zero items to the run; the pipeline logs the error
// and continues with the other sources.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]types.RawNews, error)
}

// Config carries the knobs shared by every collector variant.
type Config struct {
	WindowHours int           // rolling recency window, default 48h
	MaxRetries  int           // fetch attempts, default 3
	RetryDelay  time.Duration // linear backoff base, default 1s
	HTTPTimeout time.Duration // per-request timeout, default 20s
}

func (c Config) withDefaults() Config {
	if c.WindowHours <= 0 {
		c.WindowHours = 48
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 20 * time.Second
	}
	return c
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// retryFetch runs fn up to attempts times with linear backoff
// (delay * attempt number), returning the last error when exhausted.
// Only the network fetch belongs inside fn: a parse failure of the fetched
// payload signals a structural upstream change and must not be retried.
func retryFetch[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay * time.Duration(i+1)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// GenerateID derives the stable item id from (source, title, time): the
// first 16 characters of the base64 encoding. Deterministic, so repeated
// collection of the same upstream item merges as a no-op. Collisions are
// accepted as negligible.
func GenerateID(source, title, timestamp string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(source + "-" + title + "-" + timestamp))
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return encoded
}

// FilterRecent keeps items within the rolling window of the given hours.
// The older same-calendar-day policy returned nothing in the early morning
// before any same-day news existed; the rolling window replaced it.
func FilterRecent(items []types.RawNews, hours int, now time.Time) []types.RawNews {
	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	out := make([]types.RawNews, 0, len(items))
	for _, item := range items {
		if item.Time.After(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

// CleanContent strips HTML tags and folds whitespace runs into single
// spaces. Feed descriptions routinely embed markup.
func CleanContent(raw string) string {
	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gunksd/Perps-news/internal/types"
)

func TestGenerateIDDeterministic(t *testing.T) {
	a := GenerateID("cls", "央行宣布降息", "2026-08-28T04:00:00Z")
	b := GenerateID("cls", "央行宣布降息", "2026-08-28T04:00:00Z")
	if a != b {
		t.Errorf("Expected identical ids for identical input, got %q and %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("Expected 16-character id, got %d", len(a))
	}
}

func TestGenerateIDDistinguishesInput(t *testing.T) {
	a := GenerateID("cls", "title one", "2026-08-28T04:00:00Z")
	b := GenerateID("cls", "title two", "2026-08-28T04:00:00Z")
	if a == b {
		t.Error("Expected different ids for different titles")
	}
}

func TestFilterRecent(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	items := []types.RawNews{
		{ID: "in", Time: now.Add(-47 * time.Hour)},
		{ID: "out", Time: now.Add(-49 * time.Hour)},
	}

	kept := FilterRecent(items, 48, now)
	if len(kept) != 1 || kept[0].ID != "in" {
		t.Errorf("Expected only the in-window item, got %+v", kept)
	}
}

func TestCleanContent(t *testing.T) {
	got := CleanContent("<p>央行宣布  <b>降息</b></p>\n\n利好市场")
	want := "央行宣布 降息 利好市场"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestCleanContentPlainText(t *testing.T) {
	got := CleanContent("  no   markup here ")
	if got != "no markup here" {
		t.Errorf("Expected folded whitespace, got %q", got)
	}
}

func TestRetryFetchSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	v, err := retryFetch(context.Background(), 3, time.Millisecond, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if v != "ok" {
		t.Errorf("Expected value ok, got %q", v)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryFetchExhausted(t *testing.T) {
	attempts := 0
	lastErr := errors.New("still down")
	_, err := retryFetch(context.Background(), 3, time.Millisecond, func() (int, error) {
		attempts++
		return 0, lastErr
	})
	if !errors.Is(err, lastErr) {
		t.Errorf("Expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryFetchRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryFetch(ctx, 3, time.Hour, func() (int, error) {
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gunksd/Perps-news/internal/analyzer"
	"github.com/gunksd/Perps-news/internal/collector"
	"github.com/gunksd/Perps-news/internal/config"
	"github.com/gunksd/Perps-news/internal/indices"
	"github.com/gunksd/Perps-news/internal/logger"
	"github.com/gunksd/Perps-news/internal/pipeline"
	"github.com/gunksd/Perps-news/internal/store"
	"github.com/gunksd/Perps-news/internal/trace"
)

const usage = `usage: pipeline [collect|analyze|summary|indices|all]

  collect   fetch news from all sources and merge into the store
  analyze   run AI analysis on recent unanalyzed news
  summary   generate index outlook summaries
  indices   refresh index quote snapshots and candles
  all       full scheduled run (default)
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			logger.Warn(ctx, "trace shutdown failed", "error", err)
		}
	}()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		return err
	}

	cmd := "all"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	st := store.NewFileStore(cfg.DataDir)
	if err := st.Init(); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	p, err := buildPipeline(st, cfg, cmd)
	if err != nil {
		return err
	}

	switch cmd {
	case "collect":
		return p.CollectNews(ctx)
	case "analyze":
		return p.AnalyzeNews(ctx)
	case "summary":
		return p.GenerateSummaries(ctx)
	case "indices":
		return p.UpdateIndices(ctx)
	case "all":
		return p.RunAll(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// buildPipeline wires dependencies per command. Credentials are only
// required for the stages that call the AI endpoint.
func buildPipeline(st *store.FileStore, cfg *config.Config, cmd string) (*pipeline.Pipeline, error) {
	var (
		news    *analyzer.NewsAnalyzer
		summary *analyzer.SummaryAnalyzer
	)
	if cmd == "analyze" || cmd == "summary" || cmd == "all" {
		if err := cfg.RequireAI(); err != nil {
			return nil, err
		}
		news = analyzer.NewNewsAnalyzer(cfg.AI)
		summary = analyzer.NewSummaryAnalyzer(cfg.AI)
	}

	collectorCfg := collector.Config{
		WindowHours: cfg.Collect.WindowHours,
		MaxRetries:  cfg.Collect.MaxRetries,
		RetryDelay:  time.Duration(cfg.Collect.RetryDelayMS) * time.Millisecond,
	}
	collectors := []collector.Collector{
		collector.NewXinhuaCollector(collectorCfg),
		collector.NewCCTVCollector(collectorCfg),
		collector.NewFedCollector(collectorCfg),
		collector.NewPeopleCollector(collectorCfg),
		collector.NewCLSCollector(collectorCfg),
		collector.NewJin10Collector(collectorCfg),
	}

	return pipeline.New(st, collectors, news, summary, indices.NewSinaClient(), cfg), nil
}

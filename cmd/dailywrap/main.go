package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dailywrap/pipeline/internal/config"
	"github.com/dailywrap/pipeline/internal/dedup"
	"github.com/dailywrap/pipeline/internal/enrich"
	"github.com/dailywrap/pipeline/internal/feed"
	"github.com/dailywrap/pipeline/internal/llm"
	"github.com/dailywrap/pipeline/internal/revalidate"
	"github.com/dailywrap/pipeline/internal/runner"
	"github.com/dailywrap/pipeline/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	date := flag.String("date", "", "briefing date override (YYYY-MM-DD), implies -once")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *date != "" {
		if _, err := time.Parse("2006-01-02", *date); err != nil {
			log.Fatalf("Invalid -date %q: expected YYYY-MM-DD", *date)
		}
	}

	// Generation strategy is chosen exactly once here; everything
	// downstream just talks to the client.
	var client llm.Client
	if cfg.Offline() {
		log.Println("No generator credential configured, running in offline mode")
		client = llm.NewOffline()
	} else {
		client = llm.NewAnthropic(cfg.Generator.APIKey, cfg.Generator.Model)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	r := runner.New(runner.Deps{
		Collector:   feed.NewCollector(cfg.Feeds, time.Duration(cfg.FetchTimeout)*time.Second),
		Summarizer:  enrich.NewSummarizer(client, cfg.Generator.BatchSize),
		Ranker:      enrich.NewRanker(client, cfg.TopPerCategory),
		Persister:   db,
		Invalidator: revalidate.New(cfg.Revalidate.URL, cfg.Revalidate.Secret),
		DedupOptions: dedup.Options{
			URLThreshold:   cfg.Dedup.URLThreshold,
			TitleThreshold: cfg.Dedup.TitleThreshold,
			NgramSize:      cfg.Dedup.NgramSize,
			CrossCategory:  cfg.Dedup.CrossCategory,
		},
		RecentHours:     cfg.RecentHours,
		RevalidatePaths: cfg.Revalidate.Paths,
	}, todayFn(cfg.TimezoneOffset))

	// Single-run mode: run the pipeline once and exit with a status code
	// scheduling systems can act on.
	if *once || *date != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		result := r.Run(ctx, *date)
		if !result.Success {
			fmt.Fprintln(os.Stderr, "Pipeline failed:")
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "  - %s\n", e)
			}
			os.Exit(1)
		}
		log.Printf("Done: briefing %s (%d items saved)", result.BriefingID, result.Stats.Saved)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunOnStart {
		log.Println("Running initial briefing...")
		if result := r.Run(ctx, ""); !result.Success {
			log.Printf("Initial run failed: %v", result.Errors)
		}
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		log.Println("Cron triggered, running briefing...")
		if result := r.Run(ctx, ""); !result.Success {
			log.Printf("Scheduled run failed: %v", result.Errors)
		}
	})
	if err != nil {
		log.Fatalf("Failed to set up cron schedule %q: %v", cfg.Schedule, err)
	}
	c.Start()
	log.Printf("Scheduled briefing with cron expression: %s", cfg.Schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	cancel()
	c.Stop()
	log.Println("Shutdown complete")
}

// todayFn returns a function producing today's date string in the fixed
// publication timezone offset (hours east of UTC).
func todayFn(offsetHours int) func() string {
	return func() string {
		return time.Now().UTC().Add(time.Duration(offsetHours) * time.Hour).Format("2006-01-02")
	}
}

// Package main provides the social scraping command: fetch each tracked
// account's latest posts, normalize and merge them against the stored set,
// and rewrite the tweet tab in full so engagement counters stay current.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"prensa/internal/actor"
	"prensa/internal/config"
	"prensa/internal/formatter"
	"prensa/internal/logger"
	"prensa/internal/models"
	"prensa/internal/normalizer"
	"prensa/internal/pipeline"
	"prensa/internal/relevance"
	"prensa/internal/sheets"
)

func main() {
	// 1. Configuration
	// ----------------
	_ = godotenv.Load()

	runFile := flag.String("run-file", os.Getenv("RUN_FILE"), "Optional YAML run file (accounts, schedule)")
	withinTime := flag.String("within-time", "1d", "Provider time window token per account fetch")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.NewLogger(cfg.LogLevel)

	rf, err := config.LoadRunFile(*runFile)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Run file invalid: %v", err))
		os.Exit(1)
	}
	rf.Apply(&cfg.Run)

	if err := cfg.ValidateTweets(); err != nil {
		log.Error(fmt.Sprintf("❌ Configuration invalid: %v", err))
		os.Exit(1)
	}

	loc, err := cfg.Run.Location()
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	log.Info("🚀 Starting social scrape", "accounts", len(cfg.Run.Accounts))

	policy := cfg.Retry.Policy()
	runner := actor.NewClient(cfg.Actor.BaseURL, cfg.Actor.Token, policy, log.WithComponent("actor"),
		actor.WithPageLimit(cfg.Actor.PageLimit))
	norm := normalizer.NewNormalizer(loc)
	store := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.Token, cfg.Sheets.SpreadsheetID,
		cfg.Sheets.ChunkRows, policy, log.WithComponent("sheets"))

	ctx := context.Background()
	startTime := time.Now()

	// 2. Fetch per account
	// --------------------
	var tweets []models.Tweet

	fetched := 0
	skippedFiller := 0

	for _, account := range cfg.Run.Accounts {
		input := actor.TweetInput(account, cfg.Run.MaxItems, *withinTime)

		items, err := runner.Collect(ctx, cfg.Actor.TweetActorID, input)
		if err != nil {
			log.Error("fetch failed, skipping account", "account", account, "error", err)
			continue
		}

		fetched += len(items)

		for _, item := range items {
			tweet, ok := norm.Tweet(item)
			if !ok {
				skippedFiller++
				continue
			}

			tweets = append(tweets, tweet)
		}

		log.Info("✅ fetched", "account", account, "items", len(items))
	}

	if len(tweets) == 0 {
		log.Info("⚠️ no tweets fetched, nothing to do")
		return
	}

	// 3. Filter and merge
	// -------------------
	if cfg.Run.ReplyFilter {
		tweets = relevance.DropReplies(tweets)
	}

	deduped := pipeline.Dedupe(tweets)

	tab := cfg.Sheets.TweetTab + "!A:M"

	existingRows, err := store.EnsureHeader(ctx, tab, models.TweetHeader())
	if err != nil {
		log.Error(fmt.Sprintf("❌ Store bootstrap failed: %v", err))
		os.Exit(1)
	}

	existing := make([]models.Tweet, len(existingRows))
	for i, row := range existingRows {
		existing[i] = models.TweetFromRow(row)
	}

	merged := pipeline.Merge(existing, deduped)

	// 4. Full rewrite
	// ---------------
	// Engagement counters change on rows the store already has, so the tab
	// is cleared and rewritten rather than appended to.
	validator := normalizer.NewValidator(log.WithComponent("normalizer"))

	rows := make([][]string, 0, len(merged)+1)
	rows = append(rows, models.TweetHeader())
	for _, t := range merged {
		rows = append(rows, t.Row())
	}
	rows = validator.Preflight(rows)

	if err := store.Clear(ctx, tab); err != nil {
		log.Error(fmt.Sprintf("❌ Clear failed: %v", err))
		os.Exit(1)
	}

	if err := store.Update(ctx, tab, rows); err != nil {
		log.Error(fmt.Sprintf("❌ Rewrite failed: %v", err))
		os.Exit(1)
	}

	// 5. Final report
	// ---------------
	log.Info("✨ Social scrape complete", "duration", time.Since(startTime))

	fmt.Println()
	fmt.Print(formatter.RunReport("📊 Social scrape summary", []formatter.Stage{
		{Name: "fetched", Detail: "raw actor items", Count: fetched},
		{Name: "filler", Detail: "provider filler rows dropped", Count: skippedFiller},
		{Name: "kept", Detail: "after reply filter", Count: len(tweets)},
		{Name: "deduped", Detail: "unique by link", Count: len(deduped)},
		{Name: "merged", Detail: "rows written", Count: len(merged)},
	}))
}

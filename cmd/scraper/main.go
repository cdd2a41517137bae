// Package main provides the news scraping command: fetch articles per
// query and country through the actor service, normalize and filter them,
// and append the rows the store has not seen yet.
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

	runFile := flag.String("run-file", os.Getenv("RUN_FILE"), "Optional YAML run file (schedule, keywords, sources)")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.NewLogger(cfg.LogLevel)

	rf, err := config.LoadRunFile(*runFile)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Run file invalid: %v", err))
		os.Exit(1)
	}
	rf.Apply(&cfg.Run)

	if err := cfg.ValidateScrape(); err != nil {
		log.Error(fmt.Sprintf("❌ Configuration invalid: %v", err))
		os.Exit(1)
	}

	loc, err := cfg.Run.Location()
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	log.Info("🚀 Starting news scrape",
		"queries", len(cfg.Run.Queries), "countries", len(cfg.Run.Countries))

	policy := cfg.Retry.Policy()
	runner := actor.NewClient(cfg.Actor.BaseURL, cfg.Actor.Token, policy, log.WithComponent("actor"),
		actor.WithPageLimit(cfg.Actor.PageLimit))
	norm := normalizer.NewNormalizer(loc, normalizer.WithCountryNames(rf.CountryNames))
	matcher := relevance.NewMatcher(cfg.Run.Keywords)
	store := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.Token, cfg.Sheets.SpreadsheetID,
		cfg.Sheets.ChunkRows, policy, log.WithComponent("sheets"))

	ctx := context.Background()
	startTime := time.Now()

	// 2. Fetch
	// --------
	// One failed query/country combination never aborts the run; it is
	// logged and skipped.
	var articles []models.Article

	fetched := 0

	for _, query := range cfg.Run.Queries {
		for _, country := range cfg.Run.Countries {
			input := actor.NewsInput(query, country, cfg.Run.MaxItems, cfg.Run.TimePeriod)

			items, err := runner.Collect(ctx, cfg.Actor.NewsActorID, input)
			if err != nil {
				log.Error("fetch failed, skipping combination",
					"query", query, "country", country, "error", err)
				continue
			}

			if len(items) == 0 {
				log.Info("no results", "query", query, "country", country)
				continue
			}

			fetched += len(items)

			for _, item := range items {
				articles = append(articles, norm.Article(item, country))
			}

			log.Info("✅ fetched", "query", query, "country", country, "items", len(items))
		}
	}

	if len(articles) == 0 {
		log.Info("⚠️ no articles fetched, nothing to do")
		return
	}

	// 3. Filter and dedupe
	// --------------------
	kept := matcher.Prefilter(articles)
	deduped := pipeline.Dedupe(kept)

	validator := normalizer.NewValidator(log.WithComponent("normalizer"))

	keys := make([]string, len(deduped))
	for i, a := range deduped {
		keys[i] = a.Key()
	}
	validator.KeyCoverage(keys)

	// 4. Diff against the store and append
	// ------------------------------------
	tab := cfg.Sheets.ArticleTab + "!A:J"

	existingRows, err := store.EnsureHeader(ctx, tab, models.ArticleHeader())
	if err != nil {
		log.Error(fmt.Sprintf("❌ Store bootstrap failed: %v", err))
		os.Exit(1)
	}

	existing := make([]models.Article, len(existingRows))
	for i, row := range existingRows {
		existing[i] = models.ArticleFromRow(row)
	}

	fresh := pipeline.Diff(existing, deduped)

	if len(fresh) == 0 {
		log.Info("⚠️ no new articles after diff")
		return
	}

	rows := make([][]string, len(fresh))
	for i, a := range fresh {
		rows[i] = a.Row()
	}
	rows = validator.Preflight(rows)

	if err := store.Append(ctx, tab, rows); err != nil {
		log.Error(fmt.Sprintf("❌ Append failed: %v", err))
		os.Exit(1)
	}

	// 5. Final report
	// ---------------
	log.Info("✨ Scrape complete", "duration", time.Since(startTime))

	fmt.Println()
	fmt.Print(formatter.RunReport("📊 News scrape summary", []formatter.Stage{
		{Name: "fetched", Detail: "raw actor items", Count: fetched},
		{Name: "matched", Detail: "after keyword filter", Count: len(kept)},
		{Name: "deduped", Detail: "unique by link", Count: len(deduped)},
		{Name: "existing", Detail: "rows already stored", Count: len(existing)},
		{Name: "appended", Detail: "new rows written", Count: len(fresh)},
	}))
}

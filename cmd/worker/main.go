// Package main provides the unified pipeline command: scrape news, verify
// that each linked page really mentions a tracked keyword, classify the
// survivors, and append the new rows to the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"prensa/internal/actor"
	"prensa/internal/classify"
	"prensa/internal/config"
	"prensa/internal/formatter"
	"prensa/internal/logger"
	"prensa/internal/models"
	"prensa/internal/normalizer"
	"prensa/internal/pipeline"
	"prensa/internal/relevance"
	"prensa/internal/sheets"
)

const classifyTextChars = 8000

func main() {
	// 1. Configuration
	// ----------------
	_ = godotenv.Load()

	runFile := flag.String("run-file", os.Getenv("RUN_FILE"), "Optional YAML run file (keywords, sources)")
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

	log.Info("🚀 Starting unified pipeline",
		"queries", len(cfg.Run.Queries), "countries", len(cfg.Run.Countries),
		"classify", cfg.Classify.APIKey != "")

	policy := cfg.Retry.Policy()
	runner := actor.NewClient(cfg.Actor.BaseURL, cfg.Actor.Token, policy, log.WithComponent("actor"),
		actor.WithPageLimit(cfg.Actor.PageLimit))
	norm := normalizer.NewNormalizer(loc, normalizer.WithCountryNames(rf.CountryNames))
	matcher := relevance.NewMatcher(cfg.Run.Keywords)
	verifier := relevance.NewVerifier(matcher, policy, cfg.Run.HTTPTimeout, cfg.Run.MaxWorkers, log.WithComponent("relevance"))
	store := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.Token, cfg.Sheets.SpreadsheetID,
		cfg.Sheets.ChunkRows, policy, log.WithComponent("sheets"))

	var classifier *classify.Client
	if cfg.Classify.APIKey != "" {
		classifier = classify.NewClient(cfg.Classify.BaseURL, cfg.Classify.APIKey,
			cfg.Classify.Model, policy, log.WithComponent("classify"))
	}

	ctx := context.Background()
	startTime := time.Now()

	// 2. Fetch and normalize
	// ----------------------
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

	// 3. Dedupe and diff before the expensive per-page work
	// -----------------------------------------------------
	kept := matcher.Prefilter(articles)
	deduped := pipeline.Dedupe(kept)

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

	// 4. Page verification
	// --------------------
	verified := fresh

	if !matcher.Empty() {
		log.Info("🔎 verifying page content", "links", len(fresh))

		links := make([]string, len(fresh))
		for i, a := range fresh {
			links[i] = a.Link
		}

		matches := verifier.VerifyLinks(ctx, links)

		verified = verified[:0]
		for _, a := range fresh {
			if matches[a.Link] {
				verified = append(verified, a)
			}
		}

		if len(verified) == 0 {
			log.Info("⚠️ no page passed content verification")
			return
		}
	}

	// 5. Classification
	// -----------------
	classified := 0

	if classifier != nil {
		for i := range verified {
			text, err := verifier.FetchVisibleText(ctx, verified[i].Link, classifyTextChars)
			if err != nil {
				log.Warn("page text unavailable, using defaults",
					"link", verified[i].Link, "error", err)
			}

			verified[i].Sentiment = classifier.Sentiment(ctx, text)
			verified[i].Tag = classifier.Tag(ctx, text)
			classified++
		}
	} else {
		for i := range verified {
			if verified[i].Sentiment == "" {
				verified[i].Sentiment = models.SentimentNeutral
			}

			if verified[i].Tag == "" {
				verified[i].Tag = classify.DefaultTag
			}
		}
	}

	// 6. Append
	// ---------
	validator := normalizer.NewValidator(log.WithComponent("normalizer"))

	rows := make([][]string, len(verified))
	for i, a := range verified {
		rows[i] = a.Row()
	}
	rows = validator.Preflight(rows)

	if err := store.Append(ctx, tab, rows); err != nil {
		log.Error(fmt.Sprintf("❌ Append failed: %v", err))
		os.Exit(1)
	}

	// 7. Final report
	// ---------------
	log.Info("✨ Pipeline complete", "duration", time.Since(startTime))

	fmt.Println()
	fmt.Print(formatter.RunReport("📊 Pipeline summary", []formatter.Stage{
		{Name: "fetched", Detail: "raw actor items", Count: fetched},
		{Name: "matched", Detail: "after keyword filter", Count: len(kept)},
		{Name: "deduped", Detail: "unique by link", Count: len(deduped)},
		{Name: "new", Detail: "unseen by the store", Count: len(fresh)},
		{Name: "verified", Detail: "page content confirmed", Count: len(verified)},
		{Name: "classified", Detail: "sentiment and tag set", Count: classified},
		{Name: "appended", Detail: "rows written", Count: len(verified)},
	}))
}

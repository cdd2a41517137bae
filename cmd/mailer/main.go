// Package main provides the digest command: read the stored articles,
// compute the active send window, compose the HTML digest and deliver it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"prensa/internal/classify"
	"prensa/internal/config"
	"prensa/internal/digest"
	"prensa/internal/formatter"
	"prensa/internal/logger"
	"prensa/internal/mailer"
	"prensa/internal/models"
	"prensa/internal/sheets"
)

func main() {
	// 1. Configuration
	// ----------------
	_ = godotenv.Load()

	runFile := flag.String("run-file", os.Getenv("RUN_FILE"), "Optional YAML run file (schedule, tag priority)")
	dryRun := flag.Bool("dry-run", false, "Compose and print the digest without sending")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.NewLogger(cfg.LogLevel)

	rf, err := config.LoadRunFile(*runFile)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Run file invalid: %v", err))
		os.Exit(1)
	}
	rf.Apply(&cfg.Run)

	if err := cfg.ValidateMail(); err != nil {
		log.Error(fmt.Sprintf("❌ Configuration invalid: %v", err))
		os.Exit(1)
	}

	loc, err := cfg.Run.Location()
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	// 2. Window
	// ---------
	schedule, err := digest.NewSchedule(rf.Schedule, loc)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Schedule invalid: %v", err))
		os.Exit(1)
	}

	window := schedule.Window(time.Now())
	if window.IsZero() {
		log.Info("⏰ outside every send window, nothing to do", "label", window.Label)
		return
	}

	log.Info("🚀 Composing digest", "window", window.Label)

	// 3. Read the store
	// -----------------
	policy := cfg.Retry.Policy()
	store := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.Token, cfg.Sheets.SpreadsheetID,
		cfg.Sheets.ChunkRows, policy, log.WithComponent("sheets"))

	ctx := context.Background()

	rows, err := store.Get(ctx, cfg.Sheets.ArticleTab+"!A:J")
	if err != nil {
		log.Error(fmt.Sprintf("❌ Store read failed: %v", err))
		os.Exit(1)
	}

	if len(rows) < 2 {
		log.Info("⚠️ store is empty, nothing to send")
		return
	}

	articles := make([]models.Article, len(rows)-1)
	for i, row := range rows[1:] {
		articles[i] = models.ArticleFromRow(row)
	}

	// 4. Compose and send
	// -------------------
	tagPriority := rf.TagPriority
	if len(tagPriority) == 0 {
		tagPriority = classify.Tags
	}

	var composerOpts []digest.ComposerOption
	if cfg.Mail.BannerURL != "" {
		composerOpts = append(composerOpts, digest.WithBanner(cfg.Mail.BannerURL))
	}

	composer := digest.NewComposer(tagPriority, loc, composerOpts...)

	groups := composer.Select(articles, window)

	total := 0
	for _, g := range groups {
		total += g.Count()
	}

	if total == 0 {
		log.Info("⚠️ no articles in this window, nothing to send")
		return
	}

	body, err := composer.RenderHTML(groups, window)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Compose failed: %v", err))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Print(formatter.DigestText(groups, window.Label))

	if *dryRun {
		log.Info("💨 dry run, skipping send", "articles", total)
		return
	}

	sender := mailer.NewMailer(cfg.Mail, log.WithComponent("mailer"))

	if err := sender.Send(digest.Subject(window), body); err != nil {
		log.Error(fmt.Sprintf("❌ Send failed: %v", err))
		os.Exit(1)
	}

	log.Info("✨ Digest sent", "articles", total, "recipients", len(cfg.Mail.Recipients))
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Sheets.ChunkRows != 500 {
		t.Errorf("ChunkRows = %d, want 500", cfg.Sheets.ChunkRows)
	}

	if cfg.Run.MaxItems != 500 {
		t.Errorf("MaxItems = %d, want 500", cfg.Run.MaxItems)
	}

	if cfg.Run.Timezone != "America/Argentina/Buenos_Aires" {
		t.Errorf("Timezone = %s", cfg.Run.Timezone)
	}

	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("Retry.MaxAttempts = %d, want 4", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("Retry.BaseDelay = %v, want 2s", cfg.Retry.BaseDelay)
	}

	if cfg.Mail.Port != 465 {
		t.Errorf("Mail.Port = %d, want 465", cfg.Mail.Port)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MAX_ITEMS", "25")
	t.Setenv("COUNTRIES", "ar, cl")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com,")
	t.Setenv("REPLY_FILTER", "false")

	cfg := FromEnv()

	if cfg.Run.MaxItems != 25 {
		t.Errorf("MaxItems = %d, want 25", cfg.Run.MaxItems)
	}

	if len(cfg.Run.Countries) != 2 || cfg.Run.Countries[1] != "cl" {
		t.Errorf("Countries = %v", cfg.Run.Countries)
	}

	if len(cfg.Mail.Recipients) != 2 {
		t.Errorf("Recipients = %v, want 2 entries", cfg.Mail.Recipients)
	}

	if cfg.Run.ReplyFilter {
		t.Error("ReplyFilter should be disabled")
	}
}

func TestValidateScrape_MissingCredentials(t *testing.T) {
	cfg := FromEnv()
	cfg.Sheets.Token = ""

	if err := cfg.ValidateScrape(); !errors.Is(err, ErrMissingSheetsToken) {
		t.Errorf("error = %v, want ErrMissingSheetsToken", err)
	}

	cfg.Sheets.Token = "tok"
	cfg.Sheets.SpreadsheetID = "sid"
	cfg.Actor.Token = ""

	if err := cfg.ValidateScrape(); !errors.Is(err, ErrMissingActorToken) {
		t.Errorf("error = %v, want ErrMissingActorToken", err)
	}
}

func TestValidateMail(t *testing.T) {
	cfg := FromEnv()
	cfg.Sheets.Token = "tok"
	cfg.Sheets.SpreadsheetID = "sid"
	cfg.Mail.User = "u@example.com"
	cfg.Mail.Password = "pw"
	cfg.Mail.Recipients = nil

	if err := cfg.ValidateMail(); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("error = %v, want ErrNoRecipients", err)
	}

	cfg.Mail.Recipients = []string{"x@example.com"}

	if err := cfg.ValidateMail(); err != nil {
		t.Errorf("ValidateMail returned unexpected error: %v", err)
	}
}

func TestLoadRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")

	content := `
schedule:
  cuts: [9, 14]
  tolerance_before: 1
  tolerance_after: 2
  weekday_lookback:
    Monday: 3
  skip_weekends: true
tag_priority:
  - Corporate Reputation
  - Product
keywords:
  - mercado libre
countries:
  - ar
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rf, err := LoadRunFile(path)
	if err != nil {
		t.Fatalf("LoadRunFile returned unexpected error: %v", err)
	}

	if len(rf.Schedule.Cuts) != 2 || rf.Schedule.Cuts[1] != 14 {
		t.Errorf("Cuts = %v", rf.Schedule.Cuts)
	}

	if rf.Schedule.WeekdayLookback["Monday"] != 3 {
		t.Errorf("Monday lookback = %d, want 3", rf.Schedule.WeekdayLookback["Monday"])
	}

	run := RunConfig{Countries: []string{"ar", "cl", "pe"}, Queries: []string{"tiktok"}}
	rf.Apply(&run)

	if len(run.Countries) != 1 {
		t.Errorf("Countries after Apply = %v, want [ar]", run.Countries)
	}

	if len(run.Queries) != 1 || run.Queries[0] != "tiktok" {
		t.Errorf("Queries should keep env value, got %v", run.Queries)
	}

	if len(run.Keywords) != 1 || run.Keywords[0] != "mercado libre" {
		t.Errorf("Keywords = %v", run.Keywords)
	}
}

func TestLoadRunFile_EmptyPathDefaults(t *testing.T) {
	rf, err := LoadRunFile("")
	if err != nil {
		t.Fatalf("LoadRunFile(\"\") returned error: %v", err)
	}

	if len(rf.Schedule.Cuts) != 3 {
		t.Errorf("default cuts = %v, want three", rf.Schedule.Cuts)
	}

	if !rf.Schedule.SkipWeekends {
		t.Error("default schedule should skip weekends")
	}
}

func TestScheduleConfig_Validate(t *testing.T) {
	sc := ScheduleConfig{}
	if err := sc.Validate(); !errors.Is(err, ErrNoScheduleCuts) {
		t.Errorf("error = %v, want ErrNoScheduleCuts", err)
	}

	sc = ScheduleConfig{Cuts: []int{25}}
	if err := sc.Validate(); !errors.Is(err, ErrInvalidCutHour) {
		t.Errorf("error = %v, want ErrInvalidCutHour", err)
	}

	// A zero after-tolerance excludes the cut hour itself, so the schedule
	// could never fire.
	sc = ScheduleConfig{Cuts: []int{8, 13, 18}}
	if err := sc.Validate(); !errors.Is(err, ErrInvalidTolerance) {
		t.Errorf("error = %v, want ErrInvalidTolerance", err)
	}
}

func TestLoadRunFile_OmittedToleranceDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")

	content := `
schedule:
  cuts: [8, 13, 18]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rf, err := LoadRunFile(path)
	if err != nil {
		t.Fatalf("LoadRunFile returned unexpected error: %v", err)
	}

	if rf.Schedule.ToleranceAfter != 1 {
		t.Errorf("ToleranceAfter = %d, want defaulted 1", rf.Schedule.ToleranceAfter)
	}
}

// Package config provides configuration for the pipeline commands. Required
// credentials and tunables come from environment variables; sources,
// keywords, tag priorities and the mail schedule come from an optional YAML
// run file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"prensa/internal/retry"
)

// Configuration validation errors.
var (
	ErrMissingSheetsToken   = errors.New("SHEETS_TOKEN is required")
	ErrMissingSpreadsheetID = errors.New("SPREADSHEET_ID is required")
	ErrMissingActorToken    = errors.New("ACTOR_TOKEN is required")
	ErrMissingMailUser      = errors.New("EMAIL_USER is required")
	ErrMissingMailPassword  = errors.New("EMAIL_PASS is required")
	ErrNoRecipients         = errors.New("EMAIL_TO must list at least one recipient")
	ErrNoQueries            = errors.New("at least one query is required")
	ErrNoAccounts           = errors.New("at least one account is required")
	ErrInvalidMaxItems      = errors.New("max items must be at least 1")
	ErrInvalidChunkRows     = errors.New("chunk rows must be at least 1")
	ErrInvalidMaxWorkers    = errors.New("max workers must be at least 1")
	ErrInvalidTimezone      = errors.New("timezone is not a valid IANA zone")
	ErrNoScheduleCuts       = errors.New("schedule needs at least one cut hour")
	ErrInvalidCutHour       = errors.New("schedule cut hours must be within 0-23")
	ErrInvalidTolerance     = errors.New("schedule tolerance_after must be at least 1 hour")
)

// Config is the full configuration for one run invocation.
type Config struct {
	LogLevel string
	Sheets   SheetsConfig
	Actor    ActorConfig
	Classify ClassifyConfig
	Mail     MailConfig
	Run      RunConfig
	Retry    RetryConfig
}

// SheetsConfig addresses the external tabular store.
type SheetsConfig struct {
	BaseURL       string
	Token         string
	SpreadsheetID string
	ArticleTab    string
	TweetTab      string
	ChunkRows     int
}

// ActorConfig addresses the remote scraping actor service.
type ActorConfig struct {
	BaseURL      string
	Token        string
	NewsActorID  string
	TweetActorID string
	PageLimit    int
}

// ClassifyConfig addresses the hosted text-generation endpoint. An empty
// APIKey disables classification.
type ClassifyConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// MailConfig addresses the SMTP relay.
type MailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	FromName   string
	Recipients []string
	BannerURL  string
}

// RunConfig holds the per-run fetch and filter parameters.
type RunConfig struct {
	Queries     []string
	Countries   []string
	Accounts    []string
	MaxItems    int
	TimePeriod  string
	Timezone    string
	Keywords    []string
	ReplyFilter bool
	MaxWorkers  int
	HTTPTimeout time.Duration
}

// RetryConfig parameterizes the shared backoff policy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterFrac  float64
}

// Policy converts the retry settings into a retry.Policy.
func (rc RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  rc.MaxAttempts,
		InitialDelay: rc.BaseDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   2.0,
		JitterFrac:   rc.JitterFrac,
	}
}

// Location resolves the configured timezone.
func (rc RunConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(rc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, rc.Timezone)
	}

	return loc, nil
}

// FromEnv builds a Config from environment variables with documented
// defaults. Nothing is validated here; each command validates the subset
// it needs at startup.
func FromEnv() *Config {
	return &Config{
		LogLevel: envOr("LOG_LEVEL", "info"),
		Sheets: SheetsConfig{
			BaseURL:       envOr("SHEETS_BASE_URL", "https://sheets.googleapis.com"),
			Token:         os.Getenv("SHEETS_TOKEN"),
			SpreadsheetID: os.Getenv("SPREADSHEET_ID"),
			ArticleTab:    envOr("SHEET_TAB", "Data"),
			TweetTab:      envOr("TWEET_TAB", "Tweets"),
			ChunkRows:     envInt("CHUNK_ROWS", 500),
		},
		Actor: ActorConfig{
			BaseURL:      envOr("ACTOR_BASE_URL", "https://api.apify.com"),
			Token:        os.Getenv("ACTOR_TOKEN"),
			NewsActorID:  envOr("NEWS_ACTOR_ID", "easyapi/google-news-scraper"),
			TweetActorID: envOr("TWEET_ACTOR_ID", "kaitoeasyapi/twitter-x-data-tweet-scraper-pay-per-result-cheapest"),
			PageLimit:    envInt("ACTOR_PAGE_LIMIT", 1000),
		},
		Classify: ClassifyConfig{
			BaseURL: envOr("CLASSIFY_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIKey:  os.Getenv("CLASSIFY_API_KEY"),
			Model:   envOr("CLASSIFY_MODEL", "gemini-2.0-flash"),
		},
		Mail: MailConfig{
			Host:       envOr("SMTP_HOST", "smtp.gmail.com"),
			Port:       envInt("SMTP_PORT", 465),
			User:       os.Getenv("EMAIL_USER"),
			Password:   os.Getenv("EMAIL_PASS"),
			FromName:   envOr("EMAIL_FROM_NAME", "Noticias"),
			Recipients: splitList(os.Getenv("EMAIL_TO")),
			BannerURL:  os.Getenv("DIGEST_BANNER_URL"),
		},
		Run: RunConfig{
			Queries:     splitList(envOr("QUERIES", "tiktok")),
			Countries:   splitList(envOr("COUNTRIES", "ar,cl,pe")),
			Accounts:    splitList(os.Getenv("ACCOUNTS")),
			MaxItems:    envInt("MAX_ITEMS", 500),
			TimePeriod:  envOr("TIME_PERIOD", "last_day"),
			Timezone:    envOr("TIMEZONE", "America/Argentina/Buenos_Aires"),
			Keywords:    splitList(os.Getenv("KEYWORDS")),
			ReplyFilter: envBool("REPLY_FILTER", true),
			MaxWorkers:  envInt("MAX_WORKERS", 16),
			HTTPTimeout: time.Duration(envInt("HTTP_TIMEOUT_SEC", 12)) * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 4),
			BaseDelay:   time.Duration(envInt("RETRY_BASE_MS", 2000)) * time.Millisecond,
			MaxDelay:    time.Duration(envInt("RETRY_MAX_MS", 60000)) * time.Millisecond,
			JitterFrac:  envFloat("RETRY_JITTER", 0.5),
		},
	}
}

// ValidateStore checks the credentials every store-touching command needs.
func (c *Config) ValidateStore() error {
	if c.Sheets.Token == "" {
		return ErrMissingSheetsToken
	}

	if c.Sheets.SpreadsheetID == "" {
		return ErrMissingSpreadsheetID
	}

	if c.Sheets.ChunkRows < 1 {
		return ErrInvalidChunkRows
	}

	return nil
}

// ValidateScrape checks the news-scrape path on top of the store checks.
func (c *Config) ValidateScrape() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Actor.Token == "" {
		return ErrMissingActorToken
	}

	if len(c.Run.Queries) == 0 {
		return ErrNoQueries
	}

	if c.Run.MaxItems < 1 {
		return ErrInvalidMaxItems
	}

	if c.Run.MaxWorkers < 1 {
		return ErrInvalidMaxWorkers
	}

	if _, err := c.Run.Location(); err != nil {
		return err
	}

	return nil
}

// ValidateTweets checks the social-scrape path.
func (c *Config) ValidateTweets() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Actor.Token == "" {
		return ErrMissingActorToken
	}

	if len(c.Run.Accounts) == 0 {
		return ErrNoAccounts
	}

	if _, err := c.Run.Location(); err != nil {
		return err
	}

	return nil
}

// ValidateMail checks the digest-mailer path.
func (c *Config) ValidateMail() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Mail.User == "" {
		return ErrMissingMailUser
	}

	if c.Mail.Password == "" {
		return ErrMissingMailPassword
	}

	if len(c.Mail.Recipients) == 0 {
		return ErrNoRecipients
	}

	if _, err := c.Run.Location(); err != nil {
		return err
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}

	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

// RunFile is the optional YAML run file carrying the pieces that do not fit
// in flat environment variables: the mail schedule, tag priority order and
// country display names.
type RunFile struct {
	Schedule     ScheduleConfig    `yaml:"schedule"`
	TagPriority  []string          `yaml:"tag_priority"`
	CountryNames map[string]string `yaml:"country_names"`
	Keywords     []string          `yaml:"keywords"`
	Accounts     []string          `yaml:"accounts"`
	Queries      []string          `yaml:"queries"`
	Countries    []string          `yaml:"countries"`
}

// ScheduleConfig describes the digest send schedule. Cut hours partition
// the day into windows; the lookback overrides widen the first window of
// the listed weekdays.
type ScheduleConfig struct {
	Cuts            []int          `yaml:"cuts"`
	ToleranceBefore int            `yaml:"tolerance_before"`
	ToleranceAfter  int            `yaml:"tolerance_after"`
	WeekdayLookback map[string]int `yaml:"weekday_lookback"`
	SkipWeekends    bool           `yaml:"skip_weekends"`
}

// DefaultScheduleConfig is the production schedule: sends around 08, 13 and
// 18 local time, weekends skipped, Monday morning looking back across the
// weekend.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Cuts:            []int{8, 13, 18},
		ToleranceBefore: 1,
		ToleranceAfter:  1,
		WeekdayLookback: map[string]int{"Monday": 3},
		SkipWeekends:    true,
	}
}

// Validate checks the schedule shape.
func (sc ScheduleConfig) Validate() error {
	if len(sc.Cuts) == 0 {
		return ErrNoScheduleCuts
	}

	for _, h := range sc.Cuts {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: %d", ErrInvalidCutHour, h)
		}
	}

	// A cut matches hours in [cut-before, cut+after); with after at 0 the
	// cut hour itself can never match and no window would ever fire.
	if sc.ToleranceAfter < 1 {
		return ErrInvalidTolerance
	}

	return nil
}

// LoadRunFile reads and parses the YAML run file. A missing path yields an
// empty RunFile with the default schedule, not an error.
func LoadRunFile(path string) (*RunFile, error) {
	if path == "" {
		return &RunFile{Schedule: DefaultScheduleConfig()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file YAML: %w", err)
	}

	if len(rf.Schedule.Cuts) == 0 {
		rf.Schedule = DefaultScheduleConfig()
	}

	if rf.Schedule.ToleranceAfter < 1 {
		rf.Schedule.ToleranceAfter = 1
	}

	if rf.Schedule.ToleranceBefore < 0 {
		rf.Schedule.ToleranceBefore = 0
	}

	if err := rf.Schedule.Validate(); err != nil {
		return nil, err
	}

	return &rf, nil
}

// Apply overlays the run-file lists onto the env-derived run config. Env
// values win only when the run file omits the list.
func (rf *RunFile) Apply(run *RunConfig) {
	if len(rf.Keywords) > 0 {
		run.Keywords = rf.Keywords
	}

	if len(rf.Accounts) > 0 {
		run.Accounts = rf.Accounts
	}

	if len(rf.Queries) > 0 {
		run.Queries = rf.Queries
	}

	if len(rf.Countries) > 0 {
		run.Countries = rf.Countries
	}
}

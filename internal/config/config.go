package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"NewsRelay/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWSRELAY_CONFIG"

	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	dataDirEnv        = "DATA_DIR"
	telegramTokenEnv  = "TG_TOKEN"
	telegramChatIDEnv = "TG_CHAT_ID"
	telegraphTokenEnv = "TELEGRAPH_TOKEN"

	providerEnvPrefix = "AI_PROVIDER_"

	sqliteFile   = "news.db"
	sqliteParams = "?_pragma=busy_timeout(5000)"
)

// Config holds every setting a stage worker or operator command may need.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Stages    StagesConfig    `yaml:"stages"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Providers ProvidersConfig `yaml:"providers"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Telegraph TelegraphConfig `yaml:"telegraph"`
	Publish   PublishConfig   `yaml:"publish"`
}

// LoggingConfig selects slog level and output format (text, json, auto).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the status store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// StorageConfig points at the artifact directory.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// StageConfig tunes a single worker loop.
type StageConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// StagesConfig holds per-stage loop settings.
type StagesConfig struct {
	Download   StageConfig `yaml:"download"`
	Scrape     StageConfig `yaml:"scrape"`
	Translate  StageConfig `yaml:"translate"`
	Rewrite    StageConfig `yaml:"rewrite"`
	Illustrate StageConfig `yaml:"illustrate"`
	Publish    StageConfig `yaml:"publish"`
}

// For returns the settings of the named stage.
func (s StagesConfig) For(name domain.StageName) StageConfig {
	switch name {
	case domain.StageDownload:
		return s.Download
	case domain.StageScrape:
		return s.Scrape
	case domain.StageTranslate:
		return s.Translate
	case domain.StageRewrite:
		return s.Rewrite
	case domain.StageIllustrate:
		return s.Illustrate
	case domain.StagePublish:
		return s.Publish
	}
	return StageConfig{}
}

// FetchConfig controls source page downloads.
type FetchConfig struct {
	UserAgent string        `yaml:"userAgent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ProvidersConfig binds an AI backend to each AI-driven stage.
type ProvidersConfig struct {
	Translator  ProviderConfig `yaml:"translator"`
	Rewriter    ProviderConfig `yaml:"rewriter"`
	Illustrator ProviderConfig `yaml:"illustrator"`
}

// For returns the provider bound to the named stage.
func (p ProvidersConfig) For(name domain.StageName) (ProviderConfig, bool) {
	switch name {
	case domain.StageTranslate:
		return p.Translator, true
	case domain.StageRewrite:
		return p.Rewriter, true
	case domain.StageIllustrate:
		return p.Illustrator, true
	}
	return ProviderConfig{}, false
}

// ProviderConfig defines how to contact one AI backend.
type ProviderConfig struct {
	Type             string        `yaml:"type"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"apiKey"`
	Prompt           string        `yaml:"prompt"`
	BaseURL          string        `yaml:"baseUrl"`
	ReasoningEnabled string        `yaml:"reasoningEnabled"`
	ReasoningEffort  string        `yaml:"reasoningEffort"`
	Timeout          time.Duration `yaml:"timeout"`
}

// TelegramConfig wires the bot used for short-form publishing.
type TelegramConfig struct {
	BotToken     string        `yaml:"botToken"`
	ChatID       string        `yaml:"chatId"`
	BaseURL      string        `yaml:"baseUrl"`
	MessageLimit int           `yaml:"messageLimit"`
	MinInterval  time.Duration `yaml:"minInterval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// TelegraphConfig wires the long-form fallback surface.
type TelegraphConfig struct {
	AccessToken string `yaml:"accessToken"`
	AuthorName  string `yaml:"authorName"`
	BaseURL     string `yaml:"baseUrl"`
}

// PublishConfig shapes the message footer.
type PublishConfig struct {
	PublishedLabel string         `yaml:"publishedLabel"`
	SourceLabel    string         `yaml:"sourceLabel"`
	ArticleLabel   string         `yaml:"articleLabel"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the footer timezone.
func (p PublishConfig) Location() *time.Location {
	if p.location != nil {
		return p.location
	}
	return time.UTC
}

// Load reads YAML configuration from path (or NEWSRELAY_CONFIG) over the
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.WithHint(errors.Wrapf(err, "read config %s", path),
				"pass --config or set "+configPathEnv+" to an existing YAML file")
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.deriveDSN()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Storage.DataDir, dataDirEnv)
	setString(&c.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Telegram.ChatID, telegramChatIDEnv)
	setString(&c.Telegraph.AccessToken, telegraphTokenEnv)

	c.Providers.Translator.applyEnv("TRANSLATOR")
	c.Providers.Rewriter.applyEnv("REWRITER")
	c.Providers.Illustrator.applyEnv("ILLUSTRATOR")
}

func (p *ProviderConfig) applyEnv(role string) {
	prefix := providerEnvPrefix + role + "_"
	setString(&p.Type, prefix+"TYPE")
	setString(&p.Model, prefix+"MODEL")
	setString(&p.APIKey, prefix+"API_KEY")
	setString(&p.Prompt, prefix+"PROMPT")
	setString(&p.BaseURL, prefix+"BASE_URL")
	if v, ok := os.LookupEnv(prefix + "REASONING_ENABLED"); ok {
		p.ReasoningEnabled = v
	}
	if v, ok := os.LookupEnv(prefix + "REASONING_EFFORT"); ok {
		p.ReasoningEffort = v
	}
	if v := os.Getenv(prefix + "TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			p.Timeout = time.Duration(secs) * time.Second
		}
	}
}

// deriveDSN places the SQLite database inside the data directory unless a
// DSN was configured explicitly.
func (c *Config) deriveDSN() {
	if c.Database.DSN != "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "sqlite3":
		dir := c.Storage.DataDir
		if dir == "" {
			dir = "."
		}
		c.Database.DSN = "file:" + filepath.ToSlash(filepath.Join(dir, sqliteFile)) + sqliteParams
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Publish.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return errors.Wrapf(err, "unknown publish timezone %q", tz)
	}
	c.Publish.location = loc
	return nil
}

// Validate reports settings the given stage cannot start without.
func (c Config) Validate(stage domain.StageName) error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "database.dsn")
	}

	if p, ok := c.Providers.For(stage); ok {
		role := strings.ToUpper(providerRole(stage))
		for _, f := range []struct{ name, value string }{
			{"TYPE", p.Type},
			{"MODEL", p.Model},
			{"API_KEY", p.APIKey},
			{"PROMPT", p.Prompt},
		} {
			if strings.TrimSpace(f.value) == "" {
				missing = append(missing, providerEnvPrefix+role+"_"+f.name)
			}
		}
	}

	switch stage {
	case domain.StageDownload, domain.StageScrape:
		if c.Storage.DataDir == "" {
			missing = append(missing, "storage.dataDir")
		}
	case domain.StagePublish:
		if c.Telegram.BotToken == "" {
			missing = append(missing, telegramTokenEnv)
		}
		if c.Telegram.ChatID == "" {
			missing = append(missing, telegramChatIDEnv)
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return errors.WithHint(
		errors.Newf("stage %s is missing required settings: %s", stage, strings.Join(missing, ", ")),
		"set them in the YAML config or through the environment",
	)
}

func providerRole(stage domain.StageName) string {
	switch stage {
	case domain.StageTranslate:
		return "translator"
	case domain.StageRewrite:
		return "rewriter"
	case domain.StageIllustrate:
		return "illustrator"
	}
	return string(stage)
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)

	mergeString(&base.Database.Driver, override.Database.Driver)
	mergeString(&base.Database.DSN, override.Database.DSN)
	mergeString(&base.Storage.DataDir, override.Storage.DataDir)

	mergeStage(&base.Stages.Download, override.Stages.Download)
	mergeStage(&base.Stages.Scrape, override.Stages.Scrape)
	mergeStage(&base.Stages.Translate, override.Stages.Translate)
	mergeStage(&base.Stages.Rewrite, override.Stages.Rewrite)
	mergeStage(&base.Stages.Illustrate, override.Stages.Illustrate)
	mergeStage(&base.Stages.Publish, override.Stages.Publish)

	mergeString(&base.Fetch.UserAgent, override.Fetch.UserAgent)
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}

	mergeProvider(&base.Providers.Translator, override.Providers.Translator)
	mergeProvider(&base.Providers.Rewriter, override.Providers.Rewriter)
	mergeProvider(&base.Providers.Illustrator, override.Providers.Illustrator)

	mergeString(&base.Telegram.BotToken, override.Telegram.BotToken)
	mergeString(&base.Telegram.ChatID, override.Telegram.ChatID)
	mergeString(&base.Telegram.BaseURL, override.Telegram.BaseURL)
	if override.Telegram.MessageLimit > 0 {
		base.Telegram.MessageLimit = override.Telegram.MessageLimit
	}
	if override.Telegram.MinInterval > 0 {
		base.Telegram.MinInterval = override.Telegram.MinInterval
	}
	if override.Telegram.Timeout > 0 {
		base.Telegram.Timeout = override.Telegram.Timeout
	}

	mergeString(&base.Telegraph.AccessToken, override.Telegraph.AccessToken)
	mergeString(&base.Telegraph.AuthorName, override.Telegraph.AuthorName)
	mergeString(&base.Telegraph.BaseURL, override.Telegraph.BaseURL)

	mergeString(&base.Publish.PublishedLabel, override.Publish.PublishedLabel)
	mergeString(&base.Publish.SourceLabel, override.Publish.SourceLabel)
	mergeString(&base.Publish.ArticleLabel, override.Publish.ArticleLabel)
	mergeString(&base.Publish.Timezone, override.Publish.Timezone)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeStage(dst *StageConfig, v StageConfig) {
	if v.Interval > 0 {
		dst.Interval = v.Interval
	}
}

func mergeProvider(dst *ProviderConfig, v ProviderConfig) {
	mergeString(&dst.Type, v.Type)
	mergeString(&dst.Model, v.Model)
	mergeString(&dst.APIKey, v.APIKey)
	mergeString(&dst.Prompt, v.Prompt)
	mergeString(&dst.BaseURL, v.BaseURL)
	mergeString(&dst.ReasoningEnabled, v.ReasoningEnabled)
	mergeString(&dst.ReasoningEffort, v.ReasoningEffort)
	if v.Timeout > 0 {
		dst.Timeout = v.Timeout
	}
}

func defaultConfig() Config {
	providerTimeout := 120 * time.Second
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "auto"},
		Database: DatabaseConfig{Driver: "sqlite"},
		Storage:  StorageConfig{DataDir: "data"},
		Stages: StagesConfig{
			Download:   StageConfig{Interval: 30 * time.Second},
			Scrape:     StageConfig{Interval: 30 * time.Second},
			Translate:  StageConfig{Interval: time.Minute},
			Rewrite:    StageConfig{Interval: time.Minute},
			Illustrate: StageConfig{Interval: time.Minute},
			Publish:    StageConfig{Interval: 2 * time.Minute},
		},
		Fetch: FetchConfig{UserAgent: "NewsRelay/1.0", Timeout: 30 * time.Second},
		Providers: ProvidersConfig{
			Translator:  ProviderConfig{Timeout: providerTimeout},
			Rewriter:    ProviderConfig{Timeout: providerTimeout},
			Illustrator: ProviderConfig{Timeout: providerTimeout},
		},
		Telegram: TelegramConfig{
			BaseURL:      "https://api.telegram.org",
			MessageLimit: 4096,
			MinInterval:  time.Second,
			Timeout:      30 * time.Second,
		},
		Telegraph: TelegraphConfig{
			AuthorName: "NewsRelay",
			BaseURL:    "https://api.telegra.ph",
		},
		Publish: PublishConfig{
			PublishedLabel: "Published",
			SourceLabel:    "Read original",
			ArticleLabel:   "Read the full article",
			Timezone:       defaultTimezone,
			location:       time.UTC,
		},
	}
}

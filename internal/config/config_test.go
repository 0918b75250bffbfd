package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, 4096, cfg.Telegram.MessageLimit)
	assert.Equal(t, time.Second, cfg.Telegram.MinInterval)
	assert.Equal(t, 120*time.Second, cfg.Providers.Rewriter.Timeout)
	assert.Equal(t, time.UTC, cfg.Publish.Location())
	assert.Equal(t, 2*time.Minute, cfg.Stages.For(domain.StagePublish).Interval)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := writeYAML(t, `
logging:
  level: warn
stages:
  rewrite:
    interval: 45s
providers:
  rewriter:
    type: gemini
    model: gemini-2.5-pro
    prompt: Rewrite this.
    reasoningEffort: high
publish:
  publishedLabel: Опубликовано
  timezone: Europe/Moscow
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 45*time.Second, cfg.Stages.For(domain.StageRewrite).Interval)
	assert.Equal(t, time.Minute, cfg.Stages.For(domain.StageTranslate).Interval, "untouched stages keep defaults")

	rw, ok := cfg.Providers.For(domain.StageRewrite)
	require.True(t, ok)
	assert.Equal(t, "gemini", rw.Type)
	assert.Equal(t, "high", rw.ReasoningEffort)
	assert.Equal(t, 120*time.Second, rw.Timeout)

	assert.Equal(t, "Опубликовано", cfg.Publish.PublishedLabel)
	assert.Equal(t, "Read original", cfg.Publish.SourceLabel)
	assert.Equal(t, "Europe/Moscow", cfg.Publish.Location().String())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "telegram:\n  chatId: from-file\n")
	t.Setenv("TG_CHAT_ID", "@from-env")
	t.Setenv("TG_TOKEN", "123:abc")
	t.Setenv("AI_PROVIDER_ILLUSTRATOR_TYPE", "openrouter")
	t.Setenv("AI_PROVIDER_ILLUSTRATOR_REASONING_ENABLED", "false")
	t.Setenv("AI_PROVIDER_ILLUSTRATOR_TIMEOUT_SECONDS", "300")
	t.Setenv("DATA_DIR", "/var/lib/newsrelay")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "@from-env", cfg.Telegram.ChatID)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "openrouter", cfg.Providers.Illustrator.Type)
	assert.Equal(t, "false", cfg.Providers.Illustrator.ReasoningEnabled)
	assert.Equal(t, 300*time.Second, cfg.Providers.Illustrator.Timeout)
	assert.Equal(t, "/var/lib/newsrelay", cfg.Storage.DataDir)
}

func TestSQLiteDSNFollowsDataDir(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DATABASE_DRIVER", "")

	t.Setenv("DATA_DIR", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:data/news.db?_pragma=busy_timeout(5000)", cfg.Database.DSN)

	t.Setenv("DATA_DIR", "/srv/news")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:/srv/news/news.db?_pragma=busy_timeout(5000)", cfg.Database.DSN)

	cfg, err = Load(writeYAML(t, "database:\n  dsn: file:/elsewhere.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "file:/elsewhere.db", cfg.Database.DSN, "explicit DSN wins")

	t.Setenv("DATABASE_DRIVER", "postgres")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.DSN)
	assert.Error(t, cfg.Validate(domain.StageDownload))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.FlattenHints(err))

	_, err = Load(writeYAML(t, "logging: [oops"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "publish:\n  timezone: Mars/Olympus\n"))
	assert.Error(t, err)
}

func TestValidatePerStage(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate(domain.StageDownload))

	err = cfg.Validate(domain.StageRewrite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_PROVIDER_REWRITER_TYPE")
	assert.Contains(t, err.Error(), "AI_PROVIDER_REWRITER_PROMPT")

	err = cfg.Validate(domain.StagePublish)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TG_TOKEN")

	cfg.Telegram.BotToken = "t"
	cfg.Telegram.ChatID = "c"
	assert.NoError(t, cfg.Validate(domain.StagePublish))
}

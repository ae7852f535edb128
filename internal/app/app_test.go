package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/serverhealth/core/config"
	coredatabase "github.com/m3rciful/serverhealth/core/database"
	"github.com/m3rciful/serverhealth/core/telegram/state"
	"github.com/m3rciful/serverhealth/internal/api"
	"github.com/m3rciful/serverhealth/internal/bot"

	tele "gopkg.in/telebot.v4"
)

const sampleYAML = `
telegram:
  token: "123:abc"
access:
  allowed_user_ids: [42]
database:
  host: localhost
  name: serverhealth
charts:
  base_url: https://charts.example
api:
  listen: ":8080"
  ingest_token: agent-secret
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Equal(t, 100.0, cfg.Prediction.DiskTotalGB)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.API.Enabled())
}

func TestNormalizeRejectsBadChartsURL(t *testing.T) {
	for _, u := range []string{"", "charts.example"} {
		cfg := validConfig()
		cfg.Charts.BaseURL = u
		assert.Error(t, cfg.Normalize(), u)
	}
}

func TestNormalizeRequiresIngestTokenForAPI(t *testing.T) {
	cfg := validConfig()
	cfg.API = api.Config{Listen: ":8080", IngestToken: "  "}
	assert.ErrorContains(t, cfg.Normalize(), "api.ingest_token")

	cfg = validConfig()
	cfg.API = api.Config{IngestToken: ""}
	assert.NoError(t, cfg.Normalize(), "disabled listener needs no token")
}

func TestNormalizeRequiresDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database = coredatabase.Config{}
	assert.Error(t, cfg.Normalize())
}

func validConfig() *Config {
	return &Config{
		Config: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc"},
			Access:   coreconfig.AccessConfig{AllowedUserIDs: []int64{42}},
		},
		Database: coredatabase.Config{Host: "localhost", Name: "serverhealth"},
		Charts:   ChartsConfig{BaseURL: "https://charts.example"},
	}
}

func newApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	require.NoError(t, cfg.Normalize())
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a, err := New(cfg, sqlx.NewDb(db, "postgres"), state.NewMemoryStore(time.Now))
	require.NoError(t, err)
	return a
}

func TestTelegramRunOptionsWiresRoutes(t *testing.T) {
	a := newApp(t, validConfig())

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, &a.cfg.Config, opts.Config)
	assert.NotEmpty(t, opts.Middlewares)
	assert.NotNil(t, opts.OnStart)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, want := range []any{"/start", "/menu", "/cancel", "/help", tele.OnText, tele.OnCallback} {
		assert.True(t, endpoints[want], "%v", want)
	}

	_, ok := opts.Registry.GetCallback(bot.ActionServersAdd)
	assert.True(t, ok)
}

func TestServicesFollowAPIConfig(t *testing.T) {
	assert.Empty(t, newApp(t, validConfig()).Services())

	cfg := validConfig()
	cfg.API = api.Config{Listen: "127.0.0.1:0", IngestToken: "agent-secret"}
	assert.Len(t, newApp(t, cfg).Services(), 1)
}

func TestCloseWithoutInfrastructure(t *testing.T) {
	assert.NoError(t, newApp(t, validConfig()).Close())
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreign{})
	assert.Error(t, err)
}

type foreign struct{}

func (foreign) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }

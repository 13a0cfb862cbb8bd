package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: from-file
  run_mode: polling
rate_limit:
  interval_ms: 500
  exclude_updates: [" Callback ", "", "voice"]
`)
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback, UpdateVoice}, cfg.RateLimit.ExcludeUpdates)
	assert.Equal(t, 500, cfg.RateLimit.IntervalMS)
}

func TestNormalizeReportsAllProblems(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{RunMode: "webhook"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{"sticker"}},
	}
	err := Normalize(&cfg)
	require.Error(t, err)
	for _, want := range []string{"telegram.token", "webhook.url", "webhook.port", `"sticker"`} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"no token", Config{}, true},
		{"defaults to longpoll", Config{Telegram: TelegramConfig{Token: "t"}}, false},
		{"unknown mode", Config{Telegram: TelegramConfig{Token: "t", RunMode: "push"}}, true},
		{"webhook without url", Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}, true},
		{
			"webhook complete",
			Config{
				Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
				Webhook:  WebhookConfig{URL: "https://bot.example", Listen: "0.0.0.0", Port: 8443},
			},
			false,
		},
		{"negative poll timeout", Config{Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}}, true},
		{"bad exclude", Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := Normalize(&cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Telegram.RunMode)
		})
	}
}

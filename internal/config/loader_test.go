package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PITCHFORGE_TEST_SET", "from-env")

	assert.Equal(t, "v=from-env", expandEnv("v=${PITCHFORGE_TEST_SET:fallback}"))
	assert.Equal(t, "v=fallback", expandEnv("v=${PITCHFORGE_TEST_UNSET_1:fallback}"))
	assert.Equal(t, "v=", expandEnv("v=${PITCHFORGE_TEST_UNSET_2:}"))
	// 无默认值且未定义时保留原样
	assert.Equal(t, "v=${PITCHFORGE_TEST_UNSET_3}", expandEnv("v=${PITCHFORGE_TEST_UNSET_3}"))
}

func TestLoadFrom_MergesEnvFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("PITCHFORGE_TEST_MODEL", "gemini-2.5-flash")

	writeFile(t, dir, "config.yaml", `
app:
  name: pitchforge-test
llm:
  default_provider: gemini
  providers:
    gemini:
      type: gemini
      model: ${PITCHFORGE_TEST_MODEL:gemini-pro}
deck:
  backend: memory
  settle_delay: 1s
`)
	writeFile(t, dir, "config.staging.yaml", `
deck:
  settle_delay: 250ms
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "pitchforge-test", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Deck.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Deck.SettleDelay)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Providers["gemini"].Model)

	// 未配置的字段回落到默认值
	assert.Equal(t, "{{", cfg.Deck.TokenOpen)
	assert.Equal(t, "}}", cfg.Deck.TokenClose)
	assert.Equal(t, uint(3), cfg.Retry.MaxTries)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
}

func TestLoadFrom_MissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.yaml")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Deck.Backend = "google"
		c.Deck.TemplatePresentationID = "master"
		c.Deck.TokenOpen = "{{"
		c.Deck.TokenClose = "}}"
		c.LLM.DefaultProvider = "gemini"
		c.LLM.Providers = map[string]ProviderConfig{"gemini": {Type: "gemini"}}
		return c
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"google without master", func(c *Config) { c.Deck.TemplatePresentationID = "" }, "template_presentation_id"},
		{"unknown backend", func(c *Config) { c.Deck.Backend = "pptx" }, "unsupported deck.backend"},
		{"empty delimiters", func(c *Config) { c.Deck.TokenClose = "" }, "token_close"},
		{"unknown default provider", func(c *Config) { c.LLM.DefaultProvider = "claude" }, "no provider config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	memory := valid()
	memory.Deck.Backend = "memory"
	memory.Deck.TemplatePresentationID = ""
	assert.NoError(t, memory.Validate())
}

package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/avlowe/minute/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Recall.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRecallBaseURL points the Recall client at a test server.
func WithRecallBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recall.BaseURL = url
	}
}

// WithRecallKey sets the Recall API key on the test config.
func WithRecallKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recall.APIKey = key
	}
}

// WithChangeAgent enables the remote summarizer against a test server.
func WithChangeAgent(url, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ChangeAgent.Enabled = true
		b.cfg.ChangeAgent.BaseURL = url
		b.cfg.ChangeAgent.APIKey = key
	}
}

// WithAPIToken requires bearer auth on the test API server.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithJWTSecret configures token issuance on the test config.
func WithJWTSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Auth.JWTSecret = secret
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

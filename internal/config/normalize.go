package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecall()
	c.normalizeChangeAgent()
	c.normalizeAuth()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if value, ok := lookupSecret("MINUTE_API_TOKEN"); ok {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeRecall() {
	if value, ok := lookupSecret("RECALL_API_KEY"); ok {
		c.Recall.APIKey = value
	}
	c.Recall.APIKey = strings.TrimSpace(c.Recall.APIKey)
	c.Recall.BaseURL = strings.TrimSpace(c.Recall.BaseURL)
	if c.Recall.BaseURL == "" {
		c.Recall.BaseURL = defaultRecallBaseURL
	}
	if value, ok := lookupSecret("MINUTE_WEBHOOK_URL"); ok {
		c.Recall.WebhookURL = value
	}
	c.Recall.WebhookURL = strings.TrimSpace(c.Recall.WebhookURL)
	if c.Recall.TimeoutSeconds <= 0 {
		c.Recall.TimeoutSeconds = defaultRecallTimeoutSeconds
	}
}

func (c *Config) normalizeChangeAgent() {
	if value, ok := lookupSecret("CHANGEAGENT_API_KEY"); ok {
		c.ChangeAgent.APIKey = value
	}
	c.ChangeAgent.APIKey = strings.TrimSpace(c.ChangeAgent.APIKey)
	c.ChangeAgent.BaseURL = strings.TrimSpace(c.ChangeAgent.BaseURL)
	if c.ChangeAgent.BaseURL == "" {
		c.ChangeAgent.BaseURL = defaultChangeAgentBaseURL
	}
	if c.ChangeAgent.TimeoutSeconds <= 0 {
		c.ChangeAgent.TimeoutSeconds = defaultChangeAgentTimeoutSeconds
	}
}

func (c *Config) normalizeAuth() {
	if value, ok := lookupSecret("MINUTE_JWT_SECRET"); ok {
		c.Auth.JWTSecret = value
	}
	c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	if c.Auth.TokenExpiryMinutes <= 0 {
		c.Auth.TokenExpiryMinutes = defaultAuthTokenExpiryMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// lookupSecret reads an environment variable, treating blank values as unset.
// Environment values take precedence over config file entries so deployments
// can keep credentials out of on-disk configuration.
func lookupSecret(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

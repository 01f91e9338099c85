package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecall(); err != nil {
		return err
	}
	if err := c.validateChangeAgent(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRecall() error {
	if c.Recall.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/minute/config.toml"
		}
		return fmt.Errorf("recall.api_key is required. Set RECALL_API_KEY env var or edit %s (create with 'minute config init')", defaultPath)
	}
	if strings.TrimSpace(c.Recall.BaseURL) == "" {
		return errors.New("recall.base_url must be set")
	}
	return nil
}

func (c *Config) validateChangeAgent() error {
	if !c.ChangeAgent.Enabled {
		return nil
	}
	if strings.TrimSpace(c.ChangeAgent.BaseURL) == "" {
		return errors.New("changeagent.base_url must be set when changeagent.enabled is true")
	}
	if strings.TrimSpace(c.ChangeAgent.APIKey) == "" {
		return errors.New("changeagent.api_key must be set when changeagent.enabled is true")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.TokenExpiryMinutes <= 0 {
		return errors.New("auth.token_expiry_minutes must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"recall.timeout_seconds":        c.Recall.TimeoutSeconds,
		"changeagent.timeout_seconds":   c.ChangeAgent.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.scheduler_interval":   c.Workflow.SchedulerInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	if c.Workflow.MaxAttempts < 1 {
		return errors.New("workflow.max_attempts must be at least 1")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.MinMeetingSeconds < 0 {
		return errors.New("notifications.min_meeting_seconds must be >= 0")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

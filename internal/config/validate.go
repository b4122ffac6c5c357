package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	return c.validateWorkflow()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		return errors.New("paths.media_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		return errors.New("paths.processed_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateConverter() error {
	if c.Converter.FFmpegBinary == "" {
		return errors.New("converter.ffmpeg_binary must be set")
	}
	if c.Converter.FFprobeBinary == "" {
		return errors.New("converter.ffprobe_binary must be set")
	}
	if c.Converter.TargetWidth <= 0 || c.Converter.TargetHeight <= 0 {
		return errors.New("converter.target_width and converter.target_height must be positive")
	}
	if c.Converter.Workers <= 0 {
		return errors.New("converter.workers must be positive")
	}
	return c.ensurePositive(map[string]int{
		"converter.timeout_seconds": c.Converter.TimeoutSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	return c.ensurePositive(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.display_refresh":      c.Workflow.DisplayRefresh,
		"workflow.inbox_settle_seconds": c.Workflow.InboxSettleSeconds,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func (c *Config) ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

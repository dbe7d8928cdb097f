package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeProcessing()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandPath(c.Paths.ProcessedDir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeYouTube() error {
	var err error
	if strings.TrimSpace(c.YouTube.ClientSecretsFile) == "" {
		c.YouTube.ClientSecretsFile = defaultClientSecretsFile
	}
	if c.YouTube.ClientSecretsFile, err = expandPath(c.YouTube.ClientSecretsFile); err != nil {
		return fmt.Errorf("youtube.client_secrets_file: %w", err)
	}
	if strings.TrimSpace(c.YouTube.TokenFile) == "" {
		c.YouTube.TokenFile = defaultTokenFile
	}
	if c.YouTube.TokenFile, err = expandPath(c.YouTube.TokenFile); err != nil {
		return fmt.Errorf("youtube.token_file: %w", err)
	}
	if strings.TrimSpace(c.YouTube.CategoryID) == "" {
		c.YouTube.CategoryID = defaultCategoryID
	}
	if c.YouTube.ChunkSizeMiB <= 0 {
		c.YouTube.ChunkSizeMiB = defaultChunkSizeMiB
	}
	return nil
}

func (c *Config) normalizeProcessing() {
	if c.Processing.DetectMaxFrames <= 0 {
		c.Processing.DetectMaxFrames = defaultDetectMaxFrames
	}
	if c.Processing.TimeBudgetSeconds <= 0 {
		c.Processing.TimeBudgetSeconds = defaultTimeBudgetSeconds
	}
	if strings.TrimSpace(c.Processing.WhisperModel) == "" {
		c.Processing.WhisperModel = defaultWhisperModel
	}
	if strings.TrimSpace(c.Processing.WhisperBinary) == "" {
		c.Processing.WhisperBinary = defaultWhisperBinary
	}
	if strings.TrimSpace(c.Processing.FFmpegBinary) == "" {
		c.Processing.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Processing.FFprobeBinary) == "" {
		c.Processing.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Processing.TesseractBinary) == "" {
		c.Processing.TesseractBinary = defaultTesseractBinary
	}
	if strings.TrimSpace(c.Processing.Language) == "" {
		c.Processing.Language = defaultLanguage
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

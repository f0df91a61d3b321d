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
	c.normalizeService()
	c.normalizeUpload()
	c.normalizeCompression()
	c.normalizeConnectivity()
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
	return nil
}

func (c *Config) normalizeService() {
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaultBaseURL
	}
	if token, ok := os.LookupEnv("CANTRIP_API_TOKEN"); ok && strings.TrimSpace(token) != "" {
		c.Service.APIToken = strings.TrimSpace(token)
	}
	if c.Service.RequestTimeout <= 0 {
		c.Service.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeUpload() {
	if c.Upload.Concurrency <= 0 {
		c.Upload.Concurrency = defaultConcurrency
	}
	if c.Upload.MaxRawSizeMB <= 0 {
		c.Upload.MaxRawSizeMB = defaultMaxRawSizeMB
	}
}

func (c *Config) normalizeCompression() {
	if c.Compression.MaxOutputMB <= 0 {
		c.Compression.MaxOutputMB = defaultMaxOutputMB
	}
	if c.Compression.MaxDimension <= 0 {
		c.Compression.MaxDimension = defaultMaxDimension
	}
	if c.Compression.Quality <= 0 {
		c.Compression.Quality = defaultQuality
	}
}

func (c *Config) normalizeConnectivity() {
	if c.Connectivity.OfflineProbeInterval <= 0 {
		c.Connectivity.OfflineProbeInterval = defaultOfflineProbeInterval
	}
	if c.Connectivity.OnlineProbeInterval <= 0 {
		c.Connectivity.OnlineProbeInterval = defaultOnlineProbeInterval
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

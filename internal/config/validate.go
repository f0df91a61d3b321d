package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("service.base_url %q is not a valid URL", c.Service.BaseURL)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("service.base_url scheme %q must be http or https", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.Concurrency > 16 {
		return errors.New("upload.concurrency must be 16 or lower")
	}
	if c.Upload.MaxRawSizeMB > 100 {
		return errors.New("upload.max_raw_size_mb must be 100 or lower")
	}
	return nil
}

func (c *Config) validateCompression() error {
	if c.Compression.Quality < 1 || c.Compression.Quality > 100 {
		return errors.New("compression.quality must be between 1 and 100")
	}
	if c.Compression.MaxOutputMB > c.Upload.MaxRawSizeMB {
		return errors.New("compression.max_output_mb cannot exceed upload.max_raw_size_mb")
	}
	if c.Compression.MaxDimension < 16 {
		return errors.New("compression.max_dimension must be at least 16")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

package config

const (
	defaultDataDir              = "~/.local/share/cantrip"
	defaultLogDir               = "~/.local/share/cantrip/logs"
	defaultBaseURL              = "https://cantrip.app"
	defaultRequestTimeout       = 60
	defaultConcurrency          = 3
	defaultMaxRawSizeMB         = 10
	defaultMaxOutputMB          = 2
	defaultMaxDimension         = 2000
	defaultQuality              = 85
	defaultOfflineProbeInterval = 2
	defaultOnlineProbeInterval  = 30
	defaultNtfyRequestTimeout   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Service: Service{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Upload: Upload{
			Concurrency:  defaultConcurrency,
			MaxRawSizeMB: defaultMaxRawSizeMB,
		},
		Compression: Compression{
			MaxOutputMB:  defaultMaxOutputMB,
			MaxDimension: defaultMaxDimension,
			Quality:      defaultQuality,
		},
		Connectivity: Connectivity{
			OfflineProbeInterval: defaultOfflineProbeInterval,
			OnlineProbeInterval:  defaultOnlineProbeInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Batch:          true,
			Sync:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

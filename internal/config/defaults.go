package config

const (
	defaultConfigPath    = "~/.config/decart/config.toml"
	defaultLogDir        = "~/.local/share/decart/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "warn"
	defaultCacheEnabled  = true
	defaultParse         = true
	defaultOptionsFormat = "json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Cache: Cache{
			Enabled: defaultCacheEnabled,
			Path:    defaultCachePath(),
		},
		Decode: Decode{
			Parse: defaultParse,
		},
		Output: Output{
			OptionsFormat: defaultOptionsFormat,
		},
	}
}

package config

import (
	"github.com/rshade/batchrun/internal/logging"
)

// ToLoggingConfig converts the logging section into a logging.Config. A
// configured File switches output to "file"; otherwise logs go to stderr.
// Debug and trace levels also record the caller.
func (lc *LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = logging.OutputFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
		Caller: lc.Level == "debug" || lc.Level == "trace",
	}
}

// GetLoggingConfig returns a copy of the global Logging section. Flag
// overrides such as --debug are applied by the caller.
func GetLoggingConfig() LoggingConfig {
	cfg := GetGlobalConfig()
	return cfg.Logging
}

package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Config represents the logger configuration.
type Config struct {
	// Director is the directory where log files will be stored. Relative paths
	// are resolved against the run's base directory by the caller.
	Director string `mapstructure:"director" json:"director" yaml:"director" default:"logs"`

	// Level is the minimum log level (debug, info, warn, error, dpanic, panic, fatal).
	Level string `mapstructure:"level" json:"level" yaml:"level" default:"info" validate:"omitempty,oneof=debug info warn error dpanic panic fatal DEBUG INFO WARN ERROR"`

	// EncodeLevel is the level encoder type (LowercaseLevelEncoder, LowercaseColorLevelEncoder, CapitalLevelEncoder, CapitalColorLevelEncoder).
	EncodeLevel string `mapstructure:"encode-level" json:"encodeLevel" yaml:"encode-level" default:"CapitalLevelEncoder"`

	// Prefix is prepended to every timestamp.
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`

	// TimeFormat is the time format string (uses Go time format).
	TimeFormat string `mapstructure:"time-format" json:"timeFormat" yaml:"time-format" default:"2006/01/02 - 15:04:05"`

	// Format is the log format (json or console).
	Format string `mapstructure:"format" json:"format" yaml:"format" default:"console" validate:"omitempty,oneof=json console"`

	// LogInTerminal mirrors every entry to stderr.
	LogInTerminal bool `mapstructure:"log-in-terminal" json:"logInTerminal" yaml:"log-in-terminal" default:"true"`

	// DisableFile turns off the rotated log files entirely.
	DisableFile bool `mapstructure:"disable-file" json:"disableFile" yaml:"disable-file"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `mapstructure:"max-age" json:"maxAge" yaml:"max-age" default:"7"`

	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	MaxSize int `mapstructure:"max-size" json:"maxSize" yaml:"max-size" default:"20"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `mapstructure:"max-backups" json:"maxBackups" yaml:"max-backups" default:"5"`

	// Compress determines if the rotated log files should be compressed using gzip.
	Compress bool `mapstructure:"compress" json:"compress" yaml:"compress" default:"true"`

	// ShowLineNumber enables adding caller information to log entries.
	ShowLineNumber bool `mapstructure:"show-line-number" json:"showLineNumber" yaml:"show-line-number"`
}

// DefaultConfig returns a Config with sensible defaults for a terminal tool.
func DefaultConfig() Config {
	return Config{
		Director:      "logs",
		Level:         "info",
		EncodeLevel:   "CapitalLevelEncoder",
		TimeFormat:    "2006/01/02 - 15:04:05",
		Format:        "console",
		LogInTerminal: true,
		MaxAge:        7,
		MaxSize:       20,
		MaxBackups:    5,
		Compress:      true,
	}
}

// TransportLevel converts the string level to zapcore.Level.
func (c Config) TransportLevel() zapcore.Level {
	level := strings.ToLower(c.Level)
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ZapEncodeLevel returns the zapcore.LevelEncoder based on EncodeLevel.
func (c Config) ZapEncodeLevel() zapcore.LevelEncoder {
	switch c.EncodeLevel {
	case "LowercaseLevelEncoder":
		return zapcore.LowercaseLevelEncoder
	case "LowercaseColorLevelEncoder":
		return zapcore.LowercaseColorLevelEncoder
	case "CapitalLevelEncoder":
		return zapcore.CapitalLevelEncoder
	case "CapitalColorLevelEncoder":
		return zapcore.CapitalColorLevelEncoder
	default:
		return zapcore.CapitalLevelEncoder
	}
}

// applyDefaults applies default values to empty fields.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.TimeFormat == "" {
		c.TimeFormat = defaults.TimeFormat
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	if c.MaxSize == 0 {
		c.MaxSize = defaults.MaxSize
	}
	if c.MaxAge == 0 {
		c.MaxAge = defaults.MaxAge
	}
	if c.Format == "" {
		c.Format = defaults.Format
	}
	if c.Director == "" {
		c.Director = defaults.Director
	}
	if c.Level == "" {
		c.Level = defaults.Level
	}
}

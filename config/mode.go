package config

import (
	"os"
	"strings"
)

const ModeEnvKey = "THUMBKIT_ENV"

type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// ParseMode maps the usual spellings of an environment name onto a Mode.
// Anything unrecognised is treated as development.
func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads the mode from THUMBKIT_ENV.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(ModeEnvKey))
}

// modeSuffixes lists the file name suffixes loaded for a mode, in priority order.
func modeSuffixes(mode Mode) []string {
	switch mode {
	case ProMode:
		return []string{"production", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}

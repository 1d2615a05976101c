package config

import (
	"fmt"
	"time"

	"github.com/leeforge/thumbkit/logging"
	"github.com/leeforge/thumbkit/media/storage"
)

// AppConfig is everything a thumbkit run needs. Front ends (flags, files,
// environment) only ever populate this record.
type AppConfig struct {
	// BaseDir anchors InputDir, OutputDir and the log directory when they are relative.
	BaseDir string `mapstructure:"base_dir" default:"."`
	// InputDir holds the screenshots to process.
	InputDir string `mapstructure:"input_dir" default:"截图"`
	// OutputDir is the root under which one directory per product is created.
	OutputDir string `mapstructure:"output_dir" default:"生成结果"`
	// ProductName names the product directory and the archive.
	ProductName string `mapstructure:"product_name"`
	// StatusBarHeight is the number of pixel rows cut from the top of every screenshot.
	StatusBarHeight int `mapstructure:"status_bar_height" default:"75" validate:"gte=0"`

	Profiles []ProfileConfig `mapstructure:"profiles" validate:"required,min=1,dive"`
	Archive  ArchiveConfig   `mapstructure:"archive"`
	Watch    WatchConfig     `mapstructure:"watch"`
	Storage  storage.Config  `mapstructure:"storage"`
	Log      logging.Config  `mapstructure:"log"`
}

// ProfileConfig is one output size and its byte budget in KiB.
type ProfileConfig struct {
	Width  int `mapstructure:"width" validate:"gt=0"`
	Height int `mapstructure:"height" validate:"gt=0"`
	MaxKB  int `mapstructure:"max_kb" validate:"gt=0"`
}

type ArchiveConfig struct {
	// Suffix is appended to the product name to form the archive file name.
	Suffix  string `mapstructure:"suffix" default:"_上架图.zip"`
	Disable bool   `mapstructure:"disable"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" default:"2s" validate:"gte=0"`
}

// DefaultProfiles are the listing sizes used when none are configured.
var DefaultProfiles = []ProfileConfig{
	{Width: 450, Height: 800, MaxKB: 2000},
	{Width: 720, Height: 1280, MaxKB: 1000},
	{Width: 1080, Height: 1920, MaxKB: 1000},
}

// Finalize implements Finalizer.
func (c *AppConfig) Finalize() {
	if len(c.Profiles) == 0 {
		c.Profiles = append([]ProfileConfig(nil), DefaultProfiles...)
	}
}

// Validate rejects profile lists that would write two profiles into the same directory.
func (c *AppConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Profiles))
	for _, p := range c.Profiles {
		key := fmt.Sprintf("%dx%d", p.Width, p.Height)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate profile %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// knownKeys are the leaf keys that can be set from the environment even when no file mentions them.
var knownKeys = []string{
	"base_dir",
	"input_dir",
	"output_dir",
	"product_name",
	"status_bar_height",
	"archive.suffix",
	"archive.disable",
	"watch.debounce",
	"storage.type",
	"storage.local.base_path",
	"storage.local.base_url",
	"storage.oss.endpoint",
	"storage.oss.access_key_id",
	"storage.oss.access_key_secret",
	"storage.oss.bucket",
	"storage.oss.domain",
	"storage.oss.prefix",
	"log.level",
	"log.format",
	"log.director",
	"log.disable-file",
}

// Load reads the app configuration with the given options.
func Load(opts ConfigOptions) (*Config, *AppConfig, error) {
	c, err := NewConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	app, err := c.App()
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return c, app, nil
}

// App binds a fresh AppConfig from the current state of c.
func (c *Config) App() (*AppConfig, error) {
	app := &AppConfig{}
	if err := c.BindWithDefaults(app); err != nil {
		return nil, err
	}
	return app, nil
}

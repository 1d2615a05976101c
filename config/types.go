package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Validator interface {
	Validate() error
}

// Finalizer fills values that depend on what was bound, such as slices that
// must not be pre-filled before unmarshalling.
type Finalizer interface {
	Finalize()
}

type Config struct {
	instance   *viper.Viper
	opts       ConfigOptions
	overrides  map[string]any
	watchOnce  sync.Once
	watchMutex sync.RWMutex
	watcher    *fsnotify.Watcher
}

type ConfigOptions struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	// AllowMissing lets NewConfig succeed with no config file on disk;
	// defaults, environment and Set calls still apply.
	AllowMissing bool
	WatchAble    bool
	OnChange     func(e fsnotify.Event)
}

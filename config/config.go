package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("THUMBKIT_CONFIG_PATH")
	if basePath == "" {
		basePath = "."
	}

	return ConfigOptions{
		BasePath:     basePath,
		FileName:     "thumbkit",
		FileType:     "yaml",
		EnvPrefix:    "THUMBKIT",
		AllowMissing: true,
	}
}

func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	var opts ConfigOptions
	if len(optsArr) == 0 {
		opts = DefaultConfigOptions()
	} else {
		opts = optsArr[0]
	}

	instance, err := CreateConfig(opts)
	if err != nil {
		return nil, err
	}

	c := &Config{
		instance:  instance,
		opts:      opts,
		overrides: make(map[string]any),
	}
	if opts.WatchAble {
		if err := c.startWatch(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Bind unmarshals the current configuration into instance, which must be a pointer.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}

	if instance == nil {
		return fmt.Errorf("target instance is nil")
	}

	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("failed to unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	return nil
}

// BindWithDefaults fills struct defaults, overlays the configuration, runs
// Finalize if implemented, and validates the result.
//
// Defaults are applied once, before unmarshalling, so an explicit zero or
// false in a config file wins over a default tag.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}

	if err := c.Bind(instance); err != nil {
		return err
	}

	if f, ok := instance.(Finalizer); ok {
		f.Finalize()
	}

	return Validate(instance)
}

// Validate runs struct tag validation, then the Validator interface if implemented.
func Validate(instance any) error {
	if err := validate.Struct(instance); err != nil {
		return errors.NewValidation("config validation failed").WithInnerError(err)
	}

	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return errors.NewValidation("config validation failed").WithInnerError(err)
		}
	}

	return nil
}

func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

// Set overrides a key. Overrides survive reloads triggered by file changes.
func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.overrides[key] = value
	c.instance.Set(key, value)
}

// Files returns the configuration files that would be loaded right now.
func (c *Config) Files() []string {
	return getConfigFilePaths(c.opts)
}

// Close stops the file watcher, if one is running.
func (c *Config) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

// startWatch reloads the configuration whenever a file in BasePath that
// belongs to this config changes.
func (c *Config) startWatch() error {
	var startErr error
	c.watchOnce.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			startErr = fmt.Errorf("failed to create config watcher: %w", err)
			return
		}
		if err := w.Add(c.opts.BasePath); err != nil {
			_ = w.Close()
			startErr = fmt.Errorf("failed to watch %s: %w", c.opts.BasePath, err)
			return
		}
		c.watcher = w
		go c.watchLoop(w)
	})
	return startErr
}

func (c *Config) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if !c.ownsFile(e.Name) || !e.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if err := c.reload(); err != nil {
				fmt.Fprintf(os.Stderr, "config reload failed: %v\n", err)
				continue
			}
			if c.opts.OnChange != nil {
				c.opts.OnChange(e)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *Config) ownsFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, c.opts.FileName+".") && strings.HasSuffix(base, "."+c.opts.FileType)
}

func (c *Config) reload() error {
	instance, err := CreateConfig(c.opts)
	if err != nil {
		return err
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	for k, v := range c.overrides {
		instance.Set(k, v)
	}
	c.instance = instance
	return nil
}

// CreateConfig merges every config file that applies to the current mode,
// then layers environment variables on top.
func CreateConfig(opts ConfigOptions) (*viper.Viper, error) {
	configPaths := getConfigFilePaths(opts)
	if len(configPaths) == 0 && !opts.AllowMissing {
		return nil, fmt.Errorf("no valid configuration files found in path: %s", opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, configPath := range configPaths {
		tempV := viper.New()
		tempV.SetConfigFile(configPath)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}

		if err := v.MergeConfigMap(tempV.AllSettings()); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", configPath, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	applyEnvOverrides(v, opts.EnvPrefix)

	return v, nil
}

// applyEnvOverrides checks all known keys and overrides them with environment
// variables. AutomaticEnv alone does not reach Unmarshal for keys that are
// absent from every file, so the keys of the app config are listed too.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")

	keys := append(v.AllKeys(), knownKeys...)
	for _, key := range keys {
		// status_bar_height -> THUMBKIT_STATUS_BAR_HEIGHT
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}

		if envValue, ok := os.LookupEnv(envKey); ok && envValue != "" {
			v.Set(key, envValue)
		}
	}
}

func getConfigFilePaths(opts ConfigOptions) (configFiles []string) {
	fileNames := []string{
		opts.FileName,
		fmt.Sprintf("%s.local", opts.FileName),
	}
	for _, suffix := range modeSuffixes(CurrentMode()) {
		fileNames = append(fileNames,
			fmt.Sprintf("%s.%s", opts.FileName, suffix),
			fmt.Sprintf("%s.%s.local", opts.FileName, suffix),
		)
	}

	for _, fileName := range fileNames {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", fileName, opts.FileType))
		if isDir, exists, _ := utils.Exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}

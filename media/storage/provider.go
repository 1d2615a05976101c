package storage

import (
	"context"
	"fmt"
	"io"
)

// Provider publishes finished archives somewhere other than the output tree.
type Provider interface {
	Upload(ctx context.Context, input UploadInput) (UploadOutput, error)
	Exists(ctx context.Context, key string) (bool, error)
	Name() string
}

// UploadInput 上传输入
type UploadInput struct {
	File io.Reader
	// Key is the slash separated destination, relative to the provider root.
	Key         string
	Size        int64
	ContentType string
}

// UploadOutput 上传输出
type UploadOutput struct {
	URL  string
	Key  string
	Size int64
}

// Config selects and configures a provider. Type "none" disables publishing.
type Config struct {
	Type  string      `mapstructure:"type" default:"none" validate:"oneof=none local oss"`
	Local LocalConfig `mapstructure:"local"`
	OSS   OSSConfig   `mapstructure:"oss"`
}

type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
	// BaseURL prefixes returned URLs. Empty yields file:// URLs.
	BaseURL string `mapstructure:"base_url"`
}

type OSSConfig struct {
	// Endpoint, e.g. oss-cn-hangzhou.aliyuncs.com
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	// Domain is an optional custom or CDN domain for returned URLs.
	Domain string `mapstructure:"domain"`
	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix"`
}

// NewFromConfig builds the configured provider. It returns nil, nil for "none".
func NewFromConfig(cfg Config) (Provider, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil

	case "local":
		if cfg.Local.BasePath == "" {
			return nil, fmt.Errorf("local provider requires base_path")
		}
		return NewLocalProvider(cfg.Local.BasePath, cfg.Local.BaseURL)

	case "oss":
		o := cfg.OSS
		if o.Endpoint == "" || o.Bucket == "" {
			return nil, fmt.Errorf("oss provider requires endpoint and bucket")
		}
		if o.AccessKeyID == "" || o.AccessKeySecret == "" {
			return nil, fmt.Errorf("oss provider requires access_key_id and access_key_secret")
		}
		p, err := NewOSSProvider(o.Endpoint, o.AccessKeyID, o.AccessKeySecret, o.Bucket, o.Domain)
		if err != nil {
			return nil, err
		}
		p.prefix = o.Prefix
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}

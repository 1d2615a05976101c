package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider implements Provider for a local or mounted directory.
type LocalProvider struct {
	basePath string
	baseURL  string
}

// NewLocalProvider creates a new local storage provider
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (p *LocalProvider) fullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(p.basePath, clean), nil
}

// Upload copies the file under basePath, replacing an existing one.
func (p *LocalProvider) Upload(ctx context.Context, input UploadInput) (UploadOutput, error) {
	if err := ctx.Err(); err != nil {
		return UploadOutput{}, err
	}

	fullPath, err := p.fullPath(input.Key)
	if err != nil {
		return UploadOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return UploadOutput{}, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return UploadOutput{}, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(dst, input.File)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		return UploadOutput{}, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := os.Rename(dst.Name(), fullPath); err != nil {
		_ = os.Remove(dst.Name())
		return UploadOutput{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	key := filepath.ToSlash(strings.TrimPrefix(input.Key, "/"))
	return UploadOutput{
		URL:  p.url(key, fullPath),
		Key:  key,
		Size: size,
	}, nil
}

// Exists checks if a file exists
func (p *LocalProvider) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := p.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (p *LocalProvider) url(key, fullPath string) string {
	if p.baseURL == "" {
		abs, err := filepath.Abs(fullPath)
		if err != nil {
			abs = fullPath
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return fmt.Sprintf("%s/%s", p.baseURL, key)
}

func (p *LocalProvider) Name() string {
	return "local"
}

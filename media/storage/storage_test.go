package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderUpload(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(filepath.Join(dir, "published"), "https://cdn.example.com/")
	require.NoError(t, err)
	ctx := context.Background()

	out, err := p.Upload(ctx, UploadInput{File: strings.NewReader("zip bytes"), Key: "水杯/水杯_上架图.zip"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/水杯/水杯_上架图.zip", out.URL)
	assert.Equal(t, int64(9), out.Size)

	data, err := os.ReadFile(filepath.Join(dir, "published", "水杯", "水杯_上架图.zip"))
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(data))

	ok, err := p.Exists(ctx, "水杯/水杯_上架图.zip")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Exists(ctx, "missing.zip")
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-upload overwrites.
	_, err = p.Upload(ctx, UploadInput{File: strings.NewReader("v2"), Key: "水杯/水杯_上架图.zip"})
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "published", "水杯", "水杯_上架图.zip"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalProviderFileURL(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, "")
	require.NoError(t, err)

	out, err := p.Upload(context.Background(), UploadInput{File: strings.NewReader("x"), Key: "a.zip"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.URL, "file://"))
	assert.True(t, strings.HasSuffix(out.URL, "/a.zip"))
}

func TestLocalProviderRejectsEscapingKeys(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), "")
	require.NoError(t, err)

	_, err = p.Upload(context.Background(), UploadInput{File: strings.NewReader("x"), Key: "../outside.zip"})
	assert.Error(t, err)
}

func TestLocalProviderCancelled(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Upload(ctx, UploadInput{File: strings.NewReader("x"), Key: "a.zip"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFromConfig(t *testing.T) {
	p, err := NewFromConfig(Config{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewFromConfig(Config{Type: "local", Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())

	_, err = NewFromConfig(Config{Type: "local"})
	assert.Error(t, err)

	_, err = NewFromConfig(Config{Type: "oss", OSS: OSSConfig{Endpoint: "oss-cn-hangzhou.aliyuncs.com"}})
	assert.Error(t, err)

	_, err = NewFromConfig(Config{Type: "s3"})
	assert.Error(t, err)
}

func TestNewFromConfigOSS(t *testing.T) {
	p, err := NewFromConfig(Config{Type: "oss", OSS: OSSConfig{
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "id",
		AccessKeySecret: "secret",
		Bucket:          "listing-assets",
		Prefix:          "/shots/",
	}})
	require.NoError(t, err)
	require.Equal(t, "oss", p.Name())

	op := p.(*OSSProvider)
	assert.Equal(t, "https://listing-assets.oss-cn-hangzhou.aliyuncs.com", op.domain)
	assert.Equal(t, "shots/水杯/a.zip", op.objectKey("/水杯/a.zip"))
}

func TestPublicDomain(t *testing.T) {
	assert.Equal(t, "https://b.oss-cn-hangzhou.aliyuncs.com", publicDomain("https://oss-cn-hangzhou.aliyuncs.com", "b", ""))
	assert.Equal(t, "https://cdn.example.com", publicDomain("e", "b", "cdn.example.com/"))
	assert.Equal(t, "http://cdn.example.com", publicDomain("e", "b", "http://cdn.example.com"))
}

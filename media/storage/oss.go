package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSProvider implements Provider for Aliyun OSS
type OSSProvider struct {
	bucket     *oss.Bucket
	bucketName string
	domain     string
	prefix     string
}

// NewOSSProvider creates a new OSS storage provider.
// Endpoint: oss-cn-hangzhou.aliyuncs.com
func NewOSSProvider(endpoint, accessKeyID, accessKeySecret, bucketName, domain string) (*OSSProvider, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &OSSProvider{
		bucket:     bucket,
		bucketName: bucketName,
		domain:     publicDomain(endpoint, bucketName, domain),
	}, nil
}

// publicDomain returns the base URL objects are reachable under.
func publicDomain(endpoint, bucketName, domain string) string {
	if domain == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		return fmt.Sprintf("https://%s.%s", bucketName, host)
	}
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	return strings.TrimSuffix(domain, "/")
}

func (p *OSSProvider) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if p.prefix == "" {
		return key
	}
	return path.Join(strings.Trim(p.prefix, "/"), key)
}

// Upload puts the file as an object, overwriting an existing one.
func (p *OSSProvider) Upload(ctx context.Context, input UploadInput) (UploadOutput, error) {
	objectKey := p.objectKey(input.Key)

	opts := []oss.Option{oss.WithContext(ctx)}
	if input.ContentType != "" {
		opts = append(opts, oss.ContentType(input.ContentType))
	}
	if err := p.bucket.PutObject(objectKey, input.File, opts...); err != nil {
		return UploadOutput{}, fmt.Errorf("failed to upload to OSS: %w", err)
	}

	return UploadOutput{
		URL:  fmt.Sprintf("%s/%s", p.domain, objectKey),
		Key:  objectKey,
		Size: input.Size,
	}, nil
}

// Exists checks if an object exists in OSS
func (p *OSSProvider) Exists(ctx context.Context, key string) (bool, error) {
	return p.bucket.IsObjectExist(p.objectKey(key), oss.WithContext(ctx))
}

func (p *OSSProvider) Name() string {
	return "oss"
}

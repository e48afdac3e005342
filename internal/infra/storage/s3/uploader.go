package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader stores product imagery in an S3-compatible bucket and hands back
// the URL the catalog serves to clients.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}

// Config carries the connection settings for the image bucket.
type Config struct {
	Endpoint       string
	UseSSL         bool
	AccessKey      string
	SecretKey      string
	Bucket         string
	PublicEndpoint string
}

// Client uploads to MinIO or any S3-compatible store. The bucket is created
// lazily on first upload and opened for anonymous reads, since catalog
// images are public anyway.
type Client struct {
	bucket     string
	publicBase string
	client     *minio.Client
	logger     *slog.Logger

	initOnce sync.Once
	initErr  error
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	mc, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(cfg.PublicEndpoint)
	if base == "" {
		base = endpoint
	}
	return &Client{
		bucket:     bucket,
		publicBase: strings.TrimRight(base, "/"),
		client:     mc,
		logger:     logger,
	}, nil
}

func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := c.client.PutObject(ctx, c.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s/%s", c.publicBase, c.bucket, key)
	if c.logger != nil {
		c.logger.Info("image uploaded", "bucket", c.bucket, "key", key, "url", publicURL)
	}
	return publicURL, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	c.initOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.initErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			c.initErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, c.bucket)
		if err := c.client.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
			c.initErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return c.initErr
}

// hostOf strips the scheme; the minio constructor wants a bare host.
func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ Uploader = (*Client)(nil)

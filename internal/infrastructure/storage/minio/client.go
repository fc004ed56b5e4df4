// Package minio stores collection export bundles in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// exportRetentionDays bounds how long an export bundle is kept.
const exportRetentionDays = 7

// MinIOAPI is the subset of *minio.Client used here.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var ErrClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

// Client uploads objects to a single bucket.
type Client struct {
	api    MinIOAPI
	bucket string
	region string
	expiry time.Duration
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the configured endpoint and makes sure the bucket
// exists.
func NewClient(cfg config.StorageConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := NewClientWithAPI(api, cfg, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api MinIOAPI, cfg config.StorageConfig, log logging.Logger) *Client {
	applyDefaults(&cfg)
	return &Client{
		api:    api,
		bucket: cfg.Bucket,
		region: cfg.Region,
		expiry: cfg.PresignExpiry,
		logger: log.Named("minio"),
	}
}

func applyDefaults(cfg *config.StorageConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = config.DefaultStorageBucket
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = config.DefaultPresignExpiry
	}
}

// EnsureBucket creates the bucket when missing and sets its expiry rule.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check bucket existence")
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create bucket "+c.bucket)
		}
		c.logger.Info("Created bucket", logging.String("bucket", c.bucket))
	}

	rules := lifecycle.NewConfiguration()
	rules.Rules = []lifecycle.Rule{{
		ID:         "exports-cleanup",
		Status:     "Enabled",
		Expiration: lifecycle.Expiration{Days: exportRetentionDays},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.bucket, rules); err != nil {
		c.logger.Warn("Failed to set lifecycle for export bucket", logging.Err(err))
	}
	return nil
}

// Upload stores data under objectName.
func (c *Client) Upload(ctx context.Context, objectName string, data []byte, contentType string) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	_, err := c.api.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload "+objectName)
	}
	c.logger.Debug("Object uploaded", logging.String("object", objectName), logging.Int("size", len(data)))
	return nil
}

// PresignedURL returns a time-limited download URL for objectName.
func (c *Client) PresignedURL(ctx context.Context, objectName string) (string, error) {
	if c.isClosed() {
		return "", ErrClientClosed
	}
	u, err := c.api.PresignedGetObject(ctx, c.bucket, objectName, c.expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign "+objectName)
	}
	return u.String(), nil
}

// Remove deletes objectName.
func (c *Client) Remove(ctx context.Context, objectName string) error {
	if err := c.api.RemoveObject(ctx, c.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to remove "+objectName)
	}
	return nil
}

// HealthCheck lists buckets to verify the endpoint answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bosko/core/apperr"
	"bosko/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures a MinioStore.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	SignTTL   time.Duration
}

// MinioStore implements AssetStore on any S3-compatible endpoint.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	signTTL time.Duration
}

var _ AssetStore = (*MinioStore)(nil)

// NewMinioStore connects to the endpoint and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, opts Options) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	s := &MinioStore{client: client, bucket: opts.Bucket, signTTL: opts.SignTTL}
	if s.signTTL <= 0 {
		s.signTTL = 30 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
		logger.Info("created storage bucket", logger.String("bucket", opts.Bucket))
	}

	logger.Info("storage ready",
		logger.String("endpoint", opts.Endpoint),
		logger.String("bucket", opts.Bucket))
	return s, nil
}

// Bucket returns the bucket name.
func (s *MinioStore) Bucket() string {
	return s.bucket
}

// Put uploads body under key and returns a signed URL for it.
func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", classify("put", key, err)
	}
	return s.Sign(ctx, key, s.signTTL)
}

// Get reads the whole object.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.Stream(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	buf := bytes.NewBuffer(make([]byte, 0, obj.Size))
	if _, err := io.Copy(buf, obj.Body); err != nil {
		return nil, classify("get", key, err)
	}
	return buf.Bytes(), nil
}

// Stream opens the object for reading. The caller closes Body.
func (s *MinioStore) Stream(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify("get", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, classify("get", key, err)
	}
	return &Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

// Delete removes the object. S3 deletes are silent for missing keys, so the key is stat'ed first.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return classify("delete", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify("delete", key, err)
	}
	return nil
}

// Sign returns a presigned GET URL valid for ttl (the store default when ttl <= 0).
func (s *MinioStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.signTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", classify("sign", key, err)
	}
	return u.String(), nil
}

// classify maps a minio error to NotFound or Storage.
func classify(op, key string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return apperr.NotFound("object %s not found", key)
	}
	return apperr.Storage(op, err)
}

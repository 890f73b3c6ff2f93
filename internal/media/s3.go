package media

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/tubehub/tubehub-api/internal/config"
)

type uploadAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleteAPI interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements Store on top of an S3-compatible service.
type S3Store struct {
	uploader uploadAPI
	client   deleteAPI
	bucket   string
	prefix   string
	baseURL  string
	logger   *slog.Logger
}

// NewS3Store configures an uploader targeting the bucket in cfg.
func NewS3Store(ctx context.Context, cfg config.MediaConfig, logger *slog.Logger) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("media: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		o.UsePathStyle = true
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" && cfg.Endpoint != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return newS3Store(uploader, client, cfg.Bucket, cfg.Prefix, baseURL, logger), nil
}

func newS3Store(up uploadAPI, del deleteAPI, bucket, prefix, baseURL string, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{
		uploader: up,
		client:   del,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Upload stores the file at localPath under a fresh random key and removes
// the local copy afterwards.
func (s *S3Store) Upload(ctx context.Context, localPath string) (Asset, error) {
	defer s.removeLocal(localPath)

	if strings.TrimSpace(localPath) == "" {
		return Asset{}, fmt.Errorf("media: empty local path")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("media: open %s: %w", localPath, err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(localPath))
	key := path.Join(s.prefix, uuid.NewString()+ext)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return Asset{}, fmt.Errorf("media: upload %s: %w", key, err)
	}
	return Asset{URL: s.urlFor(key), PublicID: key}, nil
}

// Delete removes the object with the given key. An empty key is a no-op.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	key := strings.Trim(publicID, "/")
	if key == "" {
		return nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("media: delete %s: %w", key, err)
	}
	return nil
}

// PublicID returns the object key referenced by assetURL.
func (s *S3Store) PublicID(assetURL string) string {
	key := PublicIDFromURL(s.baseURL, assetURL)
	if s.baseURL == "" {
		// path-style URLs carry the bucket as their first segment
		key = strings.TrimPrefix(key, s.bucket+"/")
	}
	return key
}

func (s *S3Store) urlFor(key string) string {
	if s.baseURL == "" {
		return key
	}
	return s.baseURL + "/" + key
}

func (s *S3Store) removeLocal(p string) {
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove temp upload", "path", p, "err", err)
	}
}

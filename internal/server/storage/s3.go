// Package storage relocates generated images from the provider's short-lived
// URLs into the account-scoped object storage bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/netx"
	"github.com/dmitrijs2005/socialmaster/internal/retryx"
	"github.com/google/uuid"
)

const (
	defaultContentType = "image/jpeg"
	cacheControl       = "max-age=3600"
	defaultPresignTTL  = 7 * 24 * time.Hour
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the subset of *s3.Client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// GetPresigner is the subset of *s3.PresignClient used for download links.
type GetPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicBaseURL, when set, makes Relocate return
	// "{PublicBaseURL}/{Bucket}/{key}" instead of a presigned GET URL.
	PublicBaseURL string
	PresignTTL    time.Duration
}

// S3Store implements the image relocation step on an S3-compatible backend.
type S3Store struct {
	cfg       Config
	putter    ObjectPutter
	presigner GetPresigner
	http      *http.Client
	retry     retryx.Policy
	now       func() time.Time
}

// NewS3Store builds the AWS client from static credentials and cfg.Endpoint
// (MinIO in development).
func NewS3Store(ctx context.Context, cfg Config, httpClient *http.Client, retry retryx.Policy) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClients(cfg, client, s3.NewPresignClient(client), httpClient, retry), nil
}

func NewS3StoreWithClients(cfg Config, putter ObjectPutter, presigner GetPresigner, httpClient *http.Client, retry retryx.Policy) *S3Store {
	if httpClient == nil {
		httpClient = netx.NewClient(60 * time.Second)
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}
	return &S3Store{
		cfg:       cfg,
		putter:    putter,
		presigner: presigner,
		http:      httpClient,
		retry:     retry,
		now:       time.Now,
	}
}

// ObjectKey returns "{accountID}/{unix millis}-{uuid}.jpg".
func ObjectKey(accountID string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s.jpg", accountID, now.UnixMilli(), uuid.NewString())
}

// Relocate downloads sourceURL, stores it under the account's prefix and
// returns the durable URL of the stored object.
func (s *S3Store) Relocate(ctx context.Context, accountID, sourceURL string) (string, error) {
	var (
		body []byte
		ct   string
	)
	err := retryx.Do(ctx, s.retry, func(ctx context.Context) error {
		b, c, err := netx.Fetch(ctx, s.http, sourceURL)
		if err != nil {
			return err
		}
		body, ct = b, c
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch generated image: %w", err)
	}
	if ct == "" || !strings.HasPrefix(ct, "image/") {
		ct = defaultContentType
	}

	key := ObjectKey(accountID, s.now())
	if err := s.Put(ctx, key, body, ct); err != nil {
		return "", err
	}
	return s.URL(ctx, key)
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		CacheControl:  aws.String(cacheControl),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("put object %s: %w: %w", key, common.ErrTransientRemote, err)
	}
	return nil
}

// URL returns the public URL of key, or a presigned GET URL when no public
// base is configured.
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if s.cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), s.cfg.Bucket, key), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

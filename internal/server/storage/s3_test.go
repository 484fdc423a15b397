package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/retryx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	key string
	err error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	return &v4.PresignedHTTPRequest{URL: "https://s3.local/signed/" + f.key}, nil
}

var fast = retryx.Policy{Attempts: 2, BaseDelay: time.Millisecond}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("PNG"))
		case "/blob":
			_, _ = w.Write([]byte("RAW"))
		default:
			w.WriteHeader(http.StatusGone)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1714557600123)
	key := ObjectKey("acc1", now)
	assert.Regexp(t, regexp.MustCompile(`^acc1/1714557600123-[0-9a-f-]{36}\.jpg$`), key)
	assert.NotEqual(t, key, ObjectKey("acc1", now))
}

func TestRelocate_PublicURL(t *testing.T) {
	ts := imageServer(t)
	p := &fakePutter{}
	s := NewS3StoreWithClients(Config{Bucket: "post-images", PublicBaseURL: "https://cdn.example/"}, p, &fakePresigner{}, ts.Client(), fast)

	url, err := s.Relocate(context.Background(), "acc1", ts.URL+"/img.png")
	require.NoError(t, err)

	require.NotNil(t, p.in)
	key := aws.ToString(p.in.Key)
	assert.Equal(t, "https://cdn.example/post-images/"+key, url)
	assert.Equal(t, "post-images", aws.ToString(p.in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(p.in.ContentType))
	assert.Equal(t, "max-age=3600", aws.ToString(p.in.CacheControl))
	assert.Equal(t, "PNG", string(p.body))
	assert.Regexp(t, `^acc1/`, key)
}

func TestRelocate_PresignedURLAndDefaultContentType(t *testing.T) {
	ts := imageServer(t)
	p := &fakePutter{}
	pr := &fakePresigner{}
	s := NewS3StoreWithClients(Config{Bucket: "b"}, p, pr, ts.Client(), fast)

	url, err := s.Relocate(context.Background(), "acc1", ts.URL+"/blob")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/signed/"+pr.key, url)
	assert.Equal(t, "image/jpeg", aws.ToString(p.in.ContentType))
}

func TestRelocate_FetchFailureIsTerminal(t *testing.T) {
	ts := imageServer(t)
	p := &fakePutter{}
	s := NewS3StoreWithClients(Config{Bucket: "b"}, p, &fakePresigner{}, ts.Client(), fast)

	_, err := s.Relocate(context.Background(), "acc1", ts.URL+"/expired")
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
	assert.Nil(t, p.in)
}

func TestRelocate_PutFailure(t *testing.T) {
	ts := imageServer(t)
	s := NewS3StoreWithClients(Config{Bucket: "b"}, &fakePutter{err: errors.New("bucket gone")}, &fakePresigner{}, ts.Client(), fast)

	_, err := s.Relocate(context.Background(), "acc1", ts.URL+"/img.png")
	assert.ErrorIs(t, err, common.ErrTransientRemote)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestURL_PresignError(t *testing.T) {
	s := NewS3StoreWithClients(Config{Bucket: "b"}, &fakePutter{}, &fakePresigner{err: errors.New("no creds")}, nil, fast)
	_, err := s.URL(context.Background(), "k")
	assert.ErrorContains(t, err, "no creds")
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		return aws.Config{Region: lo.Region}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	s, err := NewS3Store(context.Background(), Config{Region: "eu-central-1", Endpoint: "http://127.0.0.1:9000", Bucket: "b"}, nil, fast)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}
	_, err := NewS3Store(context.Background(), Config{}, nil, fast)
	assert.ErrorContains(t, err, "boom")
}

// Package s3 stores repository keys as objects in an S3 compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/storage"
)

// Config holds configuration for the S3 backend.
type Config struct {
	// URL is s3://bucket/prefix/ or http(s)://endpoint/bucket/prefix/.
	URL string

	// Username and Password are used as static access and secret keys when
	// set; otherwise the SDK default credential chain applies.
	Username string
	Password string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint overrides the endpoint derived from URL.
	Endpoint string

	// ForcePathStyle forces path-style addressing (MinIO, Localstack).
	// http(s) URLs always use path style.
	ForcePathStyle bool
}

// Location is the parsed form of Config.URL.
type Location struct {
	Endpoint string
	Bucket   string
	Prefix   string
}

// ParseURL splits a repository URL into endpoint, bucket and key prefix.
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse s3 url %q: %w", raw, err)
	}
	var loc Location
	var rest string
	switch u.Scheme {
	case "s3":
		loc.Bucket = u.Host
		rest = u.Path
	case "http", "https":
		loc.Endpoint = u.Scheme + "://" + u.Host
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		loc.Bucket = bucket
		rest = prefix
	default:
		return Location{}, fmt.Errorf("s3 url %q: scheme must be s3, http or https", raw)
	}
	if loc.Bucket == "" {
		return Location{}, fmt.Errorf("s3 url %q: missing bucket", raw)
	}
	rest = strings.Trim(rest, "/")
	if rest != "" {
		loc.Prefix = rest + "/"
	}
	return loc, nil
}

type Store struct {
	client *s3.Client
	bucket string
	prefix string
	closed bool
	mu     sync.RWMutex
}

// New wraps an existing client.
func New(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// NewFromConfig builds a client from cfg and checks the bucket is reachable.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	loc, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = loc.Endpoint
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	} else if endpoint != "" {
		opts = append(opts, awsconfig.WithRegion("us-east-1"))
	}
	if cfg.Username != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Username, cfg.Password, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s := New(s3.NewFromConfig(awsCfg, s3Opts...), loc.Bucket, loc.Prefix)
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return nil, fmt.Errorf("s3 bucket %q: %w", s.bucket, err)
	}
	logger.Debug("s3 storage connected", logger.KeyBackend, endpoint, logger.KeyPath, loc.Bucket+"/"+loc.Prefix)
	return s, nil
}

func (s *Store) objectKey(key string) string {
	return s.prefix + storage.EncodeName(key)
}

func (s *Store) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if strings.Contains(name, "/") {
				continue
			}
			key, err := storage.DecodeName(name)
			if err != nil {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *Store) Store(ctx context.Context, key string, value []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %q: %w", key, err)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get object %q: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %q: %w", key, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("s3 delete object %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "StatusCode: 404")
}

// Package s3store keeps board documents in an S3-compatible bucket. The vault
// is a key prefix; board paths are appended to it.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/sprintboard/pkg/core"
)

// Scheme is the vault URI scheme handled by this package.
const Scheme = "s3"

// Config describes the bucket and how to reach it. Endpoint, AccessKey and
// SecretKey are optional; without them the default AWS chain applies.
type Config struct {
	Bucket       string
	Prefix       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Logger       *slog.Logger
}

// Store implements core.Store and core.Lister on top of S3.
type Store struct {
	client *s3.Client
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	reads  int
	writes int
}

var (
	_ core.Store  = (*Store)(nil)
	_ core.Lister = (*Store)(nil)
)

// IsURI reports whether vault names an S3 location.
func IsURI(vault string) bool {
	return strings.HasPrefix(vault, Scheme+"://")
}

// ParseURI splits "s3://bucket/some/prefix" into bucket and prefix.
func ParseURI(vault string) (bucket, prefix string, err error) {
	u, err := url.Parse(vault)
	if err != nil {
		return "", "", fmt.Errorf("invalid vault uri %q: %w", vault, err)
	}
	if u.Scheme != Scheme || u.Host == "" {
		return "", "", fmt.Errorf("invalid vault uri %q: expected s3://bucket[/prefix]", vault)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// New builds a store and its S3 client.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		if _, err := url.Parse(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
		}
		endpoint := cfg.Endpoint
		opts = append(opts, config.WithEndpointResolver(
			aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
			}),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		// Many S3-compatible servers reject the flexible checksum headers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Store{client: client, config: cfg, logger: logger}, nil
}

// Location returns the vault as an s3:// URI.
func (s *Store) Location() string {
	if s.config.Prefix == "" {
		return Scheme + "://" + s.config.Bucket
	}
	return Scheme + "://" + s.config.Bucket + "/" + s.config.Prefix
}

func (s *Store) key(op, name string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		return "", core.Errorf(core.KindIO, op, "empty document path")
	}
	if s.config.Prefix == "" {
		return clean, nil
	}
	return s.config.Prefix + "/" + clean, nil
}

// Read fetches the object behind name.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key("read board", name)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, core.NewError(core.KindNotFound, "read board", fmt.Errorf("s3://%s/%s", s.config.Bucket, key))
		}
		return nil, core.NewError(core.KindIO, "read board", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewError(core.KindIO, "read board", fmt.Errorf("error reading object: %w", err))
	}
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return data, nil
}

// Write stores data under name. A single PutObject replaces the object as a
// whole, so readers never observe a partial document.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	key, err := s.key("write board", name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return core.NewError(core.KindIO, "write board", err)
	}
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	s.logger.Debug("board uploaded", "bucket", s.config.Bucket, "key", key, "bytes", len(data))
	return nil
}

// List returns vault-relative paths of objects matching a doublestar pattern.
func (s *Store) List(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, core.Errorf(core.KindIO, "list boards", "invalid pattern %q", pattern)
	}
	prefix := ""
	if s.config.Prefix != "" {
		prefix = s.config.Prefix + "/"
	}

	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, core.NewError(core.KindIO, "list boards", err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if ok, _ := doublestar.Match(pattern, rel); ok {
				out = append(out, rel)
			}
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

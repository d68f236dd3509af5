// Package blob stores binary media objects in an S3-compatible service and
// resolves remote media over HTTP. Put never fails: on any upload problem it
// returns a clearly-marked placeholder URL so generation stages degrade
// instead of aborting.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/adreel/adreel/internal/config"
)

// PlaceholderPrefix marks URLs returned when an upload failed. Callers treat
// these as a non-fatal degraded outcome.
const PlaceholderPrefix = "placeholder://"

// Store is the byte-blob service the pipeline talks to.
type Store interface {
	// Put uploads content and returns its public URL, or a placeholder
	// URL on failure. It never returns an error.
	Put(ctx context.Context, data []byte, name, mimeType string) string
	// Fetch downloads a blob (or any HTTP-reachable media) as bytes.
	Fetch(ctx context.Context, url string) ([]byte, string, error)
	// Delete removes a blob, reporting whether the deletion happened.
	Delete(ctx context.Context, url string) bool
}

// S3Store implements Store against an S3-compatible object store.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	httpc    *http.Client
	bucket   string
	baseURL  string
}

// NewS3Store configures the uploader targeting the provided object store.
func NewS3Store(ctx context.Context, cfg config.Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.BlobBucket) == "" {
		return nil, fmt.Errorf("blob store: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.BlobRegion),
	}

	if strings.TrimSpace(cfg.BlobEndpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.BlobEndpoint,
					SigningRegion: cfg.BlobRegion,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Store{
		client:   client,
		uploader: uploader,
		httpc:    &http.Client{Timeout: 60 * time.Second},
		bucket:   cfg.BlobBucket,
		baseURL:  strings.TrimSuffix(cfg.BlobPublicBaseURL, "/"),
	}, nil
}

// Put uploads content to the configured bucket and returns a public URL.
// On failure it logs and returns a placeholder URL instead of an error.
func (s *S3Store) Put(ctx context.Context, data []byte, name, mimeType string) string {
	key := strings.TrimLeft(name, "/")
	if key == "" {
		key = fmt.Sprintf("unnamed-%d", time.Now().UnixNano())
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		slog.Error("blob upload failed, returning placeholder", "key", key, "error", err)
		return PlaceholderPrefix + key
	}

	if s.baseURL == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

// Fetch downloads the content at url and returns the bytes plus the
// reported content type.
func (s *S3Store) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, PlaceholderPrefix) {
		return nil, "", fmt.Errorf("blob fetch: %q is a placeholder, nothing to fetch", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("blob fetch %s: %w", url, err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("blob fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("blob fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("blob fetch %s: read body: %w", url, err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// Delete removes the blob behind url. Placeholder URLs and URLs outside the
// configured base are skipped. Returns true only when S3 confirmed deletion.
func (s *S3Store) Delete(ctx context.Context, url string) bool {
	key, ok := s.keyFromURL(url)
	if !ok {
		return false
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("blob delete failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *S3Store) keyFromURL(url string) (string, bool) {
	if url == "" || strings.HasPrefix(url, PlaceholderPrefix) {
		return "", false
	}
	if s.baseURL != "" && strings.HasPrefix(url, s.baseURL+"/") {
		return strings.TrimPrefix(url, s.baseURL+"/"), true
	}
	// Bare keys (no scheme) are stored as-is when no public base is set.
	if !strings.Contains(url, "://") {
		return url, true
	}
	return "", false
}

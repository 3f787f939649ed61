// Package objectstore lists objects in MinIO or any S3-compatible store.
package objectstore

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

// DefaultRegion is used when none is configured, so listing never needs a
// bucket-location round trip.
const DefaultRegion = "us-east-1"

// Config holds connection settings.
type Config struct {
	// Endpoint is host:port, optionally prefixed with http:// or https://.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	// UseSSL is implied by an https:// endpoint.
	UseSSL    bool
	Transport http.RoundTripper
}

// Validate checks the required settings.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if c.AccessKey == "" {
		missing = append(missing, "access_key")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if len(missing) > 0 {
		return core.ErrValidation(core.CodeMissingParams,
			"object store settings missing: "+strings.Join(missing, ", "))
	}
	return nil
}

// Lister implements core.ObjectLister on minio-go.
type Lister struct {
	client *minio.Client
}

// NewLister creates a lister for the configured store.
func NewLister(cfg Config) (*Lister, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newTransport()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    secure,
		Region:    region,
		Transport: transport,
	})
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidParam, "invalid object store endpoint "+cfg.Endpoint).WithCause(err)
	}
	return &Lister{client: client}, nil
}

// List returns every object under prefix, recursively, in key order.
func (l *Lister) List(ctx context.Context, bucket, prefix string) ([]core.ObjectInfo, error) {
	if bucket == "" {
		return nil, core.ErrValidation(core.CodeMissingParams, "bucket name is required")
	}

	var out []core.ObjectInfo
	for obj := range l.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, listError(bucket, obj.Err)
		}
		info := core.ObjectInfo{
			Name:        obj.Key,
			Size:        obj.Size,
			ETag:        obj.ETag,
			ContentType: obj.ContentType,
		}
		if !obj.LastModified.IsZero() {
			info.LastModified = obj.LastModified.UTC().Format(time.RFC3339)
		}
		out = append(out, info)
	}
	return out, nil
}

func listError(bucket string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case minio.NoSuchBucket:
		return core.ErrNotFound("bucket", bucket).WithCause(err)
	case minio.AccessDenied, "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return core.ErrAuth("listing bucket " + bucket + ": " + resp.Code).WithCause(err)
	}
	return fmt.Errorf("listing bucket %s: %w", bucket, err)
}

// splitEndpoint strips a URL scheme; https forces TLS.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	e := strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(e, "https://"):
		e, useSSL = strings.TrimPrefix(e, "https://"), true
	case strings.HasPrefix(e, "http://"):
		e, useSSL = strings.TrimPrefix(e, "http://"), false
	}
	return strings.TrimRight(e, "/"), useSSL
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

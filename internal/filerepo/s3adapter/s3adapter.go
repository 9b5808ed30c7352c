// Package s3adapter uploads files to S3-compatible object storage
// (AWS S3, MinIO). The resolved URL is either built from a public base
// URL or presigned for a configurable lifetime.
package s3adapter

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/localfile"
)

// Config holds object storage settings.
type Config struct {
	// Bucket receives the uploads.
	Bucket string

	// Region is required by the SDK even for MinIO endpoints.
	Region string

	// Endpoint overrides the AWS endpoint, e.g. http://127.0.0.1:9000
	// for MinIO. Empty means AWS.
	Endpoint string

	// AccessKey and SecretKey are static credentials
	// (MINIO_ROOT_USER / MINIO_ROOT_PASSWORD for MinIO).
	AccessKey string
	SecretKey string

	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// PublicURL, when set, resolves uploads as PublicURL/<key> instead
	// of a presigned GET.
	PublicURL string

	// PresignTTL bounds presigned GET URLs. Defaults to 15 minutes.
	PresignTTL time.Duration
}

// Adapter is an S3 upload adapter.
type Adapter struct {
	cfg     Config
	client  *s3.Client
	presign *s3.PresignClient
}

// New creates an S3 adapter with static credentials.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 adapter requires a bucket")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Adapter{
		cfg:     cfg,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// Upload implements the filerepo.Adapter interface.
func (a *Adapter) Upload(ctx context.Context, f localfile.File, progress func(pct int)) (filerepo.Response, error) {
	key := a.objectKey(f.Name)

	body := &progressReader{
		r:      bytes.NewReader(f.Bytes),
		total:  len(f.Bytes),
		report: progress,
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(int64(len(f.Bytes))),
	}
	if f.MIME != "" {
		input.ContentType = aws.String(f.MIME)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return filerepo.Response{}, fmt.Errorf("put object %s: %w", key, err)
	}

	resolved, err := a.resolveURL(ctx, key)
	if err != nil {
		return filerepo.Response{}, err
	}
	return filerepo.Response{Data: map[string]string{
		"url":    resolved,
		"bucket": a.cfg.Bucket,
		"key":    key,
		"name":   f.Name,
	}}, nil
}

// objectKey builds a date-partitioned key: prefix/yyyy/mm/dd/<uuid>/<name>.
func (a *Adapter) objectKey(name string) string {
	d := time.Now().UTC()
	key := fmt.Sprintf("%d/%02d/%02d/%s/%s", d.Year(), d.Month(), d.Day(), uuid.New(), name)
	if p := strings.Trim(a.cfg.KeyPrefix, "/"); p != "" {
		key = p + "/" + key
	}
	return key
}

func (a *Adapter) resolveURL(ctx context.Context, key string) (string, error) {
	if a.cfg.PublicURL != "" {
		return strings.TrimSuffix(a.cfg.PublicURL, "/") + "/" + escapeKey(key), nil
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// escapeKey percent-encodes each key segment, keeping the slashes.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type progressReader struct {
	r      *bytes.Reader
	total  int
	read   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += n
	if p.total > 0 && p.report != nil && n > 0 {
		p.report(p.read * 100 / p.total)
	}
	return n, err
}

// Seek lets the SDK rewind the body for signing and retries.
func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.read = int(pos)
	}
	return pos, err
}

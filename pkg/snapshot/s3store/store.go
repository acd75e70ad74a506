// Package s3store is the remote pkg/snapshot backend: snapshot blobs
// keyed by object key in an S3 (or S3-compatible) bucket, for sharing
// deterministic fixtures across CI runners.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vfscore/engine/pkg/snapshot"
)

// Store is an S3-backed snapshot.Store.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config configures a Store. Client is optional: when nil, New builds
// one from the default AWS SDK v2 credential chain.
type Config struct {
	Client *s3.Client
	Bucket string
	Prefix string

	// Endpoint, if set, points the client at an S3-compatible service
	// (e.g. Localstack, Cubbit DS3) instead of AWS itself.
	Endpoint string
	Region   string
}

// New constructs a Store, verifying bucket access before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket name is required")
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = buildClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3store: access bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func buildClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}),
		))
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("snapshot", "snapshot", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	}), nil
}

func (s *Store) key(id string) string {
	if s.prefix != "" {
		return s.prefix + id
	}
	return id
}

func (s *Store) Save(ctx context.Context, id string, body io.Reader) (snapshot.SnapshotRef, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.SnapshotRef{}, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return snapshot.SnapshotRef{}, fmt.Errorf("s3store: read snapshot body: %w", err)
	}

	key := s.key(id)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return snapshot.SnapshotRef{}, fmt.Errorf("s3store: put object %s: %w", key, err)
	}

	return snapshot.SnapshotRef{Key: key}, nil
}

func (s *Store) Load(ctx context.Context, ref snapshot.SnapshotRef) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: get object %s: %w", ref.Key, err)
	}
	return out.Body, nil
}

func (s *Store) Delete(ctx context.Context, ref snapshot.SnapshotRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	}); err != nil {
		return fmt.Errorf("s3store: delete object %s: %w", ref.Key, err)
	}
	return nil
}

var _ snapshot.Store = (*Store)(nil)

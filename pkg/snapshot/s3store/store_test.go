//go:build integration

package s3store_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/snapshot/s3store"
)

// setupTestBucket creates a fresh bucket against a Localstack (or other
// S3-compatible) endpoint and returns the endpoint plus a cleanup func.
func setupTestBucket(t *testing.T, bucket, endpoint string) func() {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint, HostnameImmutable: true, Source: aws.EndpointSourceCustom}, nil
			},
		)),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true })

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	return func() {
		list, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		for _, obj := range list.Contents {
			_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	}
}

func TestS3StoreSaveLoadDelete(t *testing.T) {
	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}
	bucket := fmt.Sprintf("vfscore-snapshot-test-%d", os.Getpid())

	cleanup := setupTestBucket(t, bucket, endpoint)
	defer cleanup()

	ctx := context.Background()
	store, err := s3store.New(ctx, s3store.Config{
		Bucket:   bucket,
		Endpoint: endpoint,
		Region:   "us-east-1",
		Prefix:   "snapshots/",
	})
	require.NoError(t, err)

	ref, err := store.Save(ctx, "file-1", strings.NewReader("snapshot body"))
	require.NoError(t, err)
	require.Equal(t, "snapshots/file-1", ref.Key)

	rc, err := store.Load(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "snapshot body", string(data))

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Load(ctx, ref)
	require.Error(t, err)
}

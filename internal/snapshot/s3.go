package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Blob.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Blob stores the document as a single S3 object. PutObject replaces the
// object atomically.
type S3Blob struct {
	client S3API
	bucket string
	key    string
}

// NewS3Blob returns a blob for bucket/key using client.
func NewS3Blob(client S3API, bucket, key string) *S3Blob {
	return &S3Blob{client: client, bucket: bucket, key: key}
}

// NewS3BlobFromEnv loads AWS credentials from the default chain.
func NewS3BlobFromEnv(ctx context.Context, region, bucket, prefix, name string) (*S3Blob, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Blob(s3.NewFromConfig(cfg), bucket, path.Join(prefix, name)), nil
}

// Location returns the s3:// URL of the object.
func (b *S3Blob) Location() string {
	return "s3://" + b.bucket + "/" + b.key
}

// Read downloads the object.
func (b *S3Blob) Read(ctx context.Context) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("get %s: %w", b.Location(), err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.Location(), err)
	}
	return data, nil
}

// Write uploads the object.
func (b *S3Blob) Write(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", b.Location(), err)
	}
	return nil
}

// Remove deletes the object. S3 deletes of missing keys succeed.
func (b *S3Blob) Remove(ctx context.Context) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("delete %s: %w", b.Location(), err)
	}
	return nil
}

// Exists issues a HeadObject.
func (b *S3Blob) Exists(ctx context.Context) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", b.Location(), err)
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

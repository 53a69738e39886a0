// Package s3 provides a volume backend on any S3-compatible object
// store via aws-sdk-go-v2. Folder paths map to key prefixes with an
// empty marker object per directory.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/volume"
)

func init() {
	volume.MustRegister("s3", func(ctx context.Context, raw map[string]any) (volume.Backend, error) {
		var cfg Config
		if err := mapstructure.Decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid s3 volume config: %w", err)
		}
		return NewFromConfig(ctx, cfg)
	})
}

// Config holds configuration for the S3 backend.
type Config struct {
	// Bucket is the S3 bucket objects are stored in. Required.
	Bucket string `mapstructure:"bucket"`

	// Region is the AWS region.
	Region string `mapstructure:"region"`

	// Endpoint overrides the S3 endpoint for S3-compatible stores
	// (MinIO, Localstack, ...).
	Endpoint string `mapstructure:"endpoint"`

	// KeyPrefix is prepended to every object key.
	KeyPrefix string `mapstructure:"key_prefix"`

	// AccessKeyID and SecretAccessKey set static credentials. When empty
	// the default AWS credential chain applies.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// ForcePathStyle switches to path-style addressing, required for
	// most S3-compatible stores.
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// Backend is an S3-backed implementation of volume.Backend.
type Backend struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// New creates an S3 backend from an existing client.
func New(client *awss3.Client, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &Backend{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

// NewFromConfig builds the AWS client from the configuration and creates
// the backend.
func NewFromConfig(ctx context.Context, cfg Config) (*Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true // Required for localstack/MinIO
		}
	})

	return New(client, cfg)
}

// objectKey maps an object path to its S3 key.
func (b *Backend) objectKey(path string) string {
	if b.keyPrefix == "" {
		return path
	}
	return b.keyPrefix + "/" + path
}

// isNotFoundError returns true if the error indicates the object doesn't exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}

	return false
}

// exists probes a key with HeadObject.
func (b *Backend) exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateFile uploads the contents of r to the object key for path.
func (b *Backend) CreateFile(ctx context.Context, path string, r io.Reader) error {
	key := b.objectKey(path)

	exists, err := b.exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to probe object %q: %w", key, err)
	}
	if exists {
		return volume.ErrAlreadyExists
	}

	_, err = b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return nil
}

// DeleteFile removes the object at path. S3 deletes are idempotent, so a
// missing object is not an error.
func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	key := b.objectKey(path)
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// RenameFile moves an object by server-side copy plus delete. S3 has no
// native rename.
func (b *Backend) RenameFile(ctx context.Context, oldPath, newPath string) error {
	oldKey := b.objectKey(oldPath)
	newKey := b.objectKey(newPath)

	exists, err := b.exists(ctx, oldKey)
	if err != nil {
		return fmt.Errorf("failed to probe object %q: %w", oldKey, err)
	}
	if !exists {
		return volume.ErrNotFound
	}

	exists, err = b.exists(ctx, newKey)
	if err != nil {
		return fmt.Errorf("failed to probe object %q: %w", newKey, err)
	}
	if exists {
		return volume.ErrAlreadyExists
	}

	_, err = b.client.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(url.PathEscape(b.bucket + "/" + oldKey)),
	})
	if err != nil {
		return fmt.Errorf("failed to copy object %q to %q: %w", oldKey, newKey, err)
	}

	_, err = b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(oldKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete source object %q after copy: %w", oldKey, err)
	}
	return nil
}

// CreateDir stores an empty marker object at the directory key.
func (b *Backend) CreateDir(ctx context.Context, path string) error {
	key := b.objectKey(path)

	exists, err := b.exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to probe object %q: %w", key, err)
	}
	if exists {
		return volume.ErrAlreadyExists
	}

	_, err = b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return fmt.Errorf("failed to put directory marker %q: %w", key, err)
	}
	return nil
}

// DeleteDir removes the directory marker and every object under the
// directory's key prefix, in batches of up to 1000 keys.
func (b *Backend) DeleteDir(ctx context.Context, path string) error {
	prefix := b.objectKey(path)

	paginator := awss3.NewListObjectsV2Paginator(b.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		out, err := b.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects under %q: %w", prefix, err)
		}
		for _, derr := range out.Errors {
			logger.Warn("failed to delete object in batch",
				"key", aws.ToString(derr.Key),
				"code", aws.ToString(derr.Code),
				"message", aws.ToString(derr.Message))
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("failed to delete %d objects under %q", len(out.Errors), prefix)
		}
	}

	return nil
}

// Local reports false: objects live in remote object storage.
func (b *Backend) Local() bool {
	return false
}

// HealthCheck verifies the bucket is reachable.
func (b *Backend) HealthCheck(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q not reachable: %w", b.bucket, err)
	}
	return nil
}

// Close releases nothing: the S3 client has no resources to free.
func (b *Backend) Close() error {
	return nil
}

var _ volume.Backend = (*Backend)(nil)

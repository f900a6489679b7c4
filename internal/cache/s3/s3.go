package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3pkg "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cachepkg "github.com/regenlabs/regen/internal/cache"
)

const metadataBackground = "regen-background"

// S3 stores each entry as a single object. PutObject replaces the object
// atomically, and the entry's LastModified is the object's own timestamp as
// reported by the storage medium.
type S3 struct {
	client *s3pkg.Client
	bucket string
}

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

func New(ctx context.Context, bucket string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &S3{
		client: s3pkg.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func NewFromConfig(ctx context.Context, config *Config) (*S3, error) {
	awsConfig := aws.Config{
		Region: config.Region,
	}

	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.AccessKeySecret,
			"",
		)
	}

	s3EndpointURL, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, err
	}

	client := s3pkg.NewFromConfig(awsConfig, func(options *s3pkg.Options) {
		options.EndpointResolverV2 = &s3EndpointResolver{url: s3EndpointURL}
	})

	_, err = client.CreateBucket(ctx, &s3pkg.CreateBucketInput{
		Bucket: aws.String(config.Bucket),
	})
	if err != nil {
		return nil, err
	}

	return &S3{
		client: client,
		bucket: config.Bucket,
	}, nil
}

func (s3 *S3) Get(ctx context.Context, key string) (cachepkg.Entry, error) {
	result, err := s3.client.GetObject(ctx, &s3pkg.GetObjectInput{
		Bucket: aws.String(s3.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return cachepkg.Entry{}, convertErr(err)
	}
	defer func() {
		_ = result.Body.Close()
	}()

	value, err := io.ReadAll(result.Body)
	if err != nil {
		return cachepkg.Entry{}, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	if result.LastModified == nil {
		return cachepkg.Entry{}, fmt.Errorf("%w: object %q carries no last-modified time",
			cachepkg.ErrCorrupted, key)
	}

	return cachepkg.Entry{
		Value:        value,
		LastModified: *result.LastModified,
	}, nil
}

func (s3 *S3) Set(ctx context.Context, key string, value []byte, background bool) error {
	_, err := s3.client.PutObject(ctx, &s3pkg.PutObjectInput{
		Bucket: aws.String(s3.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
		Metadata: map[string]string{
			metadataBackground: strconv.FormatBool(background),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put cache entry %q: %w", key, err)
	}

	return nil
}

func (s3 *S3) Delete(ctx context.Context, key string) error {
	_, err := s3.client.DeleteObject(ctx, &s3pkg.DeleteObjectInput{
		Bucket: aws.String(s3.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !errors.Is(convertErr(err), cachepkg.ErrNotFound) {
		return err
	}

	return nil
}

func convertErr(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey

	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return cachepkg.ErrNotFound
	}

	return err
}

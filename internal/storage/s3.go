package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"

	"github.com/vidfetch/api/internal/config"
	"github.com/vidfetch/api/internal/model"
)

const defaultPresignExpiry = time.Hour

// sniffLen is how much of a non-seekable body is buffered for content type
// detection.
const sniffLen = 3072

// objectAPI is the subset of *s3.Client the backend uses
type objectAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Backend stores videos in an S3 compatible bucket
type S3Backend struct {
	api           objectAPI
	presigner     presignAPI
	bucketName    string
	presignExpiry time.Duration
}

// NewS3Backend creates a backend for the configured bucket. Static
// credentials are used when set, otherwise the default AWS chain. A custom
// endpoint (R2, MinIO) switches to path-style addressing.
func NewS3Backend(ctx context.Context, cfg *config.S3Config) (*S3Backend, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("S3 configuration incomplete: bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Backend(client, s3.NewPresignClient(client), cfg.BucketName, cfg.PresignExpiry), nil
}

func newS3Backend(api objectAPI, presigner presignAPI, bucket string, expiry time.Duration) *S3Backend {
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &S3Backend{
		api:           api,
		presigner:     presigner,
		bucketName:    bucket,
		presignExpiry: expiry,
	}
}

func (b *S3Backend) Name() string {
	return "s3"
}

// Save uploads body under key
func (b *S3Backend) Save(ctx context.Context, key string, body io.Reader) error {
	if key == "" {
		return ErrInvalidName
	}

	contentType, body, err := detectContentType(body)
	if err != nil {
		return err
	}

	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// List returns the media objects in the bucket with presigned URLs
func (b *S3Backend) List(ctx context.Context) ([]model.VideoAsset, error) {
	paginator := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucketName),
	})

	var videos []model.VideoAsset
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !isMedia(key) {
				continue
			}
			url, err := b.URL(ctx, key)
			if err != nil {
				return nil, err
			}
			videos = append(videos, model.VideoAsset{
				Name:     stem(key),
				Filename: key,
				Size:     formatSize(aws.ToInt64(obj.Size)),
				URL:      url,
			})
		}
	}
	if videos == nil {
		videos = []model.VideoAsset{}
	}
	return videos, nil
}

// Delete removes the object. Missing objects report ErrNotFound.
func (b *S3Backend) Delete(ctx context.Context, filename string) error {
	if filename == "" {
		return ErrInvalidName
	}

	_, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(filename),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to stat S3 object: %w", err)
	}

	_, err = b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(filename),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// URL generates a presigned URL for temporary access
func (b *S3Backend) URL(ctx context.Context, filename string) (string, error) {
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(filename),
	}, s3.WithPresignExpires(b.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

// Ping checks the bucket is reachable with the configured credentials
func (b *S3Backend) Ping(ctx context.Context) error {
	_, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		return fmt.Errorf("bucket %s unreachable: %w", b.bucketName, err)
	}
	return nil
}

// detectContentType sniffs the body and returns a reader that still yields
// all of it.
func detectContentType(body io.Reader) (string, io.Reader, error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		mt, err := mimetype.DetectReader(rs)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read upload: %w", err)
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return "", nil, fmt.Errorf("failed to rewind upload: %w", err)
		}
		return mt.String(), rs, nil
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	header = header[:n]
	return mimetype.Detect(header).String(), io.MultiReader(bytes.NewReader(header), body), nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

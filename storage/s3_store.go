package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ciclus/rd-dashboard/config"
	"github.com/ciclus/rd-dashboard/utils"
)

// ObjectPutter is the part of the S3 client used by S3Store.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes photos to an S3-compatible bucket.
type S3Store struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

// NewS3Store builds the client from static credentials. Endpoint may point
// at any S3-compatible service.
func NewS3Store(ctx context.Context, cfg config.S3) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return NewS3StoreWithClient(client, cfg.Bucket, publicURL), nil
}

func NewS3StoreWithClient(client ObjectPutter, bucket, publicURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// Put overwrites any object already stored under key.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	utils.InfoLogger.Infof("photo %s uploaded to bucket %s", key, s.bucket)
	return s.publicURL + "/" + key, nil
}

// New picks the S3 store when credentials are configured and the local
// directory otherwise.
func New(ctx context.Context, cfg config.S3, uploadDir, localBaseURL string) (PhotoStore, error) {
	if cfg.Enabled() {
		return NewS3Store(ctx, cfg)
	}
	return NewLocalStore(uploadDir, localBaseURL), nil
}

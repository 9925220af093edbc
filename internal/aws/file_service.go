package aws

import (
	"context"
	"fmt"
	"gamewatch/internal/config"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// FileService uploads exported reports to S3
type FileService interface {
	// UploadFile stores body under prefix/name and returns its public URL
	UploadFile(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	TestConnection(ctx context.Context) error
}

type fileService struct {
	uploader *manager.Uploader
	s3       *s3.Client
	bucket   string
	region   string
	prefix   string
}

// NewFileService builds an S3 client from static credentials when they are
// set, falling back to the default credential chain otherwise
func NewFileService(ctx context.Context, cfg config.AWSConfig, prefix string) (FileService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AccessKey,
					SecretAccessKey: cfg.SecretKey,
				}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &fileService{
		uploader: manager.NewUploader(client),
		s3:       client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		prefix:   prefix,
	}, nil
}

func (s *fileService) UploadFile(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	key := path.Join(s.prefix, name)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("Failed to upload export")
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("Uploaded export")
	return url, nil
}

func (s *fileService) TestConnection(ctx context.Context) error {
	_, err := s.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", s.bucket).Msg("S3 connection test failed")
		return err
	}
	return nil
}

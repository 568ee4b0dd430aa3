package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tracker/internal/config"
)

// Uploader ships backup files to an S3-compatible bucket (R2 in practice).
type Uploader struct {
	client *s3.Client
	bucket string
}

// NewUploader builds an uploader from the backup settings, or returns nil
// when no bucket is configured.
func NewUploader(ctx context.Context, cfg *config.Config) (*Uploader, error) {
	if cfg.BackupBucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.BackupAccessKey, cfg.BackupSecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load backup storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BackupEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BackupEndpoint)
		}
	})
	return &Uploader{client: client, bucket: cfg.BackupBucket}, nil
}

// Upload writes the backup as a JSON object under its canonical file name and
// returns the object key.
func (u *Uploader) Upload(ctx context.Context, b *Backup) (string, error) {
	payload, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}

	key := b.Filename()
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	return key, nil
}

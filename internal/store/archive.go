package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/briefwire/curator/internal/config"
	"github.com/briefwire/curator/internal/models"
)

// Archiver mirrors assembled issues to an S3-compatible bucket (R2) for
// the downstream composition collaborators. Archiving is best effort; a
// failed upload never fails a run.
type Archiver struct {
	client *s3.Client
	bucket string
}

// NewArchiver builds an archiver from the R2 settings, or returns nil when
// no endpoint is configured.
func NewArchiver(ctx context.Context, cfg *config.Config) (*Archiver, error) {
	if cfg.R2Endpoint == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
	})

	return &Archiver{client: client, bucket: cfg.R2Bucket}, nil
}

// ArchiveIssue uploads the issue JSON under issues/<date>.json.
func (a *Archiver) ArchiveIssue(ctx context.Context, issue *models.Issue) error {
	data, err := json.MarshalIndent(issue, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal issue: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String("issues/" + issue.Date + ".json"),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload issue archive: %w", err)
	}
	return nil
}

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the subset of the S3 client used to archive reports.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores run reports as JSON objects at <prefix><run_id>.json.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger zerolog.Logger
}

func NewS3Archiver(logger zerolog.Logger, client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("component", "report-archiver").Logger(),
	}
}

// Key is the object key for a run.
func (a *S3Archiver) Key(runID string) string {
	return a.prefix + runID + ".json"
}

// Archive uploads the report.
func (a *S3Archiver) Archive(ctx context.Context, r *Report) error {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := a.Key(r.RunID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put report s3://%s/%s: %w", a.bucket, key, err)
	}

	a.logger.Info().Str("bucket", a.bucket).Str("key", key).Msg("archived run report")
	return nil
}

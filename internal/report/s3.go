package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spounge-ai/sysaudit/internal/domain"
)

// ObjectPutter is the part of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores the CSV report and a JSON summary of every pass under
// <prefix>/<yyyy>/<mm>/<dd>/<pass id>.{csv,json}.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

func NewS3Archiver(client ObjectPutter, bucket, prefix string, logger *slog.Logger) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// NewS3ArchiverFromConfig builds an archiver from a loaded AWS config.
func NewS3ArchiverFromConfig(cfg aws.Config, bucket, prefix string, logger *slog.Logger) *S3Archiver {
	return NewS3Archiver(s3.NewFromConfig(cfg), bucket, prefix, logger)
}

func (a *S3Archiver) Name() string { return "s3" }

func (a *S3Archiver) objectKey(report *domain.PassReport, ext string) string {
	day := report.StartedAt.UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, report.ID+ext)
}

func (a *S3Archiver) Publish(ctx context.Context, report *domain.PassReport) error {
	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, report.Findings()); err != nil {
		return err
	}

	summary := passSummary{PassReport: report}
	for _, l := range report.Ledgers {
		summary.Ledgers = append(summary.Ledgers, newLedgerMessage(report, l))
	}
	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal pass summary: %w", err)
	}

	csvKey := a.objectKey(report, ".csv")
	if err := a.put(ctx, csvKey, "text/csv", csvBuf.Bytes()); err != nil {
		return err
	}
	jsonKey := a.objectKey(report, ".json")
	if err := a.put(ctx, jsonKey, "application/json", jsonData); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "pass report archived", "bucket", a.bucket, "csv", csvKey, "summary", jsonKey)
	return nil
}

func (a *S3Archiver) put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
		Metadata:    map[string]string{"generator": "sysaudit"},
	})
	if err != nil {
		return fmt.Errorf("failed to put %s to S3: %w", key, err)
	}
	return nil
}

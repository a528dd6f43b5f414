// Package archive stores a copy of every fully saved plan snapshot in
// S3-compatible object storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/netx"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
	sc "github.com/dmitrijs2005/pcpboard/internal/server/config"
	"github.com/google/uuid"
)

const (
	presignExpiry = 5 * time.Minute
	contentType   = "application/json"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToPresignedURL
)

// S3Archiver uploads snapshots as JSON objects keyed by save date.
type S3Archiver struct {
	config *sc.Config
	logger logging.Logger
	client *http.Client
	now    func() time.Time
}

func NewS3Archiver(cfg *sc.Config, logger logging.Logger) *S3Archiver {
	return &S3Archiver{
		config: cfg,
		logger: logger.With("module", "archive"),
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// SnapshotKey returns "snapshots/YYYY/MM/DD/<uuid>.json" for t in UTC.
func SnapshotKey(t time.Time) string {
	d := t.UTC()
	return fmt.Sprintf("snapshots/%04d/%02d/%02d/%v.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (a *S3Archiver) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.config.S3RootUser,
			a.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if a.config.S3BaseEndpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(a.config.S3BaseEndpoint)
		// MinIO and most self-hosted stores expect path-style addressing
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// Archive uploads snap and returns after the object is stored.
func (a *S3Archiver) Archive(ctx context.Context, snap plan.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	pc, err := a.getPresignClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating presign client: %w", err)
	}

	bucket := a.config.S3Bucket
	key := SnapshotKey(a.now())
	ct := contentType

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &ct,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return fmt.Errorf("error presigning %s: %w", key, err)
	}

	if err := uploadToPresignedURL(ctx, a.client, req.URL, contentType, body); err != nil {
		return fmt.Errorf("error uploading %s: %w", key, err)
	}

	a.logger.Info(ctx, "snapshot archived", "bucket", bucket, "key", key, "bytes", len(body))
	return nil
}

// Package storage uploads finished audio artifacts to S3 and returns the
// public URL reported back to the job API. Keys are derived from the job
// id, so re-uploading the same job overwrites the same object instead of
// creating duplicates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

const contentTypeWAV = "audio/wav"

// s3API is the slice of the S3 client the uploader needs. The SDK client
// satisfies it and is safe for concurrent use by every worker.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds S3 connection settings for the uploader.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
}

// Uploader uploads audio artifacts to a single bucket.
type Uploader struct {
	client s3API
	bucket string
	region string
	logger *slog.Logger
}

// NewUploader builds an uploader backed by the AWS SDK using static
// credentials from the environment table.
func NewUploader(ctx context.Context, cfg Config, logger *slog.Logger) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// NewUploaderWithClient builds an uploader around an existing S3 API,
// primarily for tests.
func NewUploaderWithClient(client s3API, bucket, region string, logger *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		region: region,
		logger: logger,
	}
}

// ObjectKey returns the stable storage key for a job's audio.
func ObjectKey(jobID string) string {
	return "narrations/" + jobID + "/audio.wav"
}

// Upload puts the artifact into the bucket under the job's stable key and
// returns the object URL. Network failures and 5xx answers are retryable;
// credential and permission errors are fatal.
func (u *Uploader) Upload(ctx context.Context, artifact *domain.AudioArtifact, jobID string) (*domain.UploadResult, error) {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return nil, domain.Fatal(fmt.Errorf("%w: opening artifact: %v", domain.ErrUpload, err))
	}
	defer file.Close()

	key := ObjectKey(jobID)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(contentTypeWAV),
		ContentLength: aws.Int64(artifact.Size),
	})
	if err != nil {
		return nil, classifyUploadError(err)
	}

	result := &domain.UploadResult{
		URL:         fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key),
		Size:        artifact.Size,
		ContentType: contentTypeWAV,
	}

	u.logger.Info("Audio uploaded",
		slog.String("job_id", jobID),
		slog.String("key", key),
		slog.Int64("bytes", artifact.Size),
	)

	return result, nil
}

// Credential and permission error codes that retrying cannot fix.
var fatalS3Codes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"TokenRefreshRequired":  true,
	"AccountProblem":        true,
	"AllAccessDisabled":     true,
	"NoSuchBucket":          true,
	"InvalidBucketName":     true,
}

// classifyUploadError maps an SDK error into the retryable/fatal taxonomy.
func classifyUploadError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && fatalS3Codes[apiErr.ErrorCode()] {
		return domain.Fatal(fmt.Errorf("%w: %v", domain.ErrUpload, err))
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		if code == 401 || code == 403 {
			return domain.Fatal(fmt.Errorf("%w: %v", domain.ErrUpload, err))
		}
	}

	// Network failures, throttling and 5xx answers are worth retrying.
	return domain.Retryable(fmt.Errorf("%w: %v", domain.ErrUpload, err))
}

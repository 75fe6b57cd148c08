package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	appConfig "github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// supabaseS3Suffix is the S3 gateway path of a Supabase project
const supabaseS3Suffix = "/storage/v1/s3"

// S3Storage implements domain.StorageService on any S3-compatible store
// (Supabase S3 gateway, SeaweedFS, MinIO, AWS)
type S3Storage struct {
	client *s3.Client
	bucket string
	urls   publicURLs
	logger *zap.Logger
}

// NewS3Storage creates a new S3 adapter. Nothing is written to the store.
func NewS3Storage(ctx context.Context, cfg appConfig.StorageConfig, logger *zap.Logger) (*S3Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.Credential, "")),
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for most S3-compatible stores
		// S3-compatible gateways often reject the newer default checksum headers
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" || publicBase == cfg.Endpoint {
		publicBase = strings.TrimSuffix(strings.TrimRight(cfg.Endpoint, "/"), supabaseS3Suffix)
	}

	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		urls:   newPublicURLs(cfg.Bucket, publicBase),
		logger: logger,
	}, nil
}

// Upload saves a file under path unless an object already exists there
func (r *S3Storage) Upload(ctx context.Context, file *domain.ImageFile, path string) domain.UploadResult {
	ctx, span := otel.Tracer("s3").Start(ctx, "s3.PutObject")
	span.SetAttributes(attribute.String("storage.bucket", r.bucket), attribute.String("storage.path", path))
	defer span.End()

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(file.Data()),
		ContentLength: aws.Int64(int64(len(file.Data()))),
		ContentType:   aws.String(file.MimeType()),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("s3 upload failed", zap.String("path", path), zap.Error(err))
		if isPreconditionFailure(err) {
			return domain.Failuref("Upload failed: an object already exists at %s", path)
		}
		return domain.Failuref("Upload failed: %s", s3ErrorMessage(err))
	}

	return domain.Success(r.urls.URL(path))
}

// Delete removes the object at path. S3 deletes are silent for missing keys,
// so the object is looked up first to report not found.
func (r *S3Storage) Delete(ctx context.Context, path string) domain.OperationResult {
	ctx, span := otel.Tracer("s3").Start(ctx, "s3.DeleteObject")
	span.SetAttributes(attribute.String("storage.bucket", r.bucket), attribute.String("storage.path", path))
	defer span.End()

	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		span.RecordError(err)
		if isNotFound(err) {
			return domain.OperationResult{Success: false, Message: "Delete failed: object not found"}
		}
		return domain.OperationResult{Success: false, Message: "Delete failed: " + s3ErrorMessage(err)}
	}

	_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		span.RecordError(err)
		return domain.OperationResult{Success: false, Message: "Delete failed: " + s3ErrorMessage(err)}
	}

	return domain.OperationResult{Success: true, Message: "Image deleted successfully"}
}

// TestConnection checks the bucket exists with HeadBucket
func (r *S3Storage) TestConnection(ctx context.Context) domain.OperationResult {
	ctx, span := otel.Tracer("s3").Start(ctx, "s3.HeadBucket")
	span.SetAttributes(attribute.String("storage.bucket", r.bucket))
	defer span.End()

	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err != nil {
		span.RecordError(err)
		if isNotFound(err) {
			return domain.OperationResult{Success: false, Message: fmt.Sprintf("Bucket %q not found", r.bucket)}
		}
		return domain.OperationResult{Success: false, Message: "Connection failed: " + s3ErrorMessage(err)}
	}
	return domain.OperationResult{Success: true, Message: "Connection successful"}
}

// ExtractPathFromURL returns the object path of a public URL for this bucket
func (r *S3Storage) ExtractPathFromURL(rawURL string) (string, bool) {
	return r.urls.Extract(rawURL)
}

// OwnsURL reports whether rawURL looks like a public URL of this store
func (r *S3Storage) OwnsURL(rawURL string) bool {
	return r.urls.Owns(rawURL)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nb *types.NoSuchBucket
	if errors.As(err, &nb) {
		return true
	}
	var nk *types.NoSuchKey
	if errors.As(err, &nk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			return true
		}
	}
	return false
}

func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 412
	}
	return false
}

func s3ErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return apiErr.ErrorMessage()
	}
	return err.Error()
}

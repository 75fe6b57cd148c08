package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AzureBlobStorage implements domain.StorageService on an Azure Blob Storage container.
// Public URLs keep the "/storage/v1/object/public/{container}/{path}" contract and are
// expected to be served by a proxy or CDN at PublicBaseURL.
type AzureBlobStorage struct {
	client    *azblob.Client
	container string
	urls      publicURLs
	logger    *zap.Logger
}

// NewAzureBlobStorage creates an adapter authenticated with the storage account key
func NewAzureBlobStorage(cfg config.StorageConfig, logger *zap.Logger) (*AzureBlobStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.Credential)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(cfg.Endpoint, cred, &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Transport: &http.Client{Timeout: cfg.Timeout},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureBlobStorage{
		client:    client,
		container: cfg.Bucket,
		urls:      newPublicURLs(cfg.Bucket, cfg.PublicBaseURL),
		logger:    logger,
	}, nil
}

// Upload writes the blob with If-None-Match: * so an existing blob is never replaced
func (r *AzureBlobStorage) Upload(ctx context.Context, file *domain.ImageFile, path string) domain.UploadResult {
	ctx, span := otel.Tracer("azblob").Start(ctx, "azblob.UploadBuffer")
	span.SetAttributes(attribute.String("storage.bucket", r.container), attribute.String("storage.path", path))
	defer span.End()

	_, err := r.client.UploadBuffer(ctx, r.container, path, file.Data(), &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(file.MimeType()),
		},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("azure upload failed", zap.String("path", path), zap.Error(err))
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return domain.Failuref("Upload failed: an object already exists at %s", path)
		}
		return domain.Failuref("Upload failed: %s", azureErrorMessage(err))
	}

	return domain.Success(r.urls.URL(path))
}

// Delete removes the blob at path
func (r *AzureBlobStorage) Delete(ctx context.Context, path string) domain.OperationResult {
	ctx, span := otel.Tracer("azblob").Start(ctx, "azblob.DeleteBlob")
	span.SetAttributes(attribute.String("storage.bucket", r.container), attribute.String("storage.path", path))
	defer span.End()

	if _, err := r.client.DeleteBlob(ctx, r.container, path, nil); err != nil {
		span.RecordError(err)
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return domain.OperationResult{Success: false, Message: "Delete failed: object not found"}
		}
		return domain.OperationResult{Success: false, Message: "Delete failed: " + azureErrorMessage(err)}
	}
	return domain.OperationResult{Success: true, Message: "Image deleted successfully"}
}

// TestConnection reads the container properties
func (r *AzureBlobStorage) TestConnection(ctx context.Context) domain.OperationResult {
	ctx, span := otel.Tracer("azblob").Start(ctx, "azblob.GetContainerProperties")
	span.SetAttributes(attribute.String("storage.bucket", r.container))
	defer span.End()

	_, err := r.client.ServiceClient().NewContainerClient(r.container).GetProperties(ctx, nil)
	if err != nil {
		span.RecordError(err)
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return domain.OperationResult{Success: false, Message: fmt.Sprintf("Bucket %q not found", r.container)}
		}
		return domain.OperationResult{Success: false, Message: "Connection failed: " + azureErrorMessage(err)}
	}
	return domain.OperationResult{Success: true, Message: "Connection successful"}
}

// ExtractPathFromURL returns the blob path of a public URL for this container
func (r *AzureBlobStorage) ExtractPathFromURL(rawURL string) (string, bool) {
	return r.urls.Extract(rawURL)
}

// OwnsURL reports whether rawURL looks like a public URL of this container
func (r *AzureBlobStorage) OwnsURL(rawURL string) bool {
	return r.urls.Owns(rawURL)
}

// azureErrorMessage reduces a ResponseError to its service error code and status
func azureErrorMessage(err error) string {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Sprintf("%s (HTTP %d)", respErr.ErrorCode, respErr.StatusCode)
	}
	msg := err.Error()
	if line, _, found := strings.Cut(msg, "\n"); found {
		return strings.TrimSpace(line)
	}
	return msg
}

package service

import (
	"context"

	"github.com/mansoorceksport/imgpaste/internal/domain"
	"go.uber.org/zap"
)

// MessageNotOwned is reported when a URL does not belong to the configured bucket
const MessageNotOwned = "Image is not stored in the configured bucket"

// DeleteImageUseCase deletes an image referenced by its public URL or a markdown image
type DeleteImageUseCase struct {
	storage domain.StorageService
	logger  *zap.Logger
}

// NewDeleteImageUseCase creates a new delete use case
func NewDeleteImageUseCase(storage domain.StorageService, logger *zap.Logger) *DeleteImageUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeleteImageUseCase{storage: storage, logger: logger}
}

// Execute deletes the object behind ref. Only URLs of the configured bucket are accepted.
func (d *DeleteImageUseCase) Execute(ctx context.Context, ref string) domain.OperationResult {
	rawURL := domain.ParseMarkdownImage(ref)

	if !d.storage.OwnsURL(rawURL) {
		return domain.OperationResult{Success: false, Message: MessageNotOwned}
	}
	path, ok := d.storage.ExtractPathFromURL(rawURL)
	if !ok {
		return domain.OperationResult{Success: false, Message: MessageNotOwned}
	}

	result := d.storage.Delete(ctx, path)
	if result.Success {
		d.logger.Info("image deleted", zap.String("path", path))
	} else {
		d.logger.Warn("image delete failed", zap.String("path", path), zap.String("message", result.Message))
	}
	return result
}

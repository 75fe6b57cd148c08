package service

import (
	"context"
	"errors"

	"github.com/mansoorceksport/imgpaste/internal/domain"
	"go.uber.org/zap"
)

// LedgeredStorage records successful uploads and deletes in an UploadLedger.
// Ledger errors are logged and never change the storage outcome.
type LedgeredStorage struct {
	domain.StorageService
	ledger domain.UploadLedger
	logger *zap.Logger
}

// NewLedgeredStorage wraps storage. A nil ledger returns storage unchanged.
func NewLedgeredStorage(storage domain.StorageService, ledger domain.UploadLedger, logger *zap.Logger) domain.StorageService {
	if ledger == nil {
		return storage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgeredStorage{StorageService: storage, ledger: ledger, logger: logger}
}

// Upload delegates and records a success
func (s *LedgeredStorage) Upload(ctx context.Context, file *domain.ImageFile, path string) domain.UploadResult {
	result := s.StorageService.Upload(ctx, file, path)

	success, ok := result.(domain.UploadSuccess)
	if !ok {
		return result
	}

	err := s.ledger.Record(ctx, &domain.UploadRecord{
		Path:         path,
		URL:          success.URL,
		OriginalName: file.Name(),
		MimeType:     file.MimeType(),
		Size:         file.Size(),
	})
	if err != nil {
		s.logger.Error("failed to record upload", zap.String("path", path), zap.Error(err))
	}
	return result
}

// Delete delegates and drops the record of a deleted object
func (s *LedgeredStorage) Delete(ctx context.Context, path string) domain.OperationResult {
	result := s.StorageService.Delete(ctx, path)
	if !result.Success {
		return result
	}

	if err := s.ledger.DeleteByPath(ctx, path); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to remove upload record", zap.String("path", path), zap.Error(err))
	}
	return result
}

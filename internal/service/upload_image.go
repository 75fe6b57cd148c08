package service

import (
	"context"

	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/mansoorceksport/imgpaste/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentUploads bounds the goroutines started by ExecuteBatch
const maxConcurrentUploads = 4

// UploadImageUseCase validates an image, picks its storage path and uploads it
type UploadImageUseCase struct {
	storage domain.StorageService
	paths   domain.PathGenerator
	metrics *telemetry.UploadMetrics
	logger  *zap.Logger
}

// UploadOption configures an UploadImageUseCase
type UploadOption func(*UploadImageUseCase)

// WithUploadMetrics records every attempt on m
func WithUploadMetrics(m *telemetry.UploadMetrics) UploadOption {
	return func(u *UploadImageUseCase) {
		u.metrics = m
	}
}

// WithUploadLogger sets the logger
func WithUploadLogger(logger *zap.Logger) UploadOption {
	return func(u *UploadImageUseCase) {
		u.logger = logger
	}
}

// NewUploadImageUseCase creates a new upload use case
func NewUploadImageUseCase(storage domain.StorageService, paths domain.PathGenerator, opts ...UploadOption) *UploadImageUseCase {
	u := &UploadImageUseCase{
		storage: storage,
		paths:   paths,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute uploads an already validated file
func (u *UploadImageUseCase) Execute(ctx context.Context, file *domain.ImageFile) domain.UploadResult {
	path := u.paths.Generate(file.NormalizedName())
	result := u.storage.Upload(ctx, file, path)

	switch r := result.(type) {
	case domain.UploadSuccess:
		u.metrics.Record(ctx, telemetry.OutcomeSuccess, file.MimeType(), file.Size())
		u.logger.Info("image uploaded",
			zap.String("name", file.Name()),
			zap.String("path", path),
			zap.Int64("size", file.Size()),
		)
	case domain.UploadFailure:
		u.metrics.Record(ctx, telemetry.OutcomeFailed, file.MimeType(), file.Size())
		u.logger.Warn("image upload failed",
			zap.String("name", file.Name()),
			zap.String("path", path),
			zap.String("error", r.Err),
		)
	}
	return result
}

// ExecuteFromRaw validates params first. A validation error becomes a failure
// and storage is never contacted.
func (u *UploadImageUseCase) ExecuteFromRaw(ctx context.Context, params domain.ImageFileParams) domain.UploadResult {
	file, err := domain.NewImageFile(params)
	if err != nil {
		u.metrics.Record(ctx, telemetry.OutcomeRejected, params.MimeType, params.Size)
		u.logger.Info("image rejected", zap.String("name", params.Name), zap.Error(err))
		return domain.Failure(err.Error())
	}
	return u.Execute(ctx, file)
}

// ExecuteBatch uploads every file independently. results[i] belongs to batch[i].
func (u *UploadImageUseCase) ExecuteBatch(ctx context.Context, batch []domain.ImageFileParams) []domain.UploadResult {
	results := make([]domain.UploadResult, len(batch))

	var g errgroup.Group
	g.SetLimit(maxConcurrentUploads)
	for i, params := range batch {
		g.Go(func() error {
			results[i] = u.ExecuteFromRaw(ctx, params)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

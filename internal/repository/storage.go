package repository

import (
	"context"
	"fmt"

	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"go.uber.org/zap"
)

// NewStorageService builds the adapter for cfg.Provider.
// It returns domain.ErrNotConfigured when endpoint, credential or bucket is missing.
func NewStorageService(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (domain.StorageService, error) {
	if !cfg.IsConfigured() {
		return nil, domain.ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case config.ProviderSupabase, "":
		return NewSupabaseStorage(cfg, WithSupabaseLogger(logger)), nil
	case config.ProviderS3:
		s, err := NewS3Storage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderAzure:
		s, err := NewAzureBlobStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

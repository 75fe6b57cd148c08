package repository

import (
	"testing"
	"time"

	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageService(t *testing.T) {
	base := config.StorageConfig{
		Endpoint:    "https://abc.supabase.co",
		Credential:  "a2V5",
		Bucket:      "images",
		Region:      "us-east-1",
		AccessKeyID: "abc",
		AccountName: "notes",
		Timeout:     time.Second,
	}

	tests := []struct {
		provider string
		wantType any
	}{
		{config.ProviderSupabase, &SupabaseStorage{}},
		{config.ProviderS3, &S3Storage{}},
		{config.ProviderAzure, &AzureBlobStorage{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := base
			cfg.Provider = tt.provider
			svc, err := NewStorageService(t.Context(), cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, svc)
		})
	}
}

func TestNewStorageService_Errors(t *testing.T) {
	_, err := NewStorageService(t.Context(), config.StorageConfig{Bucket: "images"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	_, err = NewStorageService(t.Context(), config.StorageConfig{
		Provider: "ftp", Endpoint: "e", Credential: "c", Bucket: "b",
	}, nil)
	assert.ErrorContains(t, err, "unknown storage provider")
}

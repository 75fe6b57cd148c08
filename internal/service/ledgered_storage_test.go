package service

import (
	"errors"
	"testing"

	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, name string) *domain.ImageFile {
	t.Helper()
	f, err := domain.NewImageFile(pngParams(name))
	require.NoError(t, err)
	return f
}

func TestNewLedgeredStorage_NilLedger(t *testing.T) {
	storage := &stubStorage{}
	assert.Same(t, storage, NewLedgeredStorage(storage, nil, nil))
}

func TestLedgeredStorage_RecordsAndForgets(t *testing.T) {
	ledger := newMemoryLedger()
	storage := NewLedgeredStorage(&stubStorage{}, ledger, nil)
	ctx := t.Context()

	result := storage.Upload(ctx, pngImage(t, "cat.png"), "2024/06/15/cat.png")
	require.True(t, result.Succeeded())

	record, ok := ledger.records["2024/06/15/cat.png"]
	require.True(t, ok)
	assert.Equal(t, "https://mock/2024/06/15/cat.png", record.URL)
	assert.Equal(t, "cat.png", record.OriginalName)
	assert.Equal(t, domain.MimePNG, record.MimeType)
	assert.Equal(t, int64(5), record.Size)

	assert.True(t, storage.Delete(ctx, "2024/06/15/cat.png").Success)
	assert.Empty(t, ledger.records)

	// deleting an object that was never recorded still succeeds
	assert.True(t, storage.Delete(ctx, "untracked.png").Success)
}

func TestLedgeredStorage_FailedUploadNotRecorded(t *testing.T) {
	ledger := newMemoryLedger()
	storage := NewLedgeredStorage(&stubStorage{failWith: "Upload failed: nope"}, ledger, nil)

	result := storage.Upload(t.Context(), pngImage(t, "cat.png"), "cat.png")
	assert.False(t, result.Succeeded())
	assert.Empty(t, ledger.records)
}

func TestLedgeredStorage_LedgerErrorKeepsSuccess(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.err = errors.New("mongo down")
	storage := NewLedgeredStorage(&stubStorage{}, ledger, nil)
	ctx := t.Context()

	assert.Equal(t, domain.Success("https://mock/cat.png"), storage.Upload(ctx, pngImage(t, "cat.png"), "cat.png"))
	assert.True(t, storage.Delete(ctx, "cat.png").Success)
}

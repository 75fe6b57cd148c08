package repository

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func azureTestConfig() config.StorageConfig {
	return config.StorageConfig{
		Provider:      config.ProviderAzure,
		Endpoint:      "https://notes.blob.core.windows.net/",
		Credential:    "c2VjcmV0LWtleQ==",
		AccountName:   "notes",
		Bucket:        "images",
		PublicBaseURL: "https://img.example.com",
		Timeout:       time.Second,
	}
}

// fakeAzure answers the container and block blob calls the adapter makes
type fakeAzure struct {
	mu         sync.Mutex
	containers map[string]bool
	blobs      map[string]string // container/blob -> content type
}

func (f *fakeAzure) fail(w http.ResponseWriter, status int, code string) {
	w.Header().Set("x-ms-error-code", code)
	w.WriteHeader(status)
}

func (f *fakeAzure) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.HasPrefix(r.Header.Get("Authorization"), "SharedKey notes:") {
		f.fail(w, http.StatusForbidden, "AuthenticationFailed")
		return
	}

	container, name, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if !f.containers[container] {
		f.fail(w, http.StatusNotFound, "ContainerNotFound")
		return
	}
	key := container + "/" + name

	switch {
	case name == "" && r.URL.Query().Get("restype") == "container":
		w.Header().Set("ETag", `"0x8DC0000000000001"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPut:
		if _, exists := f.blobs[key]; exists && r.Header.Get("If-None-Match") == "*" {
			f.fail(w, http.StatusConflict, "BlobAlreadyExists")
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		f.blobs[key] = r.Header.Get("x-ms-blob-content-type")
		w.Header().Set("ETag", `"0x8DC0000000000002"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodDelete:
		if _, exists := f.blobs[key]; !exists {
			f.fail(w, http.StatusNotFound, "BlobNotFound")
			return
		}
		delete(f.blobs, key)
		w.WriteHeader(http.StatusAccepted)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestAzure(t *testing.T, container string) (*AzureBlobStorage, *fakeAzure) {
	t.Helper()
	fake := &fakeAzure{containers: map[string]bool{"images": true}, blobs: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := azureTestConfig()
	cfg.Endpoint = srv.URL + "/"
	cfg.Bucket = container
	storage, err := NewAzureBlobStorage(cfg, nil)
	require.NoError(t, err)
	return storage, fake
}

func TestAzureBlobStorage_UploadDeleteRoundTrip(t *testing.T) {
	storage, fake := newTestAzure(t, "images")
	ctx := t.Context()

	result := storage.Upload(ctx, pngFile(t, "cat.png"), "2024/06/15/abc.png")
	success, ok := result.(domain.UploadSuccess)
	require.True(t, ok, "unexpected result %#v", result)
	assert.Equal(t, "https://img.example.com/storage/v1/object/public/images/2024/06/15/abc.png", success.URL)
	assert.Equal(t, "image/png", fake.blobs["images/2024/06/15/abc.png"])

	path, ok := storage.ExtractPathFromURL(success.URL)
	require.True(t, ok)
	assert.Equal(t, "2024/06/15/abc.png", path)

	assert.Equal(t, domain.OperationResult{Success: true, Message: "Image deleted successfully"}, storage.Delete(ctx, path))
	assert.Empty(t, fake.blobs)
	assert.Equal(t, domain.OperationResult{Success: false, Message: "Delete failed: object not found"}, storage.Delete(ctx, path))
}

func TestAzureBlobStorage_UploadConflict(t *testing.T) {
	storage, fake := newTestAzure(t, "images")
	ctx := t.Context()

	require.True(t, storage.Upload(ctx, pngFile(t, "a.png"), "same.png").Succeeded())

	result := storage.Upload(ctx, pngFile(t, "b.png"), "same.png")
	require.False(t, result.Succeeded())
	assert.Equal(t, "Upload failed: an object already exists at same.png", result.(domain.UploadFailure).Err)
	assert.Len(t, fake.blobs, 1)
}

func TestAzureBlobStorage_TestConnection(t *testing.T) {
	storage, _ := newTestAzure(t, "images")
	assert.Equal(t, domain.OperationResult{Success: true, Message: "Connection successful"}, storage.TestConnection(t.Context()))

	missing, _ := newTestAzure(t, "missing")
	assert.Equal(t, domain.OperationResult{Success: false, Message: `Bucket "missing" not found`}, missing.TestConnection(t.Context()))

	result := missing.Upload(t.Context(), pngFile(t, "a.png"), "a.png")
	require.False(t, result.Succeeded())
	assert.Equal(t, "Upload failed: ContainerNotFound (HTTP 404)", result.(domain.UploadFailure).Err)
}

func TestNewAzureBlobStorage_InvalidKey(t *testing.T) {
	cfg := azureTestConfig()
	cfg.Credential = "not base64!"

	_, err := NewAzureBlobStorage(cfg, nil)
	assert.Error(t, err)
}

func TestAzureBlobStorage_URLs(t *testing.T) {
	storage, err := NewAzureBlobStorage(azureTestConfig(), nil)
	require.NoError(t, err)

	u := storage.urls.URL("2024/06/15/a.webp")
	assert.Equal(t, "https://img.example.com/storage/v1/object/public/images/2024/06/15/a.webp", u)
	assert.True(t, storage.OwnsURL(u))

	path, ok := storage.ExtractPathFromURL(u)
	require.True(t, ok)
	assert.Equal(t, "2024/06/15/a.webp", path)

	_, ok = storage.ExtractPathFromURL("https://notes.blob.core.windows.net/images/2024/06/15/a.webp")
	assert.False(t, ok)
}

func TestAzureErrorMessage(t *testing.T) {
	respErr := &azcore.ResponseError{ErrorCode: "AuthenticationFailed", StatusCode: 403}
	assert.Equal(t, "AuthenticationFailed (HTTP 403)", azureErrorMessage(fmt.Errorf("upload: %w", respErr)))

	assert.Equal(t, "dial tcp: connection refused", azureErrorMessage(errors.New("dial tcp: connection refused\nmore detail")))
	assert.Equal(t, "plain", azureErrorMessage(errors.New("plain")))
}

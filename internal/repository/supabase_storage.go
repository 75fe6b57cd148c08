package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 * 1024

// SupabaseStorage implements domain.StorageService against the Supabase Storage REST API
type SupabaseStorage struct {
	client   *http.Client
	endpoint string
	key      string
	bucket   string
	urls     publicURLs
	logger   *zap.Logger
}

// SupabaseOption configures a SupabaseStorage
type SupabaseOption func(*SupabaseStorage)

// WithHTTPClient replaces the instrumented default client
func WithHTTPClient(client *http.Client) SupabaseOption {
	return func(s *SupabaseStorage) {
		s.client = client
	}
}

// WithSupabaseLogger sets the logger
func WithSupabaseLogger(logger *zap.Logger) SupabaseOption {
	return func(s *SupabaseStorage) {
		s.logger = logger
	}
}

// NewSupabaseStorage creates a Supabase Storage adapter. The configuration is
// captured at construction; build a new adapter to change it.
func NewSupabaseStorage(cfg config.StorageConfig, opts ...SupabaseOption) *SupabaseStorage {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	s := &SupabaseStorage{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		endpoint: endpoint,
		key:      cfg.Credential,
		bucket:   cfg.Bucket,
		urls:     newPublicURLs(cfg.Bucket, cfg.PublicBaseURL, endpoint),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// supabaseError is the error body returned by the storage API.
// statusCode arrives as a string on some versions and a number on others.
type supabaseError struct {
	StatusCode any    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// Upload stores file at path. An existing object at path is never replaced.
func (s *SupabaseStorage) Upload(ctx context.Context, file *domain.ImageFile, path string) domain.UploadResult {
	ctx, span := otel.Tracer("supabase").Start(ctx, "supabase.Upload")
	span.SetAttributes(
		attribute.String("storage.bucket", s.bucket),
		attribute.String("storage.path", path),
		attribute.Int64("storage.size", file.Size()),
	)
	defer span.End()

	req, err := s.newRequest(ctx, http.MethodPost, s.objectURL(path), bytes.NewReader(file.Data()))
	if err != nil {
		span.RecordError(err)
		return domain.Failuref("Upload failed: %v", err)
	}
	req.Header.Set("Content-Type", file.MimeType())
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		s.logger.Warn("supabase upload request failed", zap.String("path", path), zap.Error(err))
		return domain.Failuref("Upload failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readSupabaseError(resp)
		span.SetStatus(codes.Error, apiErr.message())
		s.logger.Warn("supabase upload rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.message()),
		)
		return domain.Failuref("Upload failed: %s", apiErr.message())
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return domain.Success(s.urls.URL(path))
}

// Delete removes the object at path. Supabase answers 200 with an empty list when
// nothing matched, which is reported as not found.
func (s *SupabaseStorage) Delete(ctx context.Context, path string) domain.OperationResult {
	ctx, span := otel.Tracer("supabase").Start(ctx, "supabase.Delete")
	span.SetAttributes(attribute.String("storage.bucket", s.bucket), attribute.String("storage.path", path))
	defer span.End()

	body, err := json.Marshal(map[string][]string{"prefixes": {path}})
	if err != nil {
		return domain.OperationResult{Success: false, Message: fmt.Sprintf("Delete failed: %v", err)}
	}

	req, err := s.newRequest(ctx, http.MethodDelete, s.endpoint+"/storage/v1/object/"+url.PathEscape(s.bucket), bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return domain.OperationResult{Success: false, Message: fmt.Sprintf("Delete failed: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return domain.OperationResult{Success: false, Message: fmt.Sprintf("Delete failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readSupabaseError(resp)
		span.SetStatus(codes.Error, apiErr.message())
		return domain.OperationResult{Success: false, Message: "Delete failed: " + apiErr.message()}
	}

	var deleted []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&deleted); err != nil {
		span.RecordError(err)
		return domain.OperationResult{Success: false, Message: fmt.Sprintf("Delete failed: unreadable response: %v", err)}
	}
	if len(deleted) == 0 {
		return domain.OperationResult{Success: false, Message: "Delete failed: object not found"}
	}

	return domain.OperationResult{Success: true, Message: "Image deleted successfully"}
}

// TestConnection checks that the configured bucket exists by fetching its metadata
func (s *SupabaseStorage) TestConnection(ctx context.Context) domain.OperationResult {
	ctx, span := otel.Tracer("supabase").Start(ctx, "supabase.TestConnection")
	span.SetAttributes(attribute.String("storage.bucket", s.bucket))
	defer span.End()

	req, err := s.newRequest(ctx, http.MethodGet, s.endpoint+"/storage/v1/bucket/"+url.PathEscape(s.bucket), nil)
	if err != nil {
		return domain.OperationResult{Success: false, Message: fmt.Sprintf("Connection failed: %v", err)}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return domain.OperationResult{Success: false, Message: fmt.Sprintf("Connection failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readSupabaseError(resp)
		span.SetStatus(codes.Error, apiErr.message())
		if resp.StatusCode == http.StatusNotFound || apiErr.isNotFound() {
			return domain.OperationResult{Success: false, Message: fmt.Sprintf("Bucket %q not found", s.bucket)}
		}
		return domain.OperationResult{Success: false, Message: "Connection failed: " + apiErr.message()}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return domain.OperationResult{Success: true, Message: "Connection successful"}
}

// ExtractPathFromURL returns the object path of a public URL for this bucket
func (s *SupabaseStorage) ExtractPathFromURL(rawURL string) (string, bool) {
	return s.urls.Extract(rawURL)
}

// OwnsURL reports whether rawURL looks like a public URL of this project
func (s *SupabaseStorage) OwnsURL(rawURL string) bool {
	return s.urls.Owns(rawURL)
}

func (s *SupabaseStorage) objectURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.endpoint + "/storage/v1/object/" + url.PathEscape(s.bucket) + "/" + strings.Join(segments, "/")
}

func (s *SupabaseStorage) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)
	return req, nil
}

func readSupabaseError(resp *http.Response) *supabaseError {
	apiErr := &supabaseError{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, apiErr); err != nil || (apiErr.Message == "" && apiErr.Error == "") {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}
	if apiErr.StatusCode == nil {
		apiErr.StatusCode = resp.StatusCode
	}
	return apiErr
}

func (e *supabaseError) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (e *supabaseError) isNotFound() bool {
	if fmt.Sprint(e.StatusCode) == "404" {
		return true
	}
	msg := strings.ToLower(e.Message + " " + e.Error)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

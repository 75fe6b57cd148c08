package handler

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/mansoorceksport/imgpaste/internal/service"
	"github.com/mansoorceksport/imgpaste/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ImageHandler handles HTTP requests for image operations.
// A nil storage means uploads are not configured.
type ImageHandler struct {
	storage domain.StorageService
	uploads *service.UploadImageUseCase
	deletes *service.DeleteImageUseCase
	ledger  domain.UploadLedger
	status  StatusCache
}

// StatusCache drops a cached storage status so the next check reaches the provider
type StatusCache interface {
	Invalidate(ctx context.Context) error
}

// NewImageHandler creates a new image handler
func NewImageHandler(
	storage domain.StorageService,
	uploads *service.UploadImageUseCase,
	deletes *service.DeleteImageUseCase,
	ledger domain.UploadLedger,
) *ImageHandler {
	return &ImageHandler{
		storage: storage,
		uploads: uploads,
		deletes: deletes,
		ledger:  ledger,
	}
}

// WithStatusCache lets GET /v1/storage/status?refresh=true bypass a cached result
func (h *ImageHandler) WithStatusCache(cache StatusCache) *ImageHandler {
	h.status = cache
	return h
}

// uploadItem is the per-file entry of an upload response
type uploadItem struct {
	Name     string `json:"name"`
	Success  bool   `json:"success"`
	URL      string `json:"url,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Error    string `json:"error,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

type deleteRequest struct {
	URL string `json:"url"`
}

// Configured reports whether storage is available
func (h *ImageHandler) Configured() bool {
	return h.storage != nil
}

// Upload handles POST /v1/images
func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	if !h.Configured() {
		return notConfigured(c)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid multipart form: " + err.Error(),
		})
	}

	files := form.File["image"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "missing 'image' field in form data",
		})
	}
	alt := c.FormValue("alt")

	batch := make([]domain.ImageFileParams, len(files))
	for i, fh := range files {
		params, err := readPart(fh)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "failed to read uploaded file " + fh.Filename,
			})
		}
		batch[i] = params
	}

	results := h.uploads.ExecuteBatch(c.UserContext(), batch)

	items := make([]uploadItem, len(results))
	succeeded := 0
	for i, result := range results {
		item := uploadItem{Name: batch[i].Name}
		switch r := result.(type) {
		case domain.UploadSuccess:
			succeeded++
			item.Success = true
			item.URL = r.URL
			item.Markdown = r.Markdown(alt)
		case domain.UploadFailure:
			item.Error = r.Err
			item.Comment = r.Comment()
		}
		items[i] = item
	}

	telemetry.SetSpanAttributes(c,
		attribute.Int("upload.files", len(items)),
		attribute.Int("upload.succeeded", succeeded),
	)

	status := fiber.StatusOK
	switch {
	case succeeded == 0:
		status = fiber.StatusUnprocessableEntity
	case succeeded < len(items):
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"success": succeeded == len(items),
		"data":    items,
	})
}

// Delete handles DELETE /v1/images
func (h *ImageHandler) Delete(c *fiber.Ctx) error {
	if !h.Configured() {
		return notConfigured(c)
	}

	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "url is required",
		})
	}

	result := h.deletes.Execute(c.UserContext(), req.URL)
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   result.Message,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": result.Message,
	})
}

// Owned handles GET /v1/images/owned?url=
func (h *ImageHandler) Owned(c *fiber.Ctx) error {
	if !h.Configured() {
		return notConfigured(c)
	}

	rawURL := domain.ParseMarkdownImage(c.Query("url"))
	owned := h.storage.OwnsURL(rawURL)
	path, ok := h.storage.ExtractPathFromURL(rawURL)

	resp := fiber.Map{"owned": owned && ok}
	if owned && ok {
		resp["path"] = path
	}
	return c.JSON(resp)
}

// StorageStatus handles GET /v1/storage/status
func (h *ImageHandler) StorageStatus(c *fiber.Ctx) error {
	if !h.Configured() {
		return notConfigured(c)
	}

	if h.status != nil && c.QueryBool("refresh") {
		if err := h.status.Invalidate(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "failed to refresh storage status: "+err.Error())
		}
	}

	result := h.storage.TestConnection(c.UserContext())
	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(result)
}

// List handles GET /v1/images
func (h *ImageHandler) List(c *fiber.Ctx) error {
	if h.ledger == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "upload history is not enabled",
		})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	records, err := h.ledger.ListRecent(c.UserContext(), int64(limit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to list uploads",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
	})
}

func notConfigured(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"error":   domain.ErrNotConfigured.Error(),
	})
}

// readPart loads a multipart file. The part's Content-Type wins; the file extension
// is only consulted when the client sent none.
func readPart(fh *multipart.FileHeader) (domain.ImageFileParams, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.ImageFileParams{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.ImageFileParams{}, err
	}

	mimeType := fh.Header.Get(fiber.HeaderContentType)
	if mimeType == "" || mimeType == fiber.MIMEOctetStream {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); byExt != "" {
			mimeType = byExt
		}
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}

	return domain.ImageFileParams{
		Name:     fh.Filename,
		MimeType: mimeType,
		Data:     data,
		Size:     int64(len(data)),
	}, nil
}

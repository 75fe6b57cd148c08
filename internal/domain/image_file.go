package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxImageSize is the largest accepted payload in bytes (10MB)
const MaxImageSize int64 = 10 * 1024 * 1024

// Supported image MIME types
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeGIF  = "image/gif"
	MimeWebP = "image/webp"
)

// SupportedMimeTypes lists accepted types in the order they are reported to users
var SupportedMimeTypes = []string{MimePNG, MimeJPEG, MimeGIF, MimeWebP}

var mimeToExtension = map[string]string{
	MimePNG:  "png",
	MimeJPEG: "jpg",
	MimeGIF:  "gif",
	MimeWebP: "webp",
}

var (
	originalExtPattern = regexp.MustCompile(`\.[^.]+$`)
	whitespacePattern  = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	unsafeCharPattern  = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRunPattern   = regexp.MustCompile(`-+`)
)

// ImageFileParams is the raw, untrusted input for an ImageFile
type ImageFileParams struct {
	Name     string
	MimeType string
	Data     []byte
	Size     int64
}

// ImageFile is a validated image payload. The zero value is not valid;
// use NewImageFile.
type ImageFile struct {
	name           string
	mimeType       string
	data           []byte
	size           int64
	extension      string
	normalizedName string
}

// NewImageFile validates params and returns a trusted ImageFile.
// It fails with a *ValidationError for an unsupported MIME type or an oversized payload.
func NewImageFile(params ImageFileParams) (*ImageFile, error) {
	ext, ok := mimeToExtension[params.MimeType]
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"Unsupported MIME type: %s. Supported types: %s",
			params.MimeType, strings.Join(SupportedMimeTypes, ", "),
		)}
	}

	if params.Size > MaxImageSize {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"File size %d bytes exceeds maximum allowed size of %d bytes (10MB)",
			params.Size, MaxImageSize,
		)}
	}

	return &ImageFile{
		name:           params.Name,
		mimeType:       params.MimeType,
		data:           params.Data,
		size:           params.Size,
		extension:      ext,
		normalizedName: normalizeName(params.Name, ext),
	}, nil
}

// IsSupportedMimeType reports whether mimeType can be turned into an ImageFile
func IsSupportedMimeType(mimeType string) bool {
	_, ok := mimeToExtension[mimeType]
	return ok
}

func (f *ImageFile) Name() string           { return f.name }
func (f *ImageFile) MimeType() string       { return f.mimeType }
func (f *ImageFile) Data() []byte           { return f.data }
func (f *ImageFile) Size() int64            { return f.size }
func (f *ImageFile) Extension() string      { return f.extension }
func (f *ImageFile) NormalizedName() string { return f.normalizedName }

// normalizeName turns an arbitrary filename into "<slug>.<ext>".
// The extension always comes from the validated MIME type.
func normalizeName(name, ext string) string {
	base := originalExtPattern.ReplaceAllString(name, "")
	base = strings.ToLower(base)
	base = whitespacePattern.ReplaceAllString(base, "-")
	base = unsafeCharPattern.ReplaceAllString(base, "")
	base = hyphenRunPattern.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = "image"
	}
	return base + "." + ext
}

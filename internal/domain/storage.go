package domain

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// PublicObjectMarker is the path segment that precedes "{bucket}/{path}" in public object URLs
const PublicObjectMarker = "/storage/v1/object/public/"

var markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

// OperationResult reports the outcome of a storage operation that returns no value
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PathGenerator produces a storage path for a file. Implementations decide the layout
// (date partitioned, flat, per user) and must not return the same path twice.
type PathGenerator interface {
	Generate(filename string) string
}

// StorageService is the contract every object-storage backend implements.
// None of its methods return errors: backend failures are reported as data.
type StorageService interface {
	// Upload writes file to path without overwriting an existing object and
	// returns the object's public URL.
	Upload(ctx context.Context, file *ImageFile, path string) UploadResult

	// Delete removes the object at path.
	Delete(ctx context.Context, path string) OperationResult

	// TestConnection checks credentials and that the bucket exists, without writing.
	TestConnection(ctx context.Context) OperationResult

	// ExtractPathFromURL returns the object path for a public URL issued by this
	// backend. URLs for other buckets or hosts are rejected.
	ExtractPathFromURL(rawURL string) (string, bool)

	// OwnsURL is a cheap check that rawURL looks like one of ours.
	OwnsURL(rawURL string) bool
}

// PublicObjectURL joins a base URL, bucket and path into a public object URL
func PublicObjectURL(baseURL, bucket, path string) string {
	return strings.TrimRight(baseURL, "/") + PublicObjectMarker + bucket + "/" + strings.TrimLeft(path, "/")
}

// SplitPublicObjectURL parses "{base}/storage/v1/object/public/{bucket}/{path}".
// Query strings and fragments are dropped and the path is percent-decoded.
func SplitPublicObjectURL(rawURL string) (base, bucket, path string, ok bool) {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}

	idx := strings.Index(rawURL, PublicObjectMarker)
	if idx < 0 {
		return "", "", "", false
	}

	rest := rawURL[idx+len(PublicObjectMarker):]
	bucket, escaped, found := strings.Cut(rest, "/")
	if !found || bucket == "" || escaped == "" {
		return "", "", "", false
	}

	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", "", "", false
	}
	return rawURL[:idx], bucket, path, true
}

// ParseMarkdownImage returns the URL of the first markdown image reference in s.
// A bare URL is returned unchanged.
func ParseMarkdownImage(s string) string {
	s = strings.TrimSpace(s)
	if m := markdownImagePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

package repository

import (
	"strings"

	"github.com/mansoorceksport/imgpaste/internal/domain"
)

// publicURLs resolves and parses public object URLs for one bucket.
// bases holds every origin the bucket is served from (public base first).
type publicURLs struct {
	bucket string
	bases  []string
}

func newPublicURLs(bucket string, bases ...string) publicURLs {
	p := publicURLs{bucket: bucket}
	for _, b := range bases {
		b = strings.TrimRight(b, "/")
		if b == "" {
			continue
		}
		dup := false
		for _, existing := range p.bases {
			if strings.EqualFold(existing, b) {
				dup = true
				break
			}
		}
		if !dup {
			p.bases = append(p.bases, b)
		}
	}
	return p
}

// URL returns the public URL for path
func (p publicURLs) URL(path string) string {
	if len(p.bases) == 0 {
		return domain.PublicObjectURL("", p.bucket, path)
	}
	return domain.PublicObjectURL(p.bases[0], p.bucket, path)
}

// Owns is the cheap ownership check: one of our origins plus the public marker
func (p publicURLs) Owns(rawURL string) bool {
	if !strings.Contains(rawURL, domain.PublicObjectMarker) {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, b := range p.bases {
		rest, ok := strings.CutPrefix(lower, strings.ToLower(b))
		if ok && strings.HasPrefix(rest, "/") {
			return true
		}
	}
	return false
}

// Extract returns the object path when rawURL was issued for our bucket on one of our origins
func (p publicURLs) Extract(rawURL string) (string, bool) {
	base, bucket, path, ok := domain.SplitPublicObjectURL(rawURL)
	if !ok || bucket != p.bucket {
		return "", false
	}
	for _, b := range p.bases {
		if strings.EqualFold(base, b) {
			return path, true
		}
	}
	return "", false
}

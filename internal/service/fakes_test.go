package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mansoorceksport/imgpaste/internal/domain"
)

// stubStorage echoes "https://mock/<path>" for uploads and owns every https://mock URL
type stubStorage struct {
	mu       sync.Mutex
	uploads  []string
	deletes  []string
	failWith string
}

func (s *stubStorage) Upload(_ context.Context, _ *domain.ImageFile, path string) domain.UploadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, path)
	if s.failWith != "" {
		return domain.Failure(s.failWith)
	}
	return domain.Success("https://mock/" + path)
}

func (s *stubStorage) Delete(_ context.Context, path string) domain.OperationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, path)
	if s.failWith != "" {
		return domain.OperationResult{Success: false, Message: s.failWith}
	}
	return domain.OperationResult{Success: true, Message: "Image deleted successfully"}
}

func (s *stubStorage) TestConnection(context.Context) domain.OperationResult {
	return domain.OperationResult{Success: true, Message: "Connection successful"}
}

func (s *stubStorage) ExtractPathFromURL(rawURL string) (string, bool) {
	path, ok := strings.CutPrefix(rawURL, "https://mock/")
	return path, ok && path != ""
}

func (s *stubStorage) OwnsURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "https://mock/")
}

// fixedPaths prefixes the normalized name with a constant directory
type fixedPaths struct{}

func (fixedPaths) Generate(filename string) string { return "2024/06/15/" + filename }

// memoryLedger is an in-memory domain.UploadLedger
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]*domain.UploadRecord
	err     error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: map[string]*domain.UploadRecord{}}
}

func (l *memoryLedger) Record(_ context.Context, r *domain.UploadRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if _, ok := l.records[r.Path]; ok {
		return errors.New("duplicate path")
	}
	l.records[r.Path] = r
	return nil
}

func (l *memoryLedger) DeleteByPath(_ context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if _, ok := l.records[path]; !ok {
		return domain.ErrNotFound
	}
	delete(l.records, path)
	return nil
}

func (l *memoryLedger) ListRecent(context.Context, int64) ([]*domain.UploadRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.UploadRecord, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, r)
	}
	return out, l.err
}

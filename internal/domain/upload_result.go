package domain

import "fmt"

// UploadResult is the outcome of an upload: either UploadSuccess or UploadFailure.
// No other type can implement it.
type UploadResult interface {
	Succeeded() bool
	uploadResult()
}

// UploadSuccess carries the public URL of the stored object
type UploadSuccess struct {
	URL string
}

// UploadFailure carries a human-readable failure message
type UploadFailure struct {
	Err string
}

// Success creates a successful upload result
func Success(url string) UploadResult {
	return UploadSuccess{URL: url}
}

// Failure creates a failed upload result
func Failure(msg string) UploadResult {
	return UploadFailure{Err: msg}
}

// Failuref creates a failed upload result from a format string
func Failuref(format string, args ...any) UploadResult {
	return UploadFailure{Err: fmt.Sprintf(format, args...)}
}

func (UploadSuccess) Succeeded() bool { return true }
func (UploadSuccess) uploadResult()   {}

// Markdown renders the image reference, e.g. ![cat](https://x/y.png)
func (s UploadSuccess) Markdown(alt string) string {
	return "![" + alt + "](" + s.URL + ")"
}

func (UploadFailure) Succeeded() bool { return false }
func (UploadFailure) uploadResult()   {}

func (f UploadFailure) Error() string { return f.Err }

// Comment renders the placeholder left in a note when an upload fails
func (f UploadFailure) Comment() string {
	return "<!-- Upload failed: " + f.Err + " -->"
}

// ToMarkdown renders result as markdown. Only a success can be rendered.
func ToMarkdown(result UploadResult, alt string) (string, error) {
	s, ok := result.(UploadSuccess)
	if !ok {
		return "", ErrMarkdownOnFailure
	}
	return s.Markdown(alt), nil
}

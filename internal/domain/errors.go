package domain

import "errors"

// Common errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrValidation        = errors.New("image validation failed")
	ErrMarkdownOnFailure = errors.New("cannot generate markdown for failed upload")
	ErrNotConfigured     = errors.New("image upload is not configured")
)

// ValidationError reports raw input that cannot become an ImageFile.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) succeed for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

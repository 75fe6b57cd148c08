package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadResult_Markdown(t *testing.T) {
	result := Success("https://x/y.png")
	require.True(t, result.Succeeded())

	md, err := ToMarkdown(result, "")
	require.NoError(t, err)
	assert.Equal(t, "![](https://x/y.png)", md)

	md, err = ToMarkdown(result, "cat")
	require.NoError(t, err)
	assert.Equal(t, "![cat](https://x/y.png)", md)

	success, ok := result.(UploadSuccess)
	require.True(t, ok)
	assert.Equal(t, "https://x/y.png", success.URL)
}

func TestUploadResult_FailureCannotRender(t *testing.T) {
	result := Failure("boom")
	assert.False(t, result.Succeeded())

	md, err := ToMarkdown(result, "alt")
	assert.ErrorIs(t, err, ErrMarkdownOnFailure)
	assert.Empty(t, md)

	failure, ok := result.(UploadFailure)
	require.True(t, ok)
	assert.Equal(t, "boom", failure.Error())
	assert.Equal(t, "<!-- Upload failed: boom -->", failure.Comment())
}

func TestFailuref(t *testing.T) {
	result := Failuref("Upload failed: %s", "quota exceeded")
	assert.Equal(t, UploadFailure{Err: "Upload failed: quota exceeded"}, result)
}

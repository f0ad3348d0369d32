package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	t.Run("default is non-empty", func(t *testing.T) {
		assert.NotEmpty(t, GetVersion())
	})

	t.Run("link-time value wins", func(t *testing.T) {
		orig := version
		t.Cleanup(func() { version = orig })

		version = "v1.2.3"
		assert.Equal(t, "v1.2.3", GetVersion())
	})
}

func TestBuildMetadata(t *testing.T) {
	origCommit, origDate := gitCommit, buildDate
	t.Cleanup(func() { gitCommit, buildDate = origCommit, origDate })

	gitCommit, buildDate = "abc123", "2026-01-02T03:04:05Z"
	assert.Equal(t, "abc123", GetGitCommit())
	assert.Equal(t, "2026-01-02T03:04:05Z", GetBuildDate())
}

package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releaserun/version-badge-action/internal/actions"
)

func TestNewFlags(t *testing.T) {
	cmd := New(&actions.Reporter{Out: &bytes.Buffer{}})

	for _, name := range []string{
		"products", "products-file", "badge-types", "readme-path", "style",
		"link-to", "pr-title", "pr-branch", "github-token",
		"badge-service-url", "dry-run",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}

	assert.Equal(t, "flat", cmd.Flags().Lookup("style").DefValue)
	assert.Equal(t, "README.md", cmd.Flags().Lookup("readme-path").DefValue)
}

func TestRunRejectsBadStyle(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := New(&actions.Reporter{Out: buf})
	cmd.SetArgs([]string{"--style", "shiny", "--dry-run", "--products", "python:3.12"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "style")
}

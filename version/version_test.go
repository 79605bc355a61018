package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestInfoFormatting checks commits are abbreviated and dirty trees are marked.
func TestInfoFormatting(t *testing.T) {
	info := Info{Version: "1.2.3", GoVersion: "go1.23.3"}
	assert.EqualValues(t, "1.2.3", info.Short())
	assert.NotContains(t, info.String(), "Commit")

	info.GitCommit = "0123456789abcdef"
	info.GitTreeDirty = true
	assert.EqualValues(t, "1.2.3+0123456-dirty", info.Short())
	assert.Contains(t, info.String(), "pbfuzz version 1.2.3")
	assert.Contains(t, info.String(), "Commit:     0123456-dirty")
	assert.Contains(t, info.String(), "go1.23.3")
}

package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillKeepsStampedValues(t *testing.T) {
	oldHash, oldTime, oldDirty := CommitHash, CommitTime, Dirty
	t.Cleanup(func() { CommitHash, CommitTime, Dirty = oldHash, oldTime, oldDirty })

	CommitHash, CommitTime, Dirty = "abcdef0123", "", ""
	fill([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffffffffff"},
		{Key: "vcs.time", Value: "2024-01-15T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	assert.Equal(t, "abcdef0123", CommitHash)
	assert.Equal(t, "abcdef0", ShortHash())
	assert.Equal(t, "2024-01-15T10:00:00Z", CommitTime)
	assert.True(t, IsDirty())

	CommitHash = "abc"
	assert.Equal(t, "unknown", ShortHash())
}

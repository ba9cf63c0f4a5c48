package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigModelJSONTags(t *testing.T) {
	cfg := ConfigModel{
		Build:    BuildProperties{Version: "1.2.0", CommitID: "abc12345"},
		FeedID:   "f00d",
		Resolver: "index",
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	s := string(data)

	assert.Contains(t, s, `"version":"1.2.0"`)
	assert.Contains(t, s, `"commitId":"abc12345"`)
	assert.Contains(t, s, `"feedId":"f00d"`)
	assert.NotContains(t, s, "serviceDateFrom")
	assert.NotContains(t, s, "CommitID")
}

package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizes_MarshalFlattensDirectories(t *testing.T) {
	s := Sizes{DBDumpBytes: 10, Dirs: map[string]int64{"globalia": 20, "uploads": 30}}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dbDumpBytes":10,"globaliaBytes":20,"uploadsBytes":30}`, string(data))
}

func TestSizes_UnmarshalIgnoresUnknownKeys(t *testing.T) {
	var s Sizes
	require.NoError(t, json.Unmarshal([]byte(`{"dbDumpBytes":5,"globaliaBytes":7,"other":9}`), &s))

	assert.Equal(t, int64(5), s.DBDumpBytes)
	assert.Equal(t, map[string]int64{"globalia": 7}, s.Dirs)
}

func TestManifest_NullableFields(t *testing.T) {
	m := Manifest{
		BackupID:    "2024-01-01_00-00-00__abcd",
		MissingDirs: []string{},
		Result:      BackupResult{OK: true, Errors: []string{}},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Nil(t, raw["env"])
	assert.Nil(t, raw["appVersion"])
	assert.Equal(t, []any{}, raw["missingDirs"])
	assert.Contains(t, raw, "env")
}

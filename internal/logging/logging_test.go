package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf)

	log.Info(map[string]any{"msg": "sampled", "gpus": 2})
	log.Warn(map[string]any{"msg": "release failed", "error": "uninitialized"})
	log.Error(map[string]any{"msg": "snapshot failed"})

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 3)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "sampled", lines[0]["msg"])
	assert.Equal(t, float64(2), lines[0]["gpus"])
	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, "uninitialized", lines[1]["error"])
	assert.Equal(t, "error", lines[2]["level"])

	ts, ok := lines[0]["ts"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestLogger_NilFields(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf).Info(nil)

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
}

func TestOpenFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.log")
	for i := 0; i < 2; i++ {
		log, f, err := OpenFile(path)
		require.NoError(t, err)
		log.Info(map[string]any{"msg": "run", "n": i})
		require.NoError(t, f.Close())
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, b), 2)
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSMI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nvidia-smi")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_SMISampler(t *testing.T) {
	bin := fakeSMI(t, `printf '0, 42, 2048, 8192\n1, 0, 0, 4096\n'`)

	code, stdout, stderr := invoke(t, "--sampler", "smi", "--smi-path", bin)

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
	assert.Equal(t, `{"nvidia_smi_log":{"attached_gpus":2,"gpu":[{"utilization":{"gpu_util":"42 %"},"fb_memory_usage":{"used":"2048 MiB","total":"8192 MiB"}},{"utilization":{"gpu_util":"0 %"},"fb_memory_usage":{"used":"0 MiB","total":"4096 MiB"}}]}}`+"\n", stdout)
}

func TestExecute_SMIFailure(t *testing.T) {
	bin := fakeSMI(t, `echo "driver not loaded" >&2; exit 1`)

	code, stdout, stderr := invoke(t, "--sampler", "smi", "--smi-path", bin)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, `{"error":"driver not loaded"}`+"\n", stderr)
}

func TestExecute_WritesLogFile(t *testing.T) {
	bin := fakeSMI(t, `echo "0, 1, 1, 2"`)
	logPath := filepath.Join(t.TempDir(), "snap.log")

	code, _, stderr := invoke(t, "--sampler", "smi", "--smi-path", bin, "--log-file", logPath)
	require.Equal(t, 0, code, stderr)

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"snapshot written"`)
}

func TestExecute_UsageErrors(t *testing.T) {
	tests := map[string][]string{
		"positional argument": {"extra"},
		"unknown flag":        {"--bogus"},
		"unknown sampler":     {"--sampler", "rocm"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, stdout, stderr := invoke(t, args...)

			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)

			var doc map[string]string
			require.NoError(t, json.Unmarshal([]byte(stderr), &doc))
			assert.Len(t, doc, 1)
			assert.NotEmpty(t, doc["error"])
		})
	}
}

func TestExecute_HelpStaysOffStdout(t *testing.T) {
	for _, flag := range []string{"--help", "-h"} {
		t.Run(flag, func(t *testing.T) {
			code, stdout, stderr := invoke(t, flag)

			assert.Equal(t, 0, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "--sampler")
		})
	}
}

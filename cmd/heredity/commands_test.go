package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heredity/internal/report"
)

const family0 = `name,mother,father,trait
Harry,Lily,James,
James,,,1
Lily,,,0
`

// setup writes a config pointing logs and the database into a temp dir and
// returns the config path and a pedigree file path.
func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("logging:\n  dir: %q\nstorage:\n  database:\n    path: %q\n",
		filepath.Join(dir, "logs"), filepath.Join(dir, "runs.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	dataPath := filepath.Join(dir, "family0.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(family0), 0o644))
	return cfgPath, dataPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInferText(t *testing.T) {
	cfgPath, dataPath := setup(t)

	out, err := run(t, "--config", cfgPath, "infer", dataPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 24) // 8 lines per individual
	assert.Equal(t, "Harry:", lines[0])
	assert.Equal(t, "James:", lines[8])
	assert.Equal(t, "Lily:", lines[16])
	assert.Equal(t, "    True: 1.0000", lines[14])
	assert.Equal(t, "    False: 1.0000", lines[23])
}

func TestInferJSON(t *testing.T) {
	cfgPath, dataPath := setup(t)

	out, err := run(t, "--config", cfgPath, "infer", dataPath, "--format", "json", "--workers", "3", "--run-id", "json-run")
	require.NoError(t, err)

	var summary report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "json-run", summary.RunID)
	assert.EqualValues(t, 54, summary.Worlds)
	assert.Len(t, summary.Posteriors, 3)
}

func TestInferUsageErrors(t *testing.T) {
	cfgPath, dataPath := setup(t)

	_, err := run(t, "--config", cfgPath, "infer")
	assert.Error(t, err)

	_, err = run(t, "--config", cfgPath, "infer", dataPath, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "--config", cfgPath, "infer", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestPersistedRunLifecycle(t *testing.T) {
	cfgPath, dataPath := setup(t)

	_, err := run(t, "--config", cfgPath, "infer", dataPath, "--persist", "--run-id", "cli-run")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "cli-run")
	assert.Contains(t, out, "SUCCEEDED")

	out, err = run(t, "--config", cfgPath, "runs", "show", "cli-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Run cli-run: SUCCEEDED, 54 worlds\nHarry:\n"), out)

	out, err = run(t, "--config", cfgPath, "runs", "delete", "cli-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted run cli-run")

	_, err = run(t, "--config", cfgPath, "runs", "show", "cli-run")
	assert.ErrorContains(t, err, "run not found")
}

func TestConvertRoundTrip(t *testing.T) {
	_, dataPath := setup(t)

	out, err := run(t, "convert", dataPath, "--to", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "Harry"`)

	jsonPath := filepath.Join(t.TempDir(), "family0.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(out), 0o644))

	out, err = run(t, "convert", jsonPath, "--to", "csv")
	require.NoError(t, err)
	assert.Equal(t, family0, out)

	_, err = run(t, "convert", dataPath, "--to", "xml")
	assert.ErrorContains(t, err, "unknown target format")
}

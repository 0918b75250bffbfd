package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  dataDir: " + filepath.Join(dir, "data") + "\n" +
		"database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "news.db") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEnqueueThenStatus(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "enqueue", "--url", "https://n.test/a", "--title", "A")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "enqueued "))

	out, err = execute(t, "--config", cfg, "enqueue", "--url", "https://n.test/a", "--title", "A")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "already known "))

	out, err = execute(t, "--config", cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "new")
	assert.Contains(t, out, "total")
}

func TestRequeueArgumentRules(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "requeue")
	assert.Error(t, err)

	out, err := execute(t, "--config", cfg, "requeue", "--all-errors")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to requeue")
}

func TestRunRejectsUnknownStage(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "run", "dance")
	assert.Error(t, err)
}

func TestRenderTableAlignsColumns(t *testing.T) {
	t.Parallel()

	out := renderTable([]string{"Status", "Items"}, [][]string{{"new", "3"}, {"published", "12"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "published")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCmd("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "AgentGate "+Version)
	assert.Contains(t, out, "Git Commit")
}

func TestRun_UsageAndUnknown(t *testing.T) {
	code, _, errOut := runCmd()
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage:")

	code, out, _ := runCmd("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "agentgate <command>")

	code, _, errOut = runCmd("launch")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: launch")
}

func TestRun_HealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	code, out, _ := runCmd("health", "--addr", healthy.URL)
	assert.Equal(t, 0, code)
	assert.Equal(t, "OK\n", out)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	code, _, errOut := runCmd("health", "--addr", failing.URL)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "status 503")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_ServeRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: -1\n")
	code, _, errOut := runCmd("serve", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid HTTP port")
}

func TestRun_Migrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "feedback.db")
	path := writeConfig(t, `
database:
  driver: sqlite
  name: `+dbPath+`
log:
  level: error
  output_paths: [stderr]
`)

	code, _, errOut := runCmd("migrate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Subcommands:")

	code, out, errOut := runCmd("migrate", "--config", path, "up")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Current version: 2")

	code, out, _ = runCmd("migrate", "--config", path, "status")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Total: 2, Applied: 2, Pending: 0")

	code, out, _ = runCmd("migrate", "--config", path, "steps", "-1")
	assert.Equal(t, 0, code)

	code, out, _ = runCmd("migrate", "--config", path, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Current version: 1")

	code, _, errOut = runCmd("migrate", "--config", path, "rewind")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Migration rewind failed")
}

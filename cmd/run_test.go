package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-ingest/pkg/pipeline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ingest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--env-file", ""))
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand_PrintsSummary(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<h2>Programs</h2><p>Pharm-D and BS Biotechnology</p>"))
	}))
	defer site.Close()

	path := writeConfig(t, `
store:
  backend: memory
logging:
  level: error
sources:
  - url: `+site.URL+`/programs/
    type: programs
  - url: `+site.URL+`/contact/
    type: contact
`)

	out, err := execute(t, "run", "-c", path)
	require.NoError(t, err)

	var summary pipeline.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.ItemsProcessed)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, "Successfully scraped and stored 2 items", summary.Message)
}

func TestRunCommand_ConfigurationFault(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: cassandra
logging:
  level: error
`)

	out, err := execute(t, "run", "-c", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrConfiguration)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Contains(t, body["error"], "cassandra")
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SITE_INGEST_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SITE_INGEST_TEST_VALUE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("SITE_INGEST_TEST_VALUE"))
}

func TestContextCommand_EmptyStore(t *testing.T) {
	out, err := execute(t, "context", "-c", writeConfig(t, memoryConfig))
	require.NoError(t, err)
	assert.Equal(t, "\n", out)
}

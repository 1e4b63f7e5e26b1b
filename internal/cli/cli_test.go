package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sampleTemplates = filepath.Join("..", "..", "templates")

// setupEnv points the CLI at a fresh database and keeps logs off stdout.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CRED_DATABASE_PATH", filepath.Join(dir, "cred.db"))
	t.Setenv("CRED_LOGGER_OUTPUT_PATH", filepath.Join(dir, "credd.log"))
	t.Setenv("CRED_METRICS_ENABLED", "false")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := NewRootCommand()
	for _, path := range [][]string{
		{"serve"}, {"templates", "validate"}, {"templates", "import"}, {"templates", "list"},
		{"generate"}, {"progress"}, {"version"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestTemplatesValidate(t *testing.T) {
	out, err := run(t, "templates", "validate", sampleTemplates)
	require.NoError(t, err)
	assert.Contains(t, out, "template(s) valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("payer_id: x\ncategory: portal_submission\ntasks:\n  - {title: a, order: 1}\n"), 0o644))
	_, err = run(t, "templates", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portal_url")
}

func TestGenerateAndProgress(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "templates", "import", sampleTemplates)
	require.NoError(t, err)
	assert.Contains(t, out, "imported aetna version 1")

	out, err = run(t, "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "portal_submission")

	out, err = run(t, "generate", "--provider", "prov-1", "--payer", "aetna,unknown", "--actor", "ops", "--start", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "no_template")

	out, err = run(t, "progress", "--provider", "prov-1")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"provider_id": "prov-1"`), out)

	xlsx := filepath.Join(dir, "progress.xlsx")
	_, err = run(t, "progress", "--provider", "prov-1", "--xlsx", xlsx)
	require.NoError(t, err)
	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Payers")
}

func TestGenerate_RequiresFlags(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "generate", "--provider", "prov-1")
	assert.Error(t, err)

	_, err = run(t, "generate", "--provider", "prov-1", "--payer", "aetna", "--actor", "ops", "--start", "March")
	assert.Error(t, err)
}

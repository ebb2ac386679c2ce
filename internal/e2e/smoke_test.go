package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	resultsPath := writeResultsFixture(t, home)

	stdout, stderr, err := runGeneGPT(t, binaryPath, home, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, stdout)

	stdout, stderr, err = runGeneGPT(t, binaryPath, home, "tools")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "esearch_ncbi")
	assert.Contains(t, stdout, "blast_get")

	_, stderr, err = runGeneGPT(t, binaryPath, home, "credentials", "set", "ncbi_api_key", "--value", "ncbi-test")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err = runGeneGPT(t, binaryPath, home, "credentials", "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Regexp(t, `ncbi_api_key\s+NCBI_API_KEY\s+file`, stdout)

	stdout, stderr, err = runGeneGPT(t, binaryPath, home, "report", "--results", resultsPath)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Overall (2)")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "genegpt-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/genegpt")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build genegpt binary: %s", string(output))
	return binaryPath
}

func runGeneGPT(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "GENEGPT_SECRETS_BACKEND=file", "NCBI_API_KEY=")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeResultsFixture(t *testing.T, home string) string {
	t.Helper()

	results := `{
  "gene alias": {
    "What is the official gene symbol of LMP10?": {"answer": "PSMB10", "reasoning": "alias", "prediction": "PSMB10"}
  },
  "SNP location": {
    "Which chromosome does SNP rs1217074595 locate on human genome?": {"answer": "chr13", "reasoning": "lookup", "prediction": "chr7"}
  }
}`
	path := filepath.Join(home, "results.json")
	require.NoError(t, os.WriteFile(path, []byte(results), 0o644))
	return path
}

package e2e

import (
	"bytes"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/bnema/lobbyopoly-cli/internal/fakebackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lobbyCodePattern = regexp.MustCompile(`Lobby created: ([A-Z]+)`)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	backend := httptest.NewServer(fakebackend.New(fakebackend.Options{}).Handler())
	t.Cleanup(backend.Close)

	stdout, stderr, err := runLobbyopoly(t, binaryPath, home, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, stdout)

	stdout, stderr, err = runLobbyopoly(t, binaryPath, home,
		"--server", backend.URL, "--mode", "poll",
		"create", "--name", "Ann",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	match := lobbyCodePattern.FindStringSubmatch(stdout)
	require.Len(t, match, 2, "stdout: %s", stdout)
	assert.Contains(t, stdout, "Joined lobby "+match[1]+" as Ann.")

	stdout, stderr, err = runLobbyopoly(t, binaryPath, home, "--server", backend.URL, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Lobby "+match[1])
	assert.Contains(t, stdout, "Ann")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "lobbyopoly-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/lobbyopoly")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build lobbyopoly binary: %s", string(output))
	return binaryPath
}

func runLobbyopoly(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

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

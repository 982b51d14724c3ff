package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/fakebackend"
	"github.com/bnema/lobbyopoly-cli/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lobbyCodePattern = regexp.MustCompile(`Lobby created: ([A-Z]+)`)

func TestVersionPrintsVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestStatusRequiresLobby(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})

	_, _, err := executeCLI(t, t.TempDir(), "--server", srv.URL, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in a lobby")
}

func TestCreateJoinAndStatus(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "--server", srv.URL, "create", "--name", "Ann", "--currency", "gbp")
	require.NoError(t, err)
	code := lobbyCode(t, stdout)
	assert.Contains(t, stdout, "Joined lobby "+code+" as Ann.")

	stdout, _, err = executeCLI(t, home, "--server", srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Lobby "+code)
	assert.Contains(t, stdout, "you: Ann (banker)")
	assert.Contains(t, stdout, "Ann has been made The Banker.")

	status := statusJSON(t, home, srv.URL)
	assert.Equal(t, code, status.Code)
	assert.Equal(t, "Ann", status.You)
	assert.True(t, status.Banker)
	require.Len(t, status.Players, 1)
	assert.Equal(t, int64(1500), status.Players[0].Balance)

	session, err := os.ReadFile(filepath.Join(home, ".lobbyopoly", "session.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(session), srv.URL)
	assert.Contains(t, string(session), fakebackend.SessionCookieName)
}

func TestTransferBetweenPlayers(t *testing.T) {
	for _, mode := range []string{"stream", "poll"} {
		t.Run(mode, func(t *testing.T) {
			srv := newBackend(t, fakebackend.Options{})
			ann := t.TempDir()
			bob := t.TempDir()

			stdout, _, err := executeCLI(t, ann, "--server", srv.URL, "--mode", mode, "create", "--name", "Ann")
			require.NoError(t, err)
			code := lobbyCode(t, stdout)

			_, _, err = executeCLI(t, bob, "--server", srv.URL, "--mode", mode, "join", strings.ToLower(code), "--name", "Bob")
			require.NoError(t, err)

			stdout, _, err = executeCLI(t, ann, "--server", srv.URL, "--mode", mode, "transfer", "--from", "bank", "--to", "bob", "--amount", "200")
			require.NoError(t, err)
			assert.Equal(t, "Sent $200 from The Bank to Bob.\n", stdout)

			stdout, _, err = executeCLI(t, bob, "--server", srv.URL, "--mode", mode, "transfer", "--to", "fp", "--amount", "10%")
			require.NoError(t, err)
			assert.Equal(t, "Sent $170 from You to Free Parking.\n", stdout)

			stdout, _, err = executeCLI(t, bob, "--server", srv.URL, "--mode", mode, "events", "--limit", "2")
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(stdout), "\n")
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], "Bob transferred $170 from themself to Free Parking.")
			assert.Contains(t, lines[1], "Ann transferred $200 from The Bank to Bob.")

			status := statusJSON(t, bob, srv.URL)
			assert.Equal(t, "Bob", status.You)
			assert.False(t, status.Banker)
			for _, player := range status.Players {
				if player.Name == "Bob" {
					assert.Equal(t, int64(1530), player.Balance)
				}
			}
		})
	}
}

func TestTransferAllEmptiesOwnCash(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "--server", srv.URL, "create", "--name", "Ann")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "--server", srv.URL, "transfer", "--to", "bank", "--amount", "ALL")
	require.NoError(t, err)
	assert.Equal(t, "Sent $1500 from You to The Bank.\n", stdout)

	_, _, err = executeCLI(t, home, "--server", srv.URL, "transfer", "--to", "bank", "--amount", "all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer amount must be positive")
}

func TestTransferRejectsBadInput(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	ann := t.TempDir()
	bob := t.TempDir()

	stdout, _, err := executeCLI(t, ann, "--server", srv.URL, "create", "--name", "Ann")
	require.NoError(t, err)
	_, _, err = executeCLI(t, bob, "--server", srv.URL, "join", lobbyCode(t, stdout), "--name", "Bob")
	require.NoError(t, err)

	_, _, err = executeCLI(t, bob, "--server", srv.URL, "transfer", "--from", "bank", "--to", "Ann", "--amount", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "you cannot transfer from this account")

	_, _, err = executeCLI(t, bob, "--server", srv.URL, "transfer", "--to", "Zed", "--amount", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transfer target")

	_, _, err = executeCLI(t, bob, "--server", srv.URL, "transfer", "--to", "Ann", "--amount", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")

	_, _, err = executeCLI(t, bob, "--server", srv.URL, "transfer", "--to", "Ann", "--amount", "99999")
	require.Error(t, err)
	assert.Equal(t, "Insufficient funds", err.Error())
}

func TestBackendErrorsUseBundleText(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "--server", srv.URL, "join", "QQQQ", "--name", "Ann")
	require.Error(t, err)
	assert.Equal(t, "Lobby with this code does not exist", err.Error())

	_, _, err = executeCLI(t, home, "--server", srv.URL, "create", "--name", "Ann")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "--server", srv.URL, "leave")
	require.Error(t, err)
	assert.Equal(t, "You are the banker. You cannot leave.", err.Error())
}

func TestPromoteThenKickNeedsBanker(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{Msgpack: true})
	ann := t.TempDir()
	bob := t.TempDir()

	stdout, _, err := executeCLI(t, ann, "--server", srv.URL, "--mode", "poll", "create", "--name", "Ann")
	require.NoError(t, err)
	_, _, err = executeCLI(t, bob, "--server", srv.URL, "--mode", "poll", "join", lobbyCode(t, stdout), "--name", "Bob")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, ann, "--server", srv.URL, "--mode", "poll", "promote", "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob is now the banker.\n", stdout)

	_, _, err = executeCLI(t, ann, "--server", srv.URL, "--mode", "poll", "kick", "Bob")
	require.Error(t, err)
	assert.Equal(t, "You are not the banker!", err.Error())

	stdout, _, err = executeCLI(t, bob, "--server", srv.URL, "--mode", "poll", "kick", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "Kicked Ann.\n", stdout)

	_, _, err = executeCLI(t, ann, "--server", srv.URL, "--mode", "poll", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in a lobby")
}

func TestLeaveAndDisband(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	ann := t.TempDir()
	bob := t.TempDir()

	stdout, _, err := executeCLI(t, ann, "--server", srv.URL, "create", "--name", "Ann")
	require.NoError(t, err)
	_, _, err = executeCLI(t, bob, "--server", srv.URL, "join", lobbyCode(t, stdout), "--name", "Bob")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, bob, "--server", srv.URL, "leave")
	require.NoError(t, err)
	assert.Equal(t, "Left the lobby.\n", stdout)

	session, err := os.ReadFile(filepath.Join(bob, ".lobbyopoly", "session.toml"))
	if err == nil {
		assert.NotContains(t, string(session), srv.URL)
	} else {
		require.ErrorIs(t, err, os.ErrNotExist)
	}

	_, _, err = executeCLI(t, bob, "--server", srv.URL, "leave")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in a lobby")

	stdout, _, err = executeCLI(t, ann, "--server", srv.URL, "disband")
	require.NoError(t, err)
	assert.Equal(t, "Lobby disbanded.\n", stdout)

	_, _, err = executeCLI(t, ann, "--server", srv.URL, "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in a lobby")
}

func TestCreateWithoutNameOnlyPrintsCode(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "--server", srv.URL, "create", "--unlimited-bank", "--max-players", "4")
	require.NoError(t, err)
	lobbyCode(t, stdout)
	assert.NotContains(t, stdout, "Joined")

	_, _, err = executeCLI(t, home, "--server", srv.URL, "create", "--currency", "yen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported currency")
}

func TestServerURLFromConfigFileAndEnv(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})
	home := t.TempDir()
	configDir := filepath.Join(home, ".lobbyopoly")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[server]\nurl = \""+srv.URL+"\"\n"), 0o600))

	stdout, _, err := executeCLI(t, home, "create")
	require.NoError(t, err)
	lobbyCode(t, stdout)

	t.Setenv("LOBBYOPOLY_SERVER_URL", "http://127.0.0.1:1")
	_, _, err = executeCLI(t, home, "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to http://127.0.0.1:1")
}

func TestInvalidSettingsAreReported(t *testing.T) {
	srv := newBackend(t, fakebackend.Options{})

	_, _, err := executeCLI(t, t.TempDir(), "--server", srv.URL, "--mode", "carrier-pigeon", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sync mode")

	_, _, err = executeCLI(t, t.TempDir(), "--server", "ftp://example.com", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server url")

	_, _, err = executeCLI(t, t.TempDir(), "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestDevServerServesUntilCanceled(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"dev-server", "--listen", addr})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("dev-server did not stop")
	}
	assert.Contains(t, stdout.String(), "Serving lobbies on http://"+addr)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func newBackend(t *testing.T, opts fakebackend.Options) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(fakebackend.New(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func lobbyCode(t *testing.T, stdout string) string {
	t.Helper()

	match := lobbyCodePattern.FindStringSubmatch(stdout)
	require.Len(t, match, 2, "no lobby code in %q", stdout)
	return match[1]
}

func statusJSON(t *testing.T, home, server string) application.LobbyStatus {
	t.Helper()

	stdout, _, err := executeCLI(t, home, "--server", server, "status", "--json")
	require.NoError(t, err)

	var status application.LobbyStatus
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	return status
}

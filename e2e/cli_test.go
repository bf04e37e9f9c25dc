package e2e_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/parksync/internal/api"
	"github.com/mcoot/parksync/internal/api/response"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/session"
	"github.com/mcoot/parksync/internal/sim"
	"github.com/mcoot/parksync/internal/storage/memory"
	"github.com/mcoot/parksync/internal/testutil"
	"github.com/mcoot/parksync/internal/transport"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	keyDir     string
	dataDir    string
}

func newCLIRunner(t *testing.T) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "parksync-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/parksync")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	dir := t.TempDir()
	return &cliRunner{
		binaryPath: binaryPath,
		keyDir:     filepath.Join(dir, "keys"),
		dataDir:    filepath.Join(dir, "registry"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--key-dir", r.keyDir,
		"--data-dir", r.dataDir,
		"--log-level", "error",
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Stderr = os.Stderr
	output, err := cmd.Output()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// chatLog collects chat lines seen by the host
type chatLog struct {
	session.NopNotifier
	mu    sync.Mutex
	lines []string
}

func (c *chatLog) ChatMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, text)
}

func (c *chatLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// testHost runs a hosting session over real TCP with the status API
type testHost struct {
	port   int
	apiURL string
	chat   *chatLog
}

func startTestHost(t *testing.T) *testHost {
	t.Helper()

	logger := testutil.NopLogger()
	chat := &chatLog{}
	park := sim.New("E2E Park", 42, sim.DefaultObjects)

	cfg := session.DefaultConfig()
	cfg.PlayerName = "Host"
	cfg.ServerName = "E2E Server"
	cfg.ChecksumInterval = 10
	sess, err := session.New(cfg, park, session.Deps{
		Storage:  memory.New(),
		Notifier: chat,
		Logger:   logger,
	})
	require.NoError(t, err)

	listener, err := transport.Listen("127.0.0.1", 0)
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(listener.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sess.BeginServerWithListener(ctx, listener))

	apiServer := httptest.NewServer(api.NewRouter(api.RouterConfig{Logger: logger, Status: sess}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = sess.Close()
				return
			case <-ticker.C:
				sess.Update()
				sess.Advance()
			}
		}
	}()

	t.Cleanup(func() {
		apiServer.Close()
		cancel()
		<-done
	})

	return &testHost{port: port, apiURL: apiServer.URL, chat: chat}
}

func TestCLI_KeysGenerate(t *testing.T) {
	cli := newCLIRunner(t)

	out, err := cli.run("keys", "generate", "Alice")
	require.NoError(t, err)

	var key struct {
		Name        string `json:"name"`
		Fingerprint string `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &key))
	assert.Equal(t, "Alice", key.Name)
	assert.Len(t, key.Fingerprint, 64)
	assert.FileExists(t, filepath.Join(cli.keyDir, "Alice.privkey"))
}

func TestCLI_Info(t *testing.T) {
	host := startTestHost(t)
	cli := newCLIRunner(t)

	out, err := cli.run("info", "127.0.0.1", "--port", strconv.Itoa(host.port))
	require.NoError(t, err)

	var info protocol.GameInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "E2E Server", info.Name)
	assert.Equal(t, protocol.Version, info.Version)
	assert.Equal(t, 1, info.Players)
	assert.False(t, info.Password)
}

func TestCLI_JoinAndChat(t *testing.T) {
	host := startTestHost(t)
	cli := newCLIRunner(t)

	out, err := cli.run("join", "127.0.0.1",
		"--port", strconv.Itoa(host.port),
		"--name", "Visitor",
		"--chat", "hello from the cli",
		"--tick", "10ms",
		"--duration", "1500ms",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Left 127.0.0.1 at tick")

	assert.Eventually(t, func() bool {
		for _, line := range host.chat.snapshot() {
			if line == "Visitor: hello from the cli" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, host.chat.snapshot(), "Visitor has joined the game")
}

func TestCLI_StatusPlayers(t *testing.T) {
	host := startTestHost(t)
	cli := newCLIRunner(t)

	out, err := cli.run("status", "players", "--api", host.apiURL)
	require.NoError(t, err)

	var players response.PlayersResponse
	require.NoError(t, json.Unmarshal([]byte(out), &players))
	require.Len(t, players.Players, 1)
	assert.Equal(t, "Host", players.Players[0].Name)
	assert.True(t, players.Players[0].IsHost)
}

func TestCLI_StatusGroups(t *testing.T) {
	host := startTestHost(t)
	cli := newCLIRunner(t)

	out, err := cli.run("status", "groups", "--api", host.apiURL)
	require.NoError(t, err)

	var groups response.GroupsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	assert.Len(t, groups.Groups, 3)
}

func TestCLI_StatusPlayerNotFound(t *testing.T) {
	host := startTestHost(t)
	cli := newCLIRunner(t)

	_, err := cli.run("status", "player", "9", "--api", host.apiURL)
	assert.Error(t, err)
}

func TestCLI_JoinWrongPort(t *testing.T) {
	cli := newCLIRunner(t)

	_, err := cli.run("join", "127.0.0.1", "--port", "1", "--duration", "3s")
	assert.Error(t, err)
}

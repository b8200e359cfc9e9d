package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner records every invocation and answers through handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	handler func(inv Invocation) (*CommandOutcome, error)
}

func (f *fakeRunner) Run(_ context.Context, inv Invocation) (*CommandOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), inv.Args...))
	f.mu.Unlock()
	if f.handler == nil {
		return &CommandOutcome{}, nil
	}
	return f.handler(inv)
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}

func stdout(s string) (*CommandOutcome, error) {
	return &CommandOutcome{Stdout: []byte(s)}, nil
}

// recordingNotifier counts change notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	repos []string
}

func (n *recordingNotifier) Notify(repo string) {
	n.mu.Lock()
	n.repos = append(n.repos, repo)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.repos)
}

// ── real git fixtures ───────────────────────────────────────────────────────

func requireGit(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git binary not available")
	}
	return path
}

type testRepo struct {
	t        *testing.T
	dir      string
	exec     *Executor
	notifier *recordingNotifier
}

// newTestRepo creates an isolated repository on branch main with one
// committed file.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	bin := requireGit(t)
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	r := &testRepo{t: t, dir: t.TempDir(), exec: NewExecutor(bin, nil), notifier: &recordingNotifier{}}
	r.git("init", "-q")
	r.git("symbolic-ref", "HEAD", "refs/heads/main")
	r.git("config", "user.name", "Test User")
	r.git("config", "user.email", "test@example.com")
	r.git("config", "commit.gpgsign", "false")
	r.git("config", "core.autocrlf", "false")
	r.write("README.md", "hello\n")
	r.commitAll("initial")
	return r
}

func (r *testRepo) git(args ...string) string {
	r.t.Helper()
	out, err := r.exec.Run(context.Background(), Invocation{Dir: r.dir, Args: args})
	require.NoError(r.t, err, "git %s", strings.Join(args, " "))
	return string(out.Stdout)
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	full := filepath.Join(r.dir, filepath.FromSlash(name))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0o644))
}

func (r *testRepo) commitAll(msg string) {
	r.t.Helper()
	r.git("add", "-A")
	r.git("commit", "-q", "-m", msg)
}

func (r *testRepo) service() *CLIService {
	r.t.Helper()
	svc, err := NewCLIService(context.Background(), r.dir, Options{Runner: r.exec, Notifier: r.notifier})
	require.NoError(r.t, err)
	return svc
}

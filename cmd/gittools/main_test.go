package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

type cliRepo struct {
	t   *testing.T
	dir string
	bin string
}

// newCLIRepo isolates config and creates a repository on main with one
// commit.
func newCLIRepo(t *testing.T) *cliRepo {
	t.Helper()
	bin, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git binary not available")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	r := &cliRepo{t: t, dir: t.TempDir(), bin: bin}
	r.git("init", "-q")
	r.git("symbolic-ref", "HEAD", "refs/heads/main")
	r.git("config", "user.name", "Test User")
	r.git("config", "user.email", "test@example.com")
	r.git("config", "commit.gpgsign", "false")
	r.write("README.md", "hello\n")
	r.commit("initial")
	return r
}

func (r *cliRepo) git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command(r.bin, args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, "git %s: %s", strings.Join(args, " "), out)
	return string(out)
}

func (r *cliRepo) write(name, content string) {
	r.t.Helper()
	require.NoError(r.t, os.WriteFile(filepath.Join(r.dir, name), []byte(content), 0o644))
}

func (r *cliRepo) commit(msg string) {
	r.t.Helper()
	r.git("add", "-A")
	r.git("commit", "-q", "-m", msg)
}

func (r *cliRepo) run(stdin string, args ...string) result {
	r.t.Helper()
	return runCLI(r.t, stdin, append([]string{"--repo", r.dir}, args...)...)
}

func TestVersionJSONNeedsNoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	res := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version", "--json")
	require.Equal(t, 0, res.code, res.stderr)
	info := decode[map[string]string](t, res.stdout)
	assert.Equal(t, "dev", info["version"])
}

func TestMissingRepositoryIsAJSONError(t *testing.T) {
	newCLIRepo(t)
	res := runCLI(t, "", "--repo", filepath.Join(t.TempDir(), "nope"), "status")
	assert.Equal(t, exitError, res.code)
	assert.Empty(t, res.stdout)
	payload := decode[errorPayload](t, res.stderr)
	assert.Equal(t, "error", payload.Error.Kind)
	assert.Contains(t, payload.Error.Message, "repository not found")
}

func TestNotARepositoryKind(t *testing.T) {
	newCLIRepo(t)
	res := runCLI(t, "", "--repo", t.TempDir(), "status")
	assert.Equal(t, exitError, res.code)
	payload := decode[errorPayload](t, res.stderr)
	assert.Equal(t, "not_a_repository", payload.Error.Kind)
}

func TestStatusJSON(t *testing.T) {
	r := newCLIRepo(t)
	r.write("README.md", "hello\nworld\n")

	res := r.run("", "status")
	require.Equal(t, 0, res.code, res.stderr)
	report := decode[struct {
		Branch string             `json:"branch"`
		Status git.StatusResult   `json:"status"`
		State  git.OperationState `json:"state"`
	}](t, res.stdout)
	assert.Equal(t, "main", report.Branch)
	require.Len(t, report.Status.Unstaged, 1)
	assert.Equal(t, "README.md", report.Status.Unstaged[0].Path)
	assert.False(t, report.State.IsMerging)
}

func TestStageLineThenStagedDiff(t *testing.T) {
	r := newCLIRepo(t)
	r.write("README.md", "hello\nworld\nagain\n")

	res := r.run("", "stage-line", "--new", "2", "README.md")
	require.Equal(t, 0, res.code, res.stderr)

	res = r.run("", "diff", "--staged")
	require.Equal(t, 0, res.code, res.stderr)
	files := decode[[]git.DiffFile](t, res.stdout)
	require.Len(t, files, 1)
	var added []string
	for _, h := range files[0].Hunks {
		for _, l := range h.Lines {
			if l.Kind == git.LineAdd {
				added = append(added, l.Content)
			}
		}
	}
	assert.Equal(t, []string{"world"}, added)
	assert.Equal(t, "hello\nworld\n", r.git("show", ":README.md"))
}

func TestPrettyStatus(t *testing.T) {
	r := newCLIRepo(t)
	res := r.run("", "--pretty", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "main │ ✓ clean"), res.stdout)
	assert.NotContains(t, res.stdout, "\x1b[")
}

func TestMergeConflictExitCode(t *testing.T) {
	r := newCLIRepo(t)
	r.git("switch", "-q", "-c", "feature")
	r.write("README.md", "feature\n")
	r.commit("feature change")
	r.git("switch", "-q", "main")
	r.write("README.md", "main\n")
	r.commit("main change")

	res := r.run("", "merge", "feature")
	assert.Equal(t, exitConflict, res.code)
	assert.Equal(t, "merge_conflict", decode[errorPayload](t, res.stderr).Error.Kind)

	res = r.run("", "state")
	require.Equal(t, 0, res.code, res.stderr)
	state := decode[git.OperationState](t, res.stdout)
	assert.True(t, state.IsMerging)
	assert.Equal(t, []string{"README.md"}, state.ConflictPaths)
	assert.Equal(t, "feature", state.TheirsBranch)

	res = r.run("merged\n", "conflicts", "resolve", "--content", "-", "README.md")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "merged\n", r.git("show", ":README.md"))

	res = r.run("", "conflicts", "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, []string{}, decode[[]string](t, res.stdout))
}

func TestRebasePlanRoundTripThroughYAML(t *testing.T) {
	r := newCLIRepo(t)
	for _, name := range []string{"a", "b", "c"} {
		r.write(name+".txt", name+"\n")
		r.commit("add " + name)
	}

	res := r.run("", "rebase", "plan", "--yaml", "HEAD~3")
	require.Equal(t, 0, res.code, res.stderr)
	plan, err := decodePlan(strings.NewReader(res.stdout))
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, "HEAD~3", plan.Base)

	edited := strings.Replace(res.stdout, "action: pick\n    commit: "+plan.Steps[1].CommitHash,
		"action: drop\n    commit: "+plan.Steps[1].CommitHash, 1)
	res = r.run(edited, "rebase", "apply", "--plan", "-")
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, decode[git.CommandResult](t, res.stdout).Success)

	subjects := strings.Fields(strings.ReplaceAll(r.git("log", "--format=%s|"), " ", "_"))
	assert.Equal(t, []string{"add_c|", "add_a|", "initial|"}, subjects)
}

func TestRebaseConflictIsAResultWithExitCode(t *testing.T) {
	r := newCLIRepo(t)
	r.git("switch", "-q", "-c", "feature")
	r.write("README.md", "feature\n")
	r.commit("feature change")
	r.git("switch", "-q", "main")
	r.write("README.md", "main\n")
	r.commit("main change")
	r.git("switch", "-q", "feature")

	res := r.run("", "rebase", "start", "main")
	assert.Equal(t, exitConflict, res.code)
	assert.Empty(t, res.stderr)
	out := decode[git.CommandResult](t, res.stdout)
	assert.True(t, out.Conflicted)

	res = r.run("", "rebase", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, git.RebaseConflicted, decode[git.FullRebaseStatus](t, res.stdout).Status)

	res = r.run("", "rebase", "abort")
	require.Equal(t, 0, res.code, res.stderr)
}

func TestDecodePlanValidation(t *testing.T) {
	plan, err := decodePlan(strings.NewReader("base: main\nsteps:\n  - commit: abc\n    message: x\n"))
	require.NoError(t, err)
	assert.Equal(t, "pick", plan.Steps[0].Action)

	_, err = decodePlan(strings.NewReader("steps:\n  - action: yeet\n    commit: abc\n"))
	assert.ErrorContains(t, err, `unknown action "yeet"`)

	_, err = decodePlan(strings.NewReader("steps:\n  - action: pick\n"))
	assert.ErrorContains(t, err, "commit is required")

	_, err = decodePlan(strings.NewReader("base: main\nextra: 1\n"))
	assert.Error(t, err)
}

func TestStageRequiresPathsOrAll(t *testing.T) {
	r := newCLIRepo(t)
	res := r.run("", "stage")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, decode[errorPayload](t, res.stderr).Error.Message, "give paths or --all")
}

func TestCompletionScripts(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	res := runCLI(t, "", "completion", "bash")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "gittools")

	res = runCLI(t, "", "completion", "tcsh")
	assert.Equal(t, exitError, res.code)
}

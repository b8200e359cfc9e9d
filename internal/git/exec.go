package git

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds an invocation that does not set its own timeout.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Wait keeps draining pipes after the process
// has been killed. Grandchildren holding stdout open would otherwise block.
const waitDelay = 2 * time.Second

// baseEnv is applied to every child. It keeps git from prompting for
// credentials or opening a pager and pins the message locale so the
// substring checks in Classify and the parsers stay valid.
var baseEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GCM_INTERACTIVE=never",
	"GIT_PAGER=cat",
	"PAGER=cat",
	"LC_ALL=C",
}

// readEnv is added to read-only commands. GIT_OPTIONAL_LOCKS=0 keeps
// status and friends from taking index.lock, which stalls writers in
// large repos.
var readEnv = []string{"GIT_OPTIONAL_LOCKS=0"}

// Invocation is a single git run.
type Invocation struct {
	Dir     string
	Args    []string
	Env     []string
	Stdin   io.Reader
	Timeout time.Duration
}

// CommandOutcome is the captured result of a successful run.
type CommandOutcome struct {
	Stdout   []byte        `json:"-"`
	Stderr   []byte        `json:"-"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Runner runs git in a repository directory. Executor is the production
// implementation; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*CommandOutcome, error)
}

// Executor spawns the resolved git binary. It holds no mutable state and is
// safe for concurrent use.
type Executor struct {
	binary string
	logger *slog.Logger
	tracer trace.Tracer
}

var _ Runner = (*Executor)(nil)

// ResolveBinary returns the git binary to use: configured when set,
// otherwise the first git on PATH.
func ResolveBinary(configured string) (string, error) {
	name := configured
	if name == "" {
		name = "git"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &Error{Kind: KindBinaryNotFound, Args: []string{}, Err: err}
	}
	return path, nil
}

// NewExecutor returns an Executor for an already-resolved binary path.
func NewExecutor(binary string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		binary: binary,
		logger: logger,
		tracer: otel.Tracer("github.com/Akashdeep-Patra/git-tools/internal/git"),
	}
}

// Binary returns the resolved git path.
func (e *Executor) Binary() string { return e.binary }

// Run executes git in inv.Dir. A missing or non-directory Dir fails with
// KindInvalidRepoPath before anything is spawned.
func (e *Executor) Run(ctx context.Context, inv Invocation) (*CommandOutcome, error) {
	info, err := os.Stat(inv.Dir)
	if inv.Dir == "" || err != nil || !info.IsDir() {
		return nil, &Error{Kind: KindInvalidRepoPath, Args: inv.Args, Dir: inv.Dir, Err: err}
	}
	return e.run(ctx, inv)
}

// RunBare executes git without a working directory. Used for version and
// diagnostic probes only.
func (e *Executor) RunBare(ctx context.Context, timeout time.Duration, args ...string) (*CommandOutcome, error) {
	return e.run(ctx, Invocation{Args: args, Timeout: timeout})
}

func (e *Executor) run(ctx context.Context, inv Invocation) (*CommandOutcome, error) {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, span := e.tracer.Start(ctx, spanName(inv.Args), trace.WithAttributes(
		attribute.StringSlice("git.args", inv.Args),
		attribute.String("git.dir", inv.Dir),
	))
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = append(append(os.Environ(), baseEnv...), inv.Env...)
	cmd.Stdin = inv.Stdin
	cmd.WaitDelay = waitDelay
	configureCommand(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("git start", "args", inv.Args, "dir", inv.Dir)
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	outcome := &CommandOutcome{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: elapsed,
	}
	span.SetAttributes(attribute.Int("git.exit_code", outcome.ExitCode))

	if runErr == nil {
		e.logger.Debug("git done", "args", inv.Args, "exit_code", 0, "duration", elapsed)
		return outcome, nil
	}

	gerr := e.classify(ctx, runCtx, inv, outcome, timeout, runErr)
	span.RecordError(gerr)
	span.SetStatus(codes.Error, gerr.Kind.String())
	e.logger.Debug("git failed",
		"args", inv.Args,
		"kind", gerr.Kind.String(),
		"exit_code", outcome.ExitCode,
		"duration", elapsed,
	)
	return nil, gerr
}

func (e *Executor) classify(parent, runCtx context.Context, inv Invocation, out *CommandOutcome, timeout time.Duration, runErr error) *Error {
	gerr := &Error{
		Args:     inv.Args,
		Dir:      inv.Dir,
		ExitCode: out.ExitCode,
		Stdout:   string(out.Stdout),
		Stderr:   string(out.Stderr),
		Err:      runErr,
	}
	switch {
	case parent.Err() != nil:
		gerr.Kind = KindIO
		gerr.Err = parent.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		gerr.Kind = KindTimeout
		gerr.Timeout = timeout.Seconds()
	case errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist):
		gerr.Kind = KindBinaryNotFound
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			gerr.Kind = Classify(gerr.Stdout, gerr.Stderr)
		} else {
			gerr.Kind = KindIO
		}
	}
	return gerr
}

func spanName(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return "git " + a
		}
	}
	return "git"
}

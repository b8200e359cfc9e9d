package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Akashdeep-Patra/git-tools/internal/app"
	"github.com/Akashdeep-Patra/git-tools/internal/git"
	"github.com/Akashdeep-Patra/git-tools/internal/ui"
)

// emit writes res as indented JSON, or styled when --pretty is set. A
// sequencer step that did not succeed is printed first and then reported
// so the exit code reflects it.
func (c *cli) emit(res any) error {
	var err error
	if c.pretty {
		err = renderPretty(ui.NewPrinter(c.stdout, 0), c.stdout, res)
	} else {
		err = writeJSON(c.stdout, res)
	}
	if err != nil {
		return err
	}
	if r, ok := res.(*git.CommandResult); ok && !r.Success {
		if r.Conflicted {
			return errStopped
		}
		return errStepFailed
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPretty(p *ui.Printer, w io.Writer, res any) error {
	switch r := res.(type) {
	case *app.StatusReport:
		return p.Status(ui.Summary{
			Branch:   r.Branch,
			Ahead:    r.Ahead,
			Behind:   r.Behind,
			State:    r.State,
			RepoRoot: r.Repo,
		}, r.Status)
	case []git.DiffFile:
		return p.Diff(r)
	case *app.CommitDetails:
		return p.Diff(r.Diff)
	case *app.Done:
		return p.Message(r.Message)
	case []git.Commit:
		return p.Commits(r)
	case []git.Branch:
		return p.Branches(r)
	case []git.StashEntry:
		return p.Stashes(r)
	case *git.OperationState:
		return p.OperationState(r)
	case []string:
		return p.Paths("Conflicts", r)
	case *git.ConflictFile:
		return p.Conflict(r)
	case []git.RebaseTodoItem:
		return p.RebasePlan(r)
	case *git.CommandResult:
		return p.CommandResult(r)
	case *git.FullRebaseStatus:
		return p.RebaseStatus(r)
	case *git.Diagnostics:
		return p.Diagnostics(r)
	case string:
		_, err := io.WriteString(w, r)
		return err
	case *app.RawOutput:
		_, err := io.WriteString(w, r.Stdout)
		return err
	default:
		return writeJSON(w, res)
	}
}

// errorPayload is the JSON shape of a failure on stderr.
type errorPayload struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Args     []string `json:"args,omitempty"`
	ExitCode int      `json:"exitCode,omitempty"`
	Stderr   string   `json:"stderr,omitempty"`
}

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitConflict = 2
)

// report prints err (if any) and maps it to an exit code. Conflicts exit
// with exitConflict so scripts can tell them from failures.
func (c *cli) report(err error) int {
	if err == nil {
		return exitOK
	}
	switch {
	case errors.Is(err, errStopped):
		return exitConflict
	case errors.Is(err, errStepFailed):
		return exitError
	}

	body := errorBody{Kind: "error", Message: err.Error()}
	var gerr *git.Error
	if errors.As(err, &gerr) {
		body.Kind = gerr.Kind.String()
		body.Args = gerr.Args
		body.ExitCode = gerr.ExitCode
		body.Stderr = gerr.Stderr
	}

	if c.pretty {
		s := ui.NewPrinter(c.stderr, 0).Styles()
		fmt.Fprintln(c.stderr, s.Error.Render("error: "+err.Error()))
	} else {
		_ = writeJSON(c.stderr, errorPayload{Error: body})
	}

	if errors.Is(err, git.ErrMergeConflict) {
		return exitConflict
	}
	return exitError
}

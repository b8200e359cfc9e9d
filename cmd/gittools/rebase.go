package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Akashdeep-Patra/git-tools/internal/app"
	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

// planFile is the YAML form of a rebase plan, as written by
// `rebase plan --yaml` and read by `rebase apply --plan`.
type planFile struct {
	Base  string               `yaml:"base"`
	Steps []git.RebaseTodoItem `yaml:"steps"`
}

var planActions = []string{"pick", "reword", "edit", "squash", "fixup", "drop"}

func decodePlan(r io.Reader) (*planFile, error) {
	var plan planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	for i, step := range plan.Steps {
		if step.CommitHash == "" {
			return nil, fmt.Errorf("plan step %d: commit is required", i+1)
		}
		if step.Action == "" {
			plan.Steps[i].Action = "pick"
		} else if !slices.Contains(planActions, step.Action) {
			return nil, fmt.Errorf("plan step %d: unknown action %q", i+1, step.Action)
		}
	}
	return &plan, nil
}

func (c *cli) buildRebaseCmd() *cobra.Command {
	rebaseCmd := &cobra.Command{
		Use:   "rebase",
		Short: "Plan, run and steer interactive rebases",
		Long: `Plan, run and steer interactive rebases.

A step that stops on conflicts is reported as a result with
"conflicted": true and exit code 2, not as an error.`,
	}

	var asYAML bool
	plan := &cobra.Command{
		Use:   "plan <base>",
		Short: "List the commits a rebase onto base would replay, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !asYAML {
				return c.dispatch(cmd, app.RebasePlanOp{Base: args[0]})
			}
			res, err := c.app.Dispatch(cmd.Context(), c.repo, app.RebasePlanOp{Base: args[0]})
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(c.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(planFile{Base: args[0], Steps: res.([]git.RebaseTodoItem)}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	plan.Flags().BoolVar(&asYAML, "yaml", false, "Write an editable plan file")

	var planPath string
	apply := &cobra.Command{
		Use:   "apply --plan <file> [base]",
		Short: "Run an interactive rebase that follows a plan file",
		Long: `Run an interactive rebase that follows a plan file.

The file is the YAML written by "rebase plan --yaml"; "-" reads stdin.
Reorder, drop or change the action of steps, then apply. A base given on
the command line overrides the file's.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := c.openInput(planPath)
			if err != nil {
				return err
			}
			defer raw.Close()
			p, err := decodePlan(raw)
			if err != nil {
				return err
			}
			if base := optionalArg(args, 0); base != "" {
				p.Base = base
			}
			if p.Base == "" {
				return fmt.Errorf("rebase apply: no base in plan or arguments")
			}
			return c.dispatch(cmd, app.RebaseApplyOp{Base: p.Base, Items: p.Steps})
		},
	}
	apply.Flags().StringVar(&planPath, "plan", "", "Plan file (- for stdin)")
	_ = apply.MarkFlagRequired("plan")

	step := func(use, short string, op app.Operation) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.dispatch(cmd, op)
			},
		}
	}

	rebaseCmd.AddCommand(
		plan,
		apply,
		&cobra.Command{
			Use:   "start <base>",
			Short: "Rebase the current branch onto base",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.dispatch(cmd, app.RebaseStartOp{Base: args[0]})
			},
		},
		step("continue", "Continue after resolving conflicts", app.RebaseContinueOp{}),
		step("skip", "Skip the current commit", app.RebaseSkipOp{}),
		step("abort", "Abort and restore the original branch", app.RebaseAbortOp{}),
		step("status", "Report the rebase step and branches", app.RebaseStatusOp{}),
	)
	return rebaseCmd
}

// openInput opens name, or stdin for "-".
func (c *cli) openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(c.stdin), nil
	}
	return os.Open(name)
}

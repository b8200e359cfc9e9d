package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Akashdeep-Patra/git-tools/internal/app"
	"github.com/Akashdeep-Patra/git-tools/internal/git"
	"github.com/Akashdeep-Patra/git-tools/internal/ui"
)

func (c *cli) buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status, branch and operation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.dispatch(cmd, app.StatusOp{})
		},
	}
}

func (c *cli) buildDiffCmd() *cobra.Command {
	var staged bool
	cmd := &cobra.Command{
		Use:   "diff [path]",
		Short: "Show the structured diff of unstaged (or staged) changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.DiffOp{Path: optionalArg(args, 0), Staged: staged})
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "Diff the index against HEAD")
	return cmd
}

func (c *cli) buildShowCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "show <commit>",
		Short: "Show a commit's changed files and diff, or one file at that commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				return c.dispatch(cmd, app.FileAtCommitOp{Hash: args[0], Path: path})
			}
			return c.dispatch(cmd, app.ShowCommitOp{Hash: args[0]})
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "Print this file's content at the commit")
	return cmd
}

func (c *cli) buildContentsCmd() *cobra.Command {
	var staged bool
	cmd := &cobra.Command{
		Use:   "contents <path>",
		Short: "Print both sides of a file's diff, decoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.FileContentsOp{Path: args[0], Staged: staged})
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "Compare HEAD with the index instead of the index with the work tree")
	return cmd
}

func (c *cli) buildStageCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stage [paths...]",
		Short: "Stage files, or every change outside excluded_files with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return c.dispatch(cmd, app.StageAllOp{})
			}
			if len(args) == 0 {
				return fmt.Errorf("stage: give paths or --all")
			}
			return c.dispatch(cmd, app.StageOp{Paths: args})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Stage all changes")
	return cmd
}

func (c *cli) buildUnstageCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "unstage [paths...]",
		Short: "Unstage files, or everything with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return c.dispatch(cmd, app.UnstageAllOp{})
			}
			if len(args) == 0 {
				return fmt.Errorf("unstage: give paths or --all")
			}
			return c.dispatch(cmd, app.UnstageOp{Paths: args})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Unstage everything")
	return cmd
}

func (c *cli) buildLineCmd(use, short string, unstage bool) *cobra.Command {
	var sel git.LineSelection
	cmd := &cobra.Command{
		Use:   use + " --old N | --new N <path>",
		Short: short,
		Long: short + `.

--old selects a removed line by its old line number, --new an added line by
its new line number; both together select a one-line modification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if unstage {
				return c.dispatch(cmd, app.UnstageLineOp{Path: args[0], Selection: sel})
			}
			return c.dispatch(cmd, app.StageLineOp{Path: args[0], Selection: sel})
		},
	}
	cmd.Flags().IntVar(&sel.OldLine, "old", 0, "Old line number of a removed line")
	cmd.Flags().IntVar(&sel.NewLine, "new", 0, "New line number of an added line")
	return cmd
}

func (c *cli) buildDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <paths...>",
		Short: "Discard work tree changes to files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.DiscardOp{Paths: args})
		},
	}
}

func (c *cli) buildCommitCmd() *cobra.Command {
	var (
		message string
		amend   bool
	)
	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Commit the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.dispatch(cmd, app.CommitOp{Message: message, Amend: amend})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	cmd.Flags().BoolVar(&amend, "amend", false, "Amend HEAD instead")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func (c *cli) buildLogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log [path]",
		Short: "List commits, optionally following one file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.LogOp{Limit: limit, Path: optionalArg(args, 0)})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of commits")
	return cmd
}

func (c *cli) buildBranchCmd() *cobra.Command {
	branchCmd := &cobra.Command{
		Use:   "branch",
		Short: "List and manage branches",
	}

	var checkout, force bool
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch at HEAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.CreateBranchOp{Name: args[0], Checkout: checkout})
		},
	}
	create.Flags().BoolVar(&checkout, "checkout", false, "Switch to the new branch")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a local branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.DeleteBranchOp{Name: args[0], Force: force})
		},
	}
	del.Flags().BoolVarP(&force, "force", "f", false, "Delete even if unmerged")

	branchCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List local and remote branches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.dispatch(cmd, app.BranchesOp{})
			},
		},
		&cobra.Command{
			Use:   "current",
			Short: "Print the checked-out branch (short hash when detached)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.dispatch(cmd, app.CurrentBranchOp{})
			},
		},
		&cobra.Command{
			Use:   "switch <name>",
			Short: "Switch to a branch",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.dispatch(cmd, app.SwitchBranchOp{Name: args[0]})
			},
		},
		&cobra.Command{
			Use:   "ahead-behind",
			Short: "Count commits ahead of and behind the upstream",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.dispatch(cmd, app.AheadBehindOp{})
			},
		},
		create,
		del,
	)
	return branchCmd
}

func (c *cli) buildMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into HEAD (exit 2 on conflicts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.MergeOp{Branch: args[0]})
		},
	}
}

func (c *cli) buildFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [remote]",
		Short: "Fetch from a remote, or all remotes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.FetchOp{Remote: optionalArg(args, 0)})
		},
	}
}

func (c *cli) buildPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [remote] [branch]",
		Short: "Pull from the upstream or the given remote and branch",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.PullOp{Remote: optionalArg(args, 0), Branch: optionalArg(args, 1)})
		},
	}
}

func (c *cli) buildPushCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "push [remote] [branch]",
		Short: "Push to the upstream or the given remote and branch",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.PushOp{Remote: optionalArg(args, 0), Branch: optionalArg(args, 1), Force: force})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force push with lease")
	return cmd
}

func (c *cli) buildStashCmd() *cobra.Command {
	stashCmd := &cobra.Command{
		Use:   "stash",
		Short: "List, create and pop stashes",
	}

	var message string
	push := &cobra.Command{
		Use:   "push [path]",
		Short: "Stash all changes, or one file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.StashPushOp{Path: optionalArg(args, 0), Message: message})
		},
	}
	push.Flags().StringVarP(&message, "message", "m", "", "Stash message")

	stashCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stash entries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.dispatch(cmd, app.StashListOp{})
			},
		},
		push,
		&cobra.Command{
			Use:   "pop [index]",
			Short: "Pop a stash entry (default 0)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index := 0
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 0 {
						return fmt.Errorf("invalid stash index %q", args[0])
					}
					index = n
				}
				return c.dispatch(cmd, app.StashPopOp{Index: index})
			},
		},
	)
	return stashCmd
}

func (c *cli) buildStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Report merges, rebases, cherry-picks and reverts in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.dispatch(cmd, app.StateOp{})
		},
	}
}

func (c *cli) buildConflictsCmd() *cobra.Command {
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Inspect and resolve unmerged paths",
	}

	var contentFile string
	resolve := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Mark a path resolved, optionally writing its final content first",
		Long: `Mark a path resolved.

With --content FILE the file's bytes become the resolution; "-" reads
stdin. Without it the current work tree content is staged as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if contentFile == "" {
				return c.dispatch(cmd, app.MarkResolvedOp{Path: args[0]})
			}
			content, err := c.readInput(contentFile)
			if err != nil {
				return err
			}
			return c.dispatch(cmd, app.WriteResolutionOp{Path: args[0], Content: string(content)})
		},
	}
	resolve.Flags().StringVar(&contentFile, "content", "", "File holding the resolved content (- for stdin)")

	conflictsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List unmerged paths",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.dispatch(cmd, app.ConflictsOp{})
			},
		},
		&cobra.Command{
			Use:   "show <path>",
			Short: "Show the base, ours and theirs stages of a path",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.dispatch(cmd, app.ConflictShowOp{Path: args[0]})
			},
		},
		&cobra.Command{
			Use:   "ours <path>",
			Short: "Check out our side of a path (still unmerged)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.dispatch(cmd, app.ResolveOursOp{Path: args[0]})
			},
		},
		&cobra.Command{
			Use:   "theirs <path>",
			Short: "Check out their side of a path (still unmerged)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.dispatch(cmd, app.ResolveTheirsOp{Path: args[0]})
			},
		},
		resolve,
	)
	return conflictsCmd
}

func (c *cli) buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <git args...>",
		Short: "Run an arbitrary git command in the repository",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, app.RunOp{Args: args})
		},
	}
}

func (c *cli) buildDiagnosticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "Report the git version and binary, and the repository if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.dispatch(cmd, app.DiagnosticsOp{})
		},
	}
}

type reposInfo struct {
	Active       string   `json:"active"`
	Repositories []string `json:"repositories"`
}

func (c *cli) buildReposCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List the configured repositories and the active one",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := c.app.Config()
			repos := cfg.Repositories
			if repos == nil {
				repos = []string{}
			}
			return writeJSON(c.stdout, reposInfo{Active: cfg.ActiveRepo, Repositories: repos})
		},
	}
}

func (c *cli) buildWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a JSON line whenever repository state changes",
		Long: `Watch the repository's git directory and print one JSON object per
debounced change until interrupted. Only .git internals are watched, so
edits to work tree files show up once they are staged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			changes, cancel := c.app.Events().Subscribe(16)
			defer cancel()

			errc := make(chan error, 1)
			go func() { errc <- c.app.Watch(ctx, c.repo) }()

			var p *ui.Printer
			if c.pretty {
				p = ui.NewPrinter(c.stdout, 0)
			}
			enc := json.NewEncoder(c.stdout)
			for {
				select {
				case change, ok := <-changes:
					if !ok {
						return nil
					}
					if p != nil {
						if err := p.Message(fmt.Sprintf("%s changed (%s)", change.Repo, change.At.Format("15:04:05"))); err != nil {
							return err
						}
						continue
					}
					if err := enc.Encode(change); err != nil {
						return err
					}
				case err := <-errc:
					return err
				}
			}
		},
	}
}

// readInput reads name, or stdin for "-".
func (c *cli) readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(c.stdin)
	}
	return os.ReadFile(name)
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

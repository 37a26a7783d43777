package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/reduce"
)

// RunsResult holds the run records of one project.
type RunsResult struct {
	ProjectID string             `json:"project_id"`
	Runs      []execution.Result `json:"runs"`
	Failed    int                `json:"failed"`

	// ExitStatus is the status the project's exit policy reduces the runs
	// to. Omitted when there are no runs.
	ExitStatus *int   `json:"exit_status,omitempty"`
	Policy     string `json:"policy"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs <project-id>",
		Short: "List run records of a project",
		Long: `List the recorded runs of a project in start order, with the exit status
the project's exit policy reduces them to.

Examples:
  benchbuild runs --store ./bb.db 3f9a0c...
  benchbuild runs --store ./bb.db 3f9a0c... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRuns(opts *RootOptions, projectID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := openStore(ctx, opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	// Runs may outlive or predate their project row; an unknown project
	// reduces with the default policy.
	policy := reduce.Policy(reduce.Max{})
	p, err := st.GetProject(ctx, projectID)
	switch {
	case err == nil:
		if policy, err = reduce.ParsePolicy(p.ExitPolicy); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalid, "invalid exit policy", err)
		}
	case isNotFound(err):
		formatter.VerboseLog("Project %s not in store, using policy %s", projectID, policy)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read project", err)
	}

	runs, err := st.ListRuns(ctx, projectID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	result := RunsResult{ProjectID: projectID, Runs: runs, Policy: policy.String()}
	for _, r := range runs {
		if r.Failed() {
			result.Failed++
		}
	}
	if code, err := (reduce.Reducer{Policy: policy}).Reduce(runs); err == nil {
		result.ExitStatus = &code
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	outputRunsText(formatter.Writer, result, opts.Verbose)
	return nil
}

func outputRunsText(w io.Writer, result RunsResult, verbose bool) {
	if len(result.Runs) == 0 {
		fmt.Fprintf(w, "No runs found for project: %s\n", result.ProjectID)
		return
	}

	fmt.Fprintf(w, "=== Runs for %s (%d) ===\n", result.ProjectID, len(result.Runs))
	for i, r := range result.Runs {
		fmt.Fprintf(w, "  [%d] %s %s exit=%d duration=%s",
			i+1, r.StartedAt.UTC().Format(time.RFC3339), r.Label, r.ExitCode, r.Duration)
		if r.Killed {
			fmt.Fprintf(w, " killed (%s)", r.KillReason)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", r.ID)
			fmt.Fprintf(w, "       Command: %s\n", r.CommandString())
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "  Failed:      %d of %d\n", result.Failed, len(result.Runs))
	if result.ExitStatus != nil {
		fmt.Fprintf(w, "  Exit status: %d (%s)\n", *result.ExitStatus, result.Policy)
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boehmseb/benchbuild/internal/project"
)

// ProjectView is the listing form of a project.
type ProjectView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group,omitempty"`
	Domain     string `json:"domain,omitempty"`
	Version    string `json:"version,omitempty"`
	DetectName bool   `json:"detect_name"`
	ExitPolicy string `json:"exit_policy"`
	Steps      int    `json:"steps"`
	Record     bool   `json:"record"`
	Archive    bool   `json:"archive"`
}

func newProjectView(r project.Record) ProjectView {
	policy := r.ExitPolicy
	if policy == "" {
		policy = "max"
	}
	return ProjectView{
		ID:         r.ID,
		Name:       r.Name,
		Group:      r.Group,
		Domain:     r.Domain,
		Version:    r.Version,
		DetectName: r.DetectName,
		ExitPolicy: policy,
		Steps:      len(r.Instrumentation.Steps),
		Record:     r.Instrumentation.Record,
		Archive:    r.Instrumentation.Archive,
	}
}

// NewProjectsCommand creates the projects command.
func NewProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects in the store",
		Long: `List every project the shims have persisted, ordered by group and name.

Examples:
  benchbuild projects --store ./bb.db
  benchbuild projects --store postgres://bb@localhost/bb --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects(rootOpts, cmd)
		},
	}
	return cmd
}

func runProjects(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openStore(cmd.Context(), opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListProjects(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list projects", err)
	}

	views := make([]ProjectView, 0, len(records))
	for _, r := range records {
		views = append(views, newProjectView(r))
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: views})
	}
	outputProjectsText(formatter.Writer, views)
	return nil
}

func outputProjectsText(w io.Writer, views []ProjectView) {
	fmt.Fprintf(w, "=== Projects (%d) ===\n", len(views))
	if len(views) == 0 {
		fmt.Fprintln(w, "  (no projects)")
		return
	}
	for _, v := range views {
		fmt.Fprintf(w, "  %s [%s]\n", projectTitle(v), v.ID)
		fmt.Fprintf(w, "       policy=%s steps=%d%s\n", v.ExitPolicy, v.Steps, projectFlags(v))
	}
}

func projectTitle(v ProjectView) string {
	title := v.Name
	if v.Group != "" {
		title = v.Group + "/" + title
	}
	if v.Version != "" {
		title += " " + v.Version
	}
	return title
}

func projectFlags(v ProjectView) string {
	var flags []string
	if v.Steps == 0 {
		flags = append(flags, "pass-through")
	}
	if v.DetectName {
		flags = append(flags, "detect-name")
	}
	if v.Record {
		flags = append(flags, "record")
	}
	if v.Archive {
		flags = append(flags, "archive")
	}
	if len(flags) == 0 {
		return ""
	}
	return " " + strings.Join(flags, " ")
}

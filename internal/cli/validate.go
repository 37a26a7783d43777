package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/boehmseb/benchbuild/internal/instrument"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/reduce"
	"github.com/boehmseb/benchbuild/internal/schema"
)

// ValidationResult holds validation results of all files.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// FileResult is the validation result of one project record.
type FileResult struct {
	Path      string   `json:"path"`
	Valid     bool     `json:"valid"`
	ProjectID string   `json:"project_id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Steps     int      `json:"steps"`
	Errors    []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <project.yaml>...",
		Short: "Validate project records",
		Long: `Validate project records against the record schema and check their
instrumentation steps and exit policy.

Examples:
  benchbuild validate projects/x264.yaml
  benchbuild validate --format json projects/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fr, err := validateFile(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("project record not found: %s", path), err)
		}
		if !fr.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fr)
	}

	if opts.Format == "json" {
		status := "ok"
		if !result.Valid {
			status = "error"
		}
		if err := formatter.JSON(CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: validation failed", ErrCodeInvalid))
	}
	return nil
}

// validateFile checks one record. Only a missing file is an error; every
// other problem is reported in the result.
func validateFile(path string) (FileResult, error) {
	fr := FileResult{Path: path}

	var r project.Record
	if err := schema.DecodeFile(path, schema.Project, &r); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fr, err
		}
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			fr.Errors = verr.Messages
		} else {
			fr.Errors = []string{err.Error()}
		}
		return fr, nil
	}
	r.EnsureID()
	fr.ProjectID = r.ID
	fr.Name = r.Name
	fr.Steps = len(r.Instrumentation.Steps)

	fr.Errors = recordErrors(r)
	fr.Valid = len(fr.Errors) == 0
	return fr, nil
}

// recordErrors runs the checks the schema cannot express.
func recordErrors(r project.Record) []string {
	var errs []string
	if err := instrument.Check(r.Instrumentation); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := reduce.ParsePolicy(r.ExitPolicy); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer
	for _, fr := range result.Files {
		if fr.Valid {
			fmt.Fprintf(w, "✓ %s: %s [%s] (%s)\n", fr.Path, fr.Name, fr.ProjectID, stepCount(fr.Steps))
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fr.Path)
		for _, e := range fr.Errors {
			fmt.Fprintf(w, "  %s: %s\n", ErrCodeInvalid, e)
		}
	}
}

func stepCount(n int) string {
	switch n {
	case 0:
		return "pass-through"
	case 1:
		return "1 step"
	default:
		return fmt.Sprintf("%d steps", n)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/boehmseb/benchbuild/internal/artifacts"
	"github.com/boehmseb/benchbuild/internal/config"
	"github.com/boehmseb/benchbuild/internal/config/env"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/schema"
	"github.com/boehmseb/benchbuild/internal/toolchain"
)

// ShimBinary is the name of the shim executable installed next to the CLI.
const ShimBinary = "bbshim"

// InstallOptions holds flags for the install command.
type InstallOptions struct {
	*RootOptions
	Compiler string
	Project  string
	OutDir   string
	Name     string
	Shim     string
	Force    bool

	LogLevel  string
	LogFormat string
	LogFile   string

	Artifacts artifacts.Config
}

// InstallResult describes an installed shim.
type InstallResult struct {
	Shim        string `json:"shim"`
	ShimBinary  string `json:"shim_binary"`
	Manifest    string `json:"manifest"`
	CompilerRef string `json:"compiler_ref"`
	ProjectRef  string `json:"project_ref"`
	Compiler    string `json:"compiler"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Steps       int    `json:"steps"`
	Store       string `json:"store,omitempty"`
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InstallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a compiler shim",
		Long: `Install a shim that stands in for a compiler.

Writes the compiler reference, the project record and the shim manifest to
the output directory and links the shim binary there under the compiler's
name. Put the output directory first in PATH (or point CC at the shim) to
route a build's compile invocations through it.

When a store is configured the project is registered in it.

Examples:
  benchbuild install --compiler clang --project x264.yaml --out ./bin --store ./bb.db
  benchbuild install --compiler /usr/bin/gcc --name cc --project zlib.yaml --out ./bin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Compiler, "compiler", "", "compiler name or path (required)")
	_ = cmd.MarkFlagRequired("compiler")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project record file (required)")
	_ = cmd.MarkFlagRequired("project")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().StringVar(&opts.Name, "name", "", "shim name (default: compiler basename)")
	cmd.Flags().StringVar(&opts.Shim, "shim", "", "shim binary (default: "+ShimBinary+" next to this binary or in PATH)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "replace an existing shim")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "shim log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "shim log format (text|json)")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "shim log file (default: stderr)")
	cmd.Flags().StringVar(&opts.Artifacts.Endpoint, "artifacts-endpoint", "", "object store endpoint for archived output")
	cmd.Flags().StringVar(&opts.Artifacts.Bucket, "artifacts-bucket", "", "object store bucket")
	cmd.Flags().StringVar(&opts.Artifacts.Region, "artifacts-region", "", "object store region")
	cmd.Flags().BoolVar(&opts.Artifacts.UseSSL, "artifacts-ssl", false, "use TLS for the object store")

	return cmd
}

func runInstall(opts *InstallOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	cc, err := toolchain.Resolve(opts.Compiler)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompiler, "compiler not found", err)
	}
	formatter.VerboseLog("Resolved compiler %s to %s", opts.Compiler, cc.Path)

	fr, err := validateFile(opts.Project)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("project record not found: %s", opts.Project), err)
	}
	if !fr.Valid {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, fmt.Sprintf("invalid project record: %s", opts.Project), errors.New(fr.Errors[0]))
	}
	var rec project.Record
	if err := schema.DecodeFile(opts.Project, schema.Project, &rec); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, "invalid project record", err)
	}
	rec.EnsureID()

	shimBinary, err := findShimBinary(opts.Shim)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "shim binary not found", err)
	}
	if sameFile(cc.Path, shimBinary) {
		return formatter.Fail(ExitCommandError, ErrCodeCompiler,
			fmt.Sprintf("compiler %s resolves to the shim itself; remove the shim directory from PATH", opts.Compiler), nil)
	}

	if err := checkServices(rec, opts.Store, opts.Artifacts); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, err.Error(), nil)
	}

	artifactsCfg := opts.Artifacts
	if artifactsCfg.Enabled() {
		artifactsCfg.AccessKey = env.String("BB_ARTIFACTS_ACCESS_KEY", "")
		artifactsCfg.SecretKey = env.String("BB_ARTIFACTS_SECRET_KEY", "")
		if err := ensureBucket(ctx, artifactsCfg); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArtifacts, "object store unavailable", err)
		}
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(cc.Path)
	}
	outDir, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid output directory", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "cannot create output directory", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid store path", err)
	}
	storeDSN := config.ResolveStore(opts.Store, cwd)

	result := InstallResult{
		Shim:        filepath.Join(outDir, name),
		ShimBinary:  shimBinary,
		Manifest:    filepath.Join(outDir, name+config.ManifestSuffix),
		CompilerRef: filepath.Join(outDir, name+".compiler.yaml"),
		ProjectRef:  filepath.Join(outDir, name+".project.yaml"),
		Compiler:    cc.Path,
		ProjectID:   rec.ID,
		ProjectName: rec.Name,
		Steps:       len(rec.Instrumentation.Steps),
		Store:       storeDSN,
	}

	if err := toolchain.Save(result.CompilerRef, cc); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "cannot write compiler reference", err)
	}
	if err := project.SaveRecord(result.ProjectRef, rec); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "cannot write project record", err)
	}
	manifest := config.Manifest{
		Compiler: filepath.Base(result.CompilerRef),
		Project:  filepath.Base(result.ProjectRef),
		Store:    storeDSN,
		Log: config.Log{
			Level:  opts.LogLevel,
			Format: opts.LogFormat,
			File:   opts.LogFile,
		},
		// Credentials stay in the environment of the build.
		Artifacts: artifacts.Config{
			Endpoint: artifactsCfg.Endpoint,
			Bucket:   artifactsCfg.Bucket,
			Region:   artifactsCfg.Region,
			UseSSL:   artifactsCfg.UseSSL,
		},
	}
	if err := config.SaveManifest(result.Manifest, manifest); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "cannot write manifest", err)
	}
	if err := linkShim(shimBinary, result.Shim, opts.Force); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "cannot link shim", err)
	}

	if storeDSN != "" {
		st, err := openStore(ctx, &RootOptions{Store: storeDSN, Verbose: opts.Verbose}, formatter)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.UpsertProject(ctx, rec); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "cannot register project", err)
		}
		formatter.VerboseLog("Registered project %s in %s", rec.ID, storeDSN)
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	outputInstallText(formatter, result, name)
	return nil
}

// checkServices rejects records whose shim would abort on every
// invocation for lack of a store or object store.
func checkServices(rec project.Record, storeDSN string, objects artifacts.Config) error {
	in := rec.Instrumentation
	if !in.Enabled() {
		return nil
	}
	if storeDSN == "" && (rec.DetectName || in.Record) {
		return fmt.Errorf("project %s persists to the store but no store is configured", rec.ID)
	}
	if in.Archive && !objects.Enabled() {
		return fmt.Errorf("project %s archives output but no object store is configured", rec.ID)
	}
	return nil
}

// findShimBinary returns the shim executable: explicit, next to the
// running binary, or from PATH.
func findShimBinary(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return filepath.Abs(explicit)
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), ShimBinary)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(ShimBinary)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func linkShim(target, link string, force bool) error {
	if _, err := os.Lstat(link); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to replace)", link)
		}
		if err := os.Remove(link); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(target, link)
}

func ensureBucket(ctx context.Context, cfg artifacts.Config) error {
	objects, err := artifacts.NewMinIO(cfg)
	if err != nil {
		return err
	}
	return objects.EnsureBucket(ctx, cfg.Region)
}

func outputInstallText(formatter *OutputFormatter, r InstallResult, name string) {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Installed shim %s\n", name)
	fmt.Fprintf(w, "  shim:     %s -> %s\n", r.Shim, r.ShimBinary)
	fmt.Fprintf(w, "  compiler: %s\n", r.Compiler)
	fmt.Fprintf(w, "  project:  %s [%s] (%s)\n", r.ProjectName, r.ProjectID, stepCount(r.Steps))
	fmt.Fprintf(w, "  manifest: %s\n", r.Manifest)
	if r.Store != "" {
		fmt.Fprintf(w, "  store:    %s\n", r.Store)
	}
}

// Package config loads the manifest a generated shim reads at startup.
//
// The manifest lives next to the installed shim (<shim>.yaml) and names the
// compiler reference, the project record, the store and the log settings.
// Environment variables override individual settings:
//
//	BB_SHIM_MANIFEST       manifest path
//	BB_STORE               store DSN (sqlite path or postgres:// URL)
//	BB_LOG_LEVEL           debug|info|warn|error
//	BB_LOG_FORMAT          text|json
//	BB_LOG_FILE            log file path
//	BB_ARTIFACTS_ENDPOINT  object store endpoint
//	BB_ARTIFACTS_BUCKET    object store bucket
//	BB_ARTIFACTS_REGION    object store region
//	BB_ARTIFACTS_ACCESS_KEY / BB_ARTIFACTS_SECRET_KEY
//	BB_ARTIFACTS_USE_SSL   true|false
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boehmseb/benchbuild/internal/artifacts"
	"github.com/boehmseb/benchbuild/internal/config/env"
	"github.com/boehmseb/benchbuild/internal/logging"
	"github.com/boehmseb/benchbuild/internal/schema"
)

// ManifestSuffix is appended to the shim path to find its manifest.
const ManifestSuffix = ".yaml"

// Log holds the shim's log settings.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// Manifest is the configuration of one installed shim.
type Manifest struct {
	Compiler  string           `yaml:"compiler"`
	Project   string           `yaml:"project"`
	Store     string           `yaml:"store,omitempty"`
	Log       Log              `yaml:"log,omitempty"`
	Artifacts artifacts.Config `yaml:"artifacts,omitempty"`

	// Dir is the directory the manifest was loaded from.
	Dir string `yaml:"-"`
}

// Logging returns the log settings as a logging.Config.
func (m Manifest) Logging() logging.Config {
	return logging.Config{Level: m.Log.Level, Format: m.Log.Format, File: m.Log.File}
}

// ShimPath returns the path the shim was started through. When argv0 is a
// bare name the build system found it in PATH, so it is looked up there;
// os.Executable would resolve the symlink to the shim binary instead.
func ShimPath(argv0 string) (string, error) {
	if strings.ContainsRune(argv0, filepath.Separator) {
		return filepath.Abs(argv0)
	}
	path, err := exec.LookPath(argv0)
	if err != nil {
		return "", fmt.Errorf("locate shim %q: %w", argv0, err)
	}
	return filepath.Abs(path)
}

// ManifestPath returns the manifest path for a shim started as argv0.
func ManifestPath(argv0 string) (string, error) {
	if p := env.String("BB_SHIM_MANIFEST", ""); p != "" {
		return p, nil
	}
	shim, err := ShimPath(argv0)
	if err != nil {
		return "", err
	}
	return shim + ManifestSuffix, nil
}

// LoadManifest reads and validates a manifest, applies environment
// overrides and resolves relative paths against the manifest directory.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if err := schema.DecodeFile(path, schema.Manifest, &m); err != nil {
		return Manifest{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Manifest{}, err
	}
	m.Dir = filepath.Dir(abs)

	if err := m.applyEnv(); err != nil {
		return Manifest{}, err
	}

	m.Compiler = m.resolve(m.Compiler)
	m.Project = m.resolve(m.Project)
	m.Log.File = m.resolve(m.Log.File)
	m.Store = ResolveStore(m.Store, m.Dir)
	return m, nil
}

func (m *Manifest) applyEnv() error {
	m.Store = env.String("BB_STORE", m.Store)
	m.Log.Level = env.String("BB_LOG_LEVEL", m.Log.Level)
	m.Log.Format = env.String("BB_LOG_FORMAT", m.Log.Format)
	m.Log.File = env.String("BB_LOG_FILE", m.Log.File)

	a := &m.Artifacts
	a.Endpoint = env.String("BB_ARTIFACTS_ENDPOINT", a.Endpoint)
	a.Bucket = env.String("BB_ARTIFACTS_BUCKET", a.Bucket)
	a.Region = env.String("BB_ARTIFACTS_REGION", a.Region)
	a.AccessKey = env.String("BB_ARTIFACTS_ACCESS_KEY", a.AccessKey)
	a.SecretKey = env.String("BB_ARTIFACTS_SECRET_KEY", a.SecretKey)
	useSSL, err := env.Bool("BB_ARTIFACTS_USE_SSL", a.UseSSL)
	if err != nil {
		return err
	}
	a.UseSSL = useSSL
	return nil
}

func (m Manifest) resolve(p string) string {
	return resolvePath(p, m.Dir)
}

// IsURL reports whether dsn is a URL rather than a file path.
func IsURL(dsn string) bool {
	return strings.Contains(dsn, "://")
}

// ResolveStore makes the file part of a SQLite DSN absolute against base.
// Both the plain path and the sqlite:// form are resolved; every compiler
// invocation runs in a different directory and must reach the same file.
// Other URLs are returned unchanged.
func ResolveStore(dsn, base string) string {
	switch {
	case dsn == "":
		return dsn
	case strings.HasPrefix(dsn, sqliteScheme):
		return sqliteScheme + resolvePath(strings.TrimPrefix(dsn, sqliteScheme), base)
	case IsURL(dsn):
		return dsn
	default:
		return resolvePath(dsn, base)
	}
}

const sqliteScheme = "sqlite://"

func resolvePath(p, base string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// SaveManifest writes m to path. Paths are written as given.
func SaveManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

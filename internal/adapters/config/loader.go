// Package config provides the configuration loader for voo.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file searched for from the working
// directory upward.
const FileName = "voo.yaml"

// Loader builds domain.Options from an optional voo.yaml and environment
// overrides. A missing config file is not an error; everything has a default.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads configuration starting at cwd.
// Precedence: defaults < config file < environment.
func (l *Loader) Load(cwd string) (domain.Options, error) {
	opts := domain.Options{
		PersistBudget: domain.DefaultPersistBudget,
		Verbosity:     domain.VerbosityWarning,
	}

	path, found := l.findConfiguration(cwd)
	if found {
		if err := l.applyFile(path, &opts); err != nil {
			return domain.Options{}, err
		}
	}
	applyEnv(&opts)

	if opts.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			// No resolvable user cache dir; fall back to a dot directory.
			base = "."
		}
		opts.CacheDir = filepath.Join(base, domain.DefaultCacheDirName)
	}
	return opts, nil
}

func (l *Loader) findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		path := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

func (l *Loader) applyFile(path string, opts *domain.Options) error {
	//nolint:gosec // Path was discovered by walking up from the working directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	base := filepath.Dir(path)
	if f.Cache.Location != "" {
		opts.CacheDir = resolvePath(base, f.Cache.Location)
	}
	opts.CacheOnly = f.Cache.Only
	opts.NoPersist = f.Persist.Disabled
	if f.Persist.BudgetMS > 0 {
		opts.PersistBudget = time.Duration(f.Persist.BudgetMS) * time.Millisecond
	}
	for _, src := range f.Trust.Sources {
		opts.TrustSources = append(opts.TrustSources, resolvePath(base, src))
	}
	if f.Trust.Root != "" {
		opts.TrustedRoot = resolvePath(base, f.Trust.Root)
	}
	if f.Log != "" {
		opts.Verbosity = domain.Verbosity(f.Log)
	}
	return nil
}

func applyEnv(opts *domain.Options) {
	if v := os.Getenv("VOO_CACHE_DIR"); v != "" {
		opts.CacheDir = v
	}
	if v := os.Getenv("VOO_CACHE_ONLY"); v != "" {
		opts.CacheOnly = isTruthy(v)
	}
	if v := os.Getenv("VOO_NO_PERSIST"); v != "" {
		opts.NoPersist = isTruthy(v)
	}
	if v := os.Getenv("VOO_PERSIST_BUDGET_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			opts.PersistBudget = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("VOO_TRUST_SOURCE"); v != "" {
		opts.TrustSources = append([]string{v}, opts.TrustSources...)
	}
	if v := os.Getenv("VOO_TRUSTED_ROOT"); v != "" {
		opts.TrustedRoot = v
	}
	if v := os.Getenv("VOO_LOG"); v != "" {
		opts.Verbosity = domain.Verbosity(v)
	}
}

func isTruthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/voo/internal/adapters/config"
	"go.trai.ch/voo/internal/core/domain"
)

func TestLoader_Defaults(t *testing.T) {
	opts, err := config.NewLoader().Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultPersistBudget, opts.PersistBudget)
	assert.Equal(t, domain.VerbosityWarning, opts.Verbosity)
	assert.False(t, opts.CacheOnly)
	assert.False(t, opts.NoPersist)
	assert.NotEmpty(t, opts.CacheDir)
}

func TestLoader_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
cache:
  location: .voo-cache
  only: true
persist:
  disabled: true
  budgetMs: 250
trust:
  sources:
    - package-lock.json
  root: node_modules
log: verbose
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(content), 0o644))

	opts, err := config.NewLoader().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".voo-cache"), opts.CacheDir)
	assert.True(t, opts.CacheOnly)
	assert.True(t, opts.NoPersist)
	assert.Equal(t, 250*time.Millisecond, opts.PersistBudget)
	assert.Equal(t, []string{filepath.Join(dir, "package-lock.json")}, opts.TrustSources)
	assert.Equal(t, filepath.Join(dir, "node_modules"), opts.TrustedRoot)
	assert.Equal(t, domain.VerbosityVerbose, opts.Verbosity)
}

func TestLoader_FindsFileInParent(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("log: info\n"), 0o644))

	opts, err := config.NewLoader().Load(nested)
	require.NoError(t, err)
	assert.Equal(t, domain.VerbosityInfo, opts.Verbosity)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("persist:\n  budgetMs: 250\n"), 0o644))

	t.Setenv("VOO_CACHE_DIR", "/tmp/elsewhere")
	t.Setenv("VOO_PERSIST_BUDGET_MS", "500")
	t.Setenv("VOO_NO_PERSIST", "1")
	t.Setenv("VOO_LOG", "info")

	opts, err := config.NewLoader().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/elsewhere", opts.CacheDir)
	assert.Equal(t, 500*time.Millisecond, opts.PersistBudget)
	assert.True(t, opts.NoPersist)
	assert.Equal(t, domain.VerbosityInfo, opts.Verbosity)
}

func TestLoader_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("cache: ["), 0o644))

	_, err := config.NewLoader().Load(dir)
	require.ErrorContains(t, err, domain.ErrConfigParseFailed.Error())
}

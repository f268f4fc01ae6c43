package reporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/backend"
	"github.com/ethereum-optimism/infra/op-reporter/backend/local"
	"github.com/ethereum-optimism/infra/op-reporter/backend/remote"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(Options{}, log.Root())
	require.NoError(t, err)

	assert.Equal(t, backend.ModeLocal, cfg.Mode)
	assert.Equal(t, backend.Mode(""), cfg.Fallback)
	assert.False(t, cfg.CaptureLogs)
	assert.Equal(t, defaultOutputDir, cfg.Backends.Local.OutputDir)
}

func TestNewConfig_OptionsOverrideDefaults(t *testing.T) {
	cfg, err := NewConfig(Options{
		Mode:        "remote",
		Fallback:    "local",
		CaptureLogs: true,
		Backends: backend.Config{
			Remote: remote.Config{
				BaseURL: "https://api.example.com",
				Token:   "secret",
				Project: "demo",
			},
			Local: local.Config{OutputDir: "out"},
		},
	}, log.Root())
	require.NoError(t, err)

	assert.Equal(t, backend.ModeRemote, cfg.Mode)
	assert.Equal(t, backend.ModeLocal, cfg.Fallback)
	assert.True(t, cfg.CaptureLogs)
	assert.Equal(t, "out", cfg.Backends.Local.OutputDir)
	assert.Equal(t, "https://api.example.com", cfg.Backends.Remote.BaseURL)
}

func TestNewConfig_EnvOverridesOptions(t *testing.T) {
	t.Setenv(EnvMode, "remote")
	t.Setenv(EnvFallback, "local")
	t.Setenv(EnvCaptureLogs, "true")
	t.Setenv(EnvAPIURL, "https://env.example.com")
	t.Setenv(EnvAPIToken, "env-token")
	t.Setenv(EnvProject, "env-project")
	t.Setenv(EnvRunID, "env-run")
	t.Setenv(EnvOutputDir, "env-out")

	cfg, err := NewConfig(Options{
		Mode: "local",
		Backends: backend.Config{
			Remote: remote.Config{BaseURL: "https://opts.example.com"},
		},
	}, log.Root())
	require.NoError(t, err)

	assert.Equal(t, backend.ModeRemote, cfg.Mode)
	assert.Equal(t, backend.ModeLocal, cfg.Fallback)
	assert.True(t, cfg.CaptureLogs)
	assert.Equal(t, "https://env.example.com", cfg.Backends.Remote.BaseURL)
	assert.Equal(t, "env-token", cfg.Backends.Remote.Token)
	assert.Equal(t, "env-project", cfg.Backends.Remote.Project)
	assert.Equal(t, "env-run", cfg.Backends.Remote.RunID)
	assert.Equal(t, "env-out", cfg.Backends.Local.OutputDir)
}

func TestNewConfig_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reporter.yaml")
	content := `mode: remote
fallback: local
capture_logs: true
remote:
  base_url: https://file.example.com
  token: file-token
  project: file-project
local:
  output_dir: file-out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewConfig(Options{ConfigFile: path}, log.Root())
	require.NoError(t, err)

	assert.Equal(t, backend.ModeRemote, cfg.Mode)
	assert.Equal(t, backend.ModeLocal, cfg.Fallback)
	assert.True(t, cfg.CaptureLogs)
	assert.Equal(t, "https://file.example.com", cfg.Backends.Remote.BaseURL)
	assert.Equal(t, "file-token", cfg.Backends.Remote.Token)
	assert.Equal(t, "file-project", cfg.Backends.Remote.Project)
	assert.Equal(t, "file-out", cfg.Backends.Local.OutputDir)
}

func TestNewConfig_OptionsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: remote\nlocal:\n  output_dir: file-out\n"), 0644))

	cfg, err := NewConfig(Options{
		ConfigFile: path,
		Mode:       "local",
		Backends: backend.Config{
			Local: local.Config{OutputDir: "opts-out"},
		},
	}, log.Root())
	require.NoError(t, err)

	assert.Equal(t, backend.ModeLocal, cfg.Mode)
	assert.Equal(t, "opts-out", cfg.Backends.Local.OutputDir)
}

func TestNewConfig_ExplicitMissingConfigFileFails(t *testing.T) {
	_, err := NewConfig(Options{
		ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"),
	}, log.Root())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewConfig_MalformedConfigFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unclosed"), 0644))

	_, err := NewConfig(Options{ConfigFile: path}, log.Root())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestNewConfig_InvalidModeFails(t *testing.T) {
	_, err := NewConfig(Options{Mode: "carrier-pigeon"}, log.Root())
	require.Error(t, err)
}

func TestNewConfig_FallbackEqualToModeIsDropped(t *testing.T) {
	cfg, err := NewConfig(Options{Mode: "local", Fallback: "local"}, log.Root())
	require.NoError(t, err)
	assert.Equal(t, backend.ModeLocal, cfg.Mode)
	assert.Equal(t, backend.Mode(""), cfg.Fallback)
}

func TestNewConfig_InvalidCaptureLogsEnvFails(t *testing.T) {
	t.Setenv(EnvCaptureLogs, "definitely")
	_, err := NewConfig(Options{}, log.Root())
	require.Error(t, err)
}

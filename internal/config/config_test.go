package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Use-Tusk/tusk-harness/internal/harness"
)

// evalSymlinks is a helper that resolves symlinks for path comparison
// On macOS, /var is a symlink to /private/var which causes test failures
func evalSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFindConfigFile_ParentTraversal(t *testing.T) {
	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	defer Invalidate()

	tmp := evalSymlinks(t.TempDir())
	configPath := filepath.Join(tmp, ".tusk", "harness.yaml")
	writeConfig(t, configPath, "service:\n  port: 8080")

	subdir := filepath.Join(tmp, "src", "handlers")
	require.NoError(t, os.MkdirAll(subdir, 0o750))
	require.NoError(t, os.Chdir(subdir))

	assert.Equal(t, configPath, findConfigFile())
}

func TestGet_AppliesDefaults(t *testing.T) {
	defer Invalidate()
	Invalidate()

	tmp := evalSymlinks(t.TempDir())
	configPath := filepath.Join(tmp, ".tusk", "harness.yaml")
	writeConfig(t, configPath, "service:\n  port: 8080\n")

	require.NoError(t, Load(configPath))
	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Service.Hostname)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, harness.DefaultOptions(), cfg.HarnessOptions())
	assert.Equal(t, harness.DefaultStartupTimeout, cfg.StartupTimeout())
	assert.Equal(t, harness.DefaultStartupInterval, cfg.StartupInterval())
	assert.Equal(t, 9080, cfg.MockServer.Port)
	assert.Equal(t, filepath.Join(tmp, ".tusk/scenarios"), cfg.Scenarios.Dir)
}

func TestGet_OptionsAndEnvOverrides(t *testing.T) {
	defer Invalidate()
	Invalidate()

	t.Setenv("TUSK_HARNESS_API_REQUEST_TIMEOUT", "250ms")
	t.Setenv("TUSK_HARNESS_ERROR_SUPPRESS_CASCADING", "false")

	tmp := evalSymlinks(t.TempDir())
	configPath := filepath.Join(tmp, "tusk-harness.yaml")
	writeConfig(t, configPath, `options:
  json_compare_depth: 8
  api_request_timeout: 2s
service:
  readiness:
    timeout: 5s
scenarios:
  dir: scenarios
`)

	require.NoError(t, Load(configPath))
	cfg, err := Get()
	require.NoError(t, err)

	opts := cfg.HarnessOptions()
	assert.Equal(t, 8, opts.JSONCompareDepth)
	assert.Equal(t, 250*time.Millisecond, opts.APIRequestTimeout)
	assert.False(t, opts.ErrorSuppressCascading)
	assert.Equal(t, 5*time.Second, cfg.StartupTimeout())
	assert.Equal(t, filepath.Join(tmp, "scenarios"), cfg.Scenarios.Dir)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Service:    ServiceConfig{Port: 70000, Readiness: ReadinessConfig{Timeout: "soon"}},
		Options:    OptionsConfig{JSONCompareDepth: -1, APIRequestTimeout: "0s"},
		MockServer: MockServerConfig{Port: 9080},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "service.port must be between 1-65535, got 70000")
	assert.Contains(t, msg, "options.json_compare_depth must not be negative")
	assert.Contains(t, msg, `options.api_request_timeout: must be positive, got "0s"`)
	assert.Contains(t, msg, `service.readiness.timeout: invalid duration "soon"`)
}

func TestValidate_StartCommandSyntax(t *testing.T) {
	cfg := &Config{
		Service:    ServiceConfig{Port: 3000, Start: StartConfig{Command: `npm run "start`}},
		MockServer: MockServerConfig{Port: 9080},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service.start.command:")

	cfg.Service.Start.Command = "PORT=3000 npm run start && echo ready"
	assert.NoError(t, cfg.Validate())
}

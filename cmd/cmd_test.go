package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Use-Tusk/tusk-harness/internal/config"
	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/log"
	"github.com/Use-Tusk/tusk-harness/internal/render"
)

// evalSymlinks resolves symlinks for path comparison
// On macOS, /var is a symlink to /private/var which causes test failures
func evalSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func writeProject(t *testing.T, servicePort int, scenarios string) string {
	t.Helper()
	tmp := evalSymlinks(t.TempDir())
	configPath := filepath.Join(tmp, ".tusk", "harness.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, ".tusk", "scenarios"), 0o750))
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`service:
  hostname: 127.0.0.1
  port: %d
mock_server:
  port: %d
`, servicePort, freePort(t))), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".tusk", "scenarios", "status.yaml"), []byte(scenarios), 0o600))
	return configPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	if os.Getenv("TUSK_HARNESS_CACHE_DIR") == "" {
		t.Setenv("TUSK_HARNESS_CACHE_DIR", t.TempDir())
	}
	config.Invalidate()
	t.Cleanup(func() {
		config.Invalidate()
		log.SetMode(log.ModeText)
		cfgFile, filter, outputFormat, scenarioDir = "", "", "text", ""
		quiet, failFast, validateJSON = false, false, false
		initYes, initForce, lastFailed = false, false, false
		runOptions = harness.DefaultOptions()
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

const statusScenarios = `
scenarios:
  - name: status is ok
    request: {method: GET, path: /status}
    expect:
      status: 200
      json_paths:
        $.status: ok
  - name: status is created
    request: {method: GET, path: /status}
    expect:
      status: 201
`

func serviceOn(t *testing.T) int {
	t.Helper()
	srv := httptest.NewServer(httphelpers.HandlerWithResponse(200, map[string][]string{"Content-Type": {"application/json"}}, []byte(`{"status":"ok"}`)))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

func TestRun_JSONOutput(t *testing.T) {
	configPath := writeProject(t, serviceOn(t), statusScenarios)

	out, err := execute(t, "run", "--config", configPath, "--output-format", "json")
	require.Error(t, err)
	assert.Equal(t, "1 of 2 scenarios failed", err.Error())

	var decoded struct {
		Summary render.Summary `json:"summary"`
		Results []struct {
			ID     string `json:"id"`
			Passed bool   `json:"passed"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, render.Summary{Total: 2, Passed: 1, Failed: 1}, decoded.Summary)
	require.Len(t, decoded.Results, 2)
	assert.True(t, decoded.Results[0].Passed)
	assert.Contains(t, decoded.Results[1].ID, "status.yaml::status is created")
	assert.False(t, decoded.Results[1].Passed)
}

func TestRun_Filter(t *testing.T) {
	configPath := writeProject(t, serviceOn(t), statusScenarios)

	out, err := execute(t, "run", "--config", configPath, "--output-format", "json", "--filter", "ok$")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 1`)
}

func TestRun_InvalidOutputFormat(t *testing.T) {
	_, err := execute(t, "run", "--output-format", "xml")
	assert.EqualError(t, err, `invalid output format "xml" (choices: text, json)`)
}

func TestValidate(t *testing.T) {
	configPath := writeProject(t, 3000, statusScenarios)

	out, err := execute(t, "validate", "--config", configPath, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
	assert.Contains(t, out, `"scenarios": 2`)

	broken := filepath.Join(filepath.Dir(configPath), "scenarios", "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("scenarios:\n  - name: x\n    request: {method: GET, path: nope}\n"), 0o600))

	out, err = execute(t, "validate", "--config", configPath, "--json")
	assert.EqualError(t, err, "validation failed")
	assert.Contains(t, out, "path must start with '/'")
}

func TestErrorLines(t *testing.T) {
	configPath := writeProject(t, 3000, "scenarios: []\n")
	cfg := &config.Config{Scenarios: config.ScenariosConfig{Dir: filepath.Join(filepath.Dir(configPath), "scenarios")}}

	_, err := loadEntries(cfg, nil)
	require.Error(t, err)
	lines := errorLines(err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "status.yaml: no scenarios defined")
}

func TestMergeOptions(t *testing.T) {
	defer func() { runOptions = harness.DefaultOptions() }()

	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	runOptions = harness.DefaultOptions()
	runOptions.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--api-request-timeout=3s"}))

	base := harness.Options{JSONCompareDepth: 7, APIRequestTimeout: time.Second, ErrorSuppressCascading: false}
	assert.Equal(t, harness.Options{
		JSONCompareDepth:       7,
		APIRequestTimeout:      3 * time.Second,
		ErrorSuppressCascading: false,
	}, mergeOptions(fs, base))
}

func TestRerunCommand(t *testing.T) {
	results := []render.Result{
		{ID: "orders.yaml::creates order", Passed: false},
		{ID: "orders.yaml::lists orders", Passed: true},
		{ID: "users.yaml::user (v2)", Passed: false},
	}
	assert.Equal(t, `tusk-harness run --filter 'name="^(creates order|user \(v2\))$"'`, rerunCommand(results))
	assert.Empty(t, rerunCommand(results[1:2]))
}

func TestInit_ThenValidate(t *testing.T) {
	tmp := evalSymlinks(t.TempDir())
	t.Chdir(tmp)

	_, err := execute(t, "init", "--yes")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(tmp, ".tusk", "harness.yaml"))
	assert.FileExists(t, filepath.Join(tmp, ".tusk", "scenarios", "example.yaml"))

	_, err = execute(t, "init", "--yes")
	assert.ErrorContains(t, err, "config already exists")

	out, err := execute(t, "validate", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"scenarios": 2`)
}

func TestRun_LastFailed(t *testing.T) {
	t.Setenv("TUSK_HARNESS_CACHE_DIR", t.TempDir())
	configPath := writeProject(t, serviceOn(t), statusScenarios)

	_, err := execute(t, "run", "--config", configPath, "--last-failed")
	assert.ErrorContains(t, err, "no previous run recorded")

	_, err = execute(t, "run", "--config", configPath, "--output-format", "json")
	require.Error(t, err)

	out, err := execute(t, "run", "--config", configPath, "--output-format", "json", "--last-failed")
	assert.EqualError(t, err, "1 of 1 scenarios failed")
	assert.Contains(t, out, "status is created")
	assert.NotContains(t, out, "status is ok")
}

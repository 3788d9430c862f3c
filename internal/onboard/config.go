// Package onboard writes the harness config and a first scenario for a new
// project.
package onboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Use-Tusk/tusk-harness/internal/mock"
	"github.com/Use-Tusk/tusk-harness/internal/scenario"
)

const (
	configDir       = ".tusk"
	configFile      = "harness.yaml"
	exampleScenario = "example.yaml"
)

var ErrConfigExists = errors.New("config already exists")

// Answers are the values asked for by the init wizard.
type Answers struct {
	Hostname     string
	Port         int
	StartCommand string
	ScenariosDir string
	MockPort     int
}

func DefaultAnswers() Answers {
	return Answers{
		Hostname:     "127.0.0.1",
		Port:         3000,
		ScenariosDir: ".tusk/scenarios",
		MockPort:     9080,
	}
}

// Config mirrors the keys read by the config package. Only what init asks for
// is written.
type Config struct {
	Service    Service    `yaml:"service"`
	Scenarios  Scenarios  `yaml:"scenarios"`
	MockServer MockServer `yaml:"mock_server"`
}

type Service struct {
	Hostname  string    `yaml:"hostname"`
	Port      int       `yaml:"port"`
	Start     *Start    `yaml:"start,omitempty"`
	Readiness Readiness `yaml:"readiness"`
}

type Start struct {
	Command string `yaml:"command"`
}

type Readiness struct {
	Timeout  string `yaml:"timeout"`
	Interval string `yaml:"interval"`
}

type Scenarios struct {
	Dir string `yaml:"dir"`
}

type MockServer struct {
	Port int `yaml:"port"`
}

func (a Answers) config() Config {
	cfg := Config{
		Service: Service{
			Hostname: a.Hostname,
			Port:     a.Port,
			Readiness: Readiness{
				Timeout:  "30s",
				Interval: "250ms",
			},
		},
		Scenarios:  Scenarios{Dir: a.ScenariosDir},
		MockServer: MockServer{Port: a.MockPort},
	}
	if cmd := strings.TrimSpace(a.StartCommand); cmd != "" {
		cfg.Service.Start = &Start{Command: cmd}
	}
	return cfg
}

func example() scenario.File {
	return scenario.File{
		Endpoints: map[string]mock.Endpoint{
			"upstream": {Hostname: "api.example.com", Port: 80},
		},
		Scenarios: []scenario.Scenario{
			{
				Name:    "health check",
				Request: scenario.RequestSpec{Method: "GET", Path: "/health"},
				Expect:  scenario.ExpectSpec{Status: 200},
			},
			{
				Name:    "upstream status is passed through",
				Request: scenario.RequestSpec{Method: "GET", Path: "/status"},
				Expect: scenario.ExpectSpec{
					Status:    200,
					JSONPaths: map[string]any{"$.upstream": "ok"},
				},
				Responses: []scenario.ResponseSpec{
					{
						Endpoint: "upstream",
						Method:   "GET",
						Path:     "/v1/status",
						Status:   200,
						Body:     &scenario.BodySpec{JSON: map[string]any{"status": "ok"}},
					},
				},
			},
		},
	}
}

// Write creates the config file and an example scenario under root. Existing
// files are only replaced when force is set. It returns the written paths.
func Write(root string, a Answers, force bool) ([]string, error) {
	cfgPath := filepath.Join(root, configDir, configFile)
	scenarioDir := a.ScenariosDir
	if !filepath.IsAbs(scenarioDir) {
		scenarioDir = filepath.Join(root, scenarioDir)
	}
	examplePath := filepath.Join(scenarioDir, exampleScenario)

	if !force {
		if _, err := os.Stat(cfgPath); err == nil {
			return nil, fmt.Errorf("%s: %w, use --force to overwrite", cfgPath, ErrConfigExists)
		}
	}

	cfgData, err := encodeYAML(a.config())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, cfgData, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}
	written := []string{cfgPath}

	if _, err := os.Stat(examplePath); err == nil && !force {
		return written, nil
	}
	exampleData, err := encodeYAML(example())
	if err != nil {
		return written, fmt.Errorf("failed to marshal example scenario: %w", err)
	}
	if err := os.MkdirAll(scenarioDir, 0o750); err != nil {
		return written, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	if err := os.WriteFile(examplePath, exampleData, 0o600); err != nil {
		return written, fmt.Errorf("failed to write example scenario: %w", err)
	}
	return append(written, examplePath), nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return formatYAMLWithBlankLines([]byte(buf.String())), nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be a number between 1-65535")
	}
	return port, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"mvdan.cc/sh/v3/syntax"

	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/log"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
)

var (
	k = koanf.New(".")

	cachedConfig    *Config
	cachedConfigErr error
	loadMutex       sync.Mutex
	hasLoaded       bool
	loadedFile      string
)

// configCandidates are searched in every directory from the working directory up.
var configCandidates = []string{
	".tusk/harness.yaml",
	".tusk/harness.yml",
	"tusk-harness.yaml",
	"tusk-harness.yml",
}

type Config struct {
	Service    ServiceConfig    `koanf:"service"`
	Options    OptionsConfig    `koanf:"options"`
	Scenarios  ScenariosConfig  `koanf:"scenarios"`
	MockServer MockServerConfig `koanf:"mock_server"`
}

type ServiceConfig struct {
	Hostname  string          `koanf:"hostname"`
	Port      int             `koanf:"port"`
	Start     StartConfig     `koanf:"start"`
	Readiness ReadinessConfig `koanf:"readiness"`
}

type StartConfig struct {
	Command string `koanf:"command"`
}

type ReadinessConfig struct {
	Timeout  string `koanf:"timeout"`
	Interval string `koanf:"interval"`
}

type OptionsConfig struct {
	JSONCompareDepth       int    `koanf:"json_compare_depth"`
	APIRequestTimeout      string `koanf:"api_request_timeout"`
	ErrorSuppressCascading *bool  `koanf:"error_suppress_cascading"`
}

type ScenariosConfig struct {
	Dir string `koanf:"dir"`
}

// MockServerConfig is the address outbound calls of the service under test are
// pointed at when it cannot use the harness transport directly.
type MockServerConfig struct {
	Hostname string `koanf:"hostname"`
	Port     int    `koanf:"port"`
}

// Load loads the config file and applies environment overrides.
// This function is idempotent - calling it multiple times will only load once.
func Load(configFile string) error {
	loadMutex.Lock()
	defer loadMutex.Unlock()

	if hasLoaded {
		log.Debug("Config already loaded, skipping reload")
		return nil
	}

	configFile = Locate(configFile)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		log.Debug("Config file loaded", "file", configFile)
	} else {
		log.Debug("No config file found, using defaults and environment variables")
	}

	envOverrides := map[string]string{
		"TUSK_HARNESS_JSON_COMPARE_DEPTH":       "options.json_compare_depth",
		"TUSK_HARNESS_API_REQUEST_TIMEOUT":      "options.api_request_timeout",
		"TUSK_HARNESS_ERROR_SUPPRESS_CASCADING": "options.error_suppress_cascading",
		"TUSK_HARNESS_STARTUP_TIMEOUT":          "service.readiness.timeout",
		"TUSK_HARNESS_SCENARIOS_DIR":            "scenarios.dir",
	}

	for envKey, configKey := range envOverrides {
		if val := os.Getenv(envKey); val != "" {
			if err := k.Set(configKey, val); err != nil {
				return fmt.Errorf("error setting %s from env: %w", envKey, err)
			}
		}
	}

	hasLoaded = true
	loadedFile = configFile
	log.Debug("All loaded config", "config", k.All())
	return nil
}

// Get returns the cached config. If not loaded yet, loads from default location.
func Get() (*Config, error) {
	if err := Load(""); err != nil {
		return nil, err
	}

	loadMutex.Lock()
	defer loadMutex.Unlock()

	if cachedConfig != nil || cachedConfigErr != nil {
		return cachedConfig, cachedConfigErr
	}

	cachedConfig, cachedConfigErr = parseAndValidate()
	return cachedConfig, cachedConfigErr
}

// parseAndValidate parses the loaded koanf data into a Config struct and validates it
func parseAndValidate() (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Service.Hostname == "" {
		cfg.Service.Hostname = "127.0.0.1"
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 3000
	}
	if cfg.Service.Readiness.Timeout == "" {
		cfg.Service.Readiness.Timeout = harness.DefaultStartupTimeout.String()
	}
	if cfg.Service.Readiness.Interval == "" {
		cfg.Service.Readiness.Interval = harness.DefaultStartupInterval.String()
	}
	if cfg.Options.JSONCompareDepth == 0 {
		cfg.Options.JSONCompareDepth = harness.DefaultJSONCompareDepth
	}
	if cfg.Options.APIRequestTimeout == "" {
		cfg.Options.APIRequestTimeout = harness.DefaultAPIRequestTimeout.String()
	}
	if cfg.Options.ErrorSuppressCascading == nil {
		suppress := true
		cfg.Options.ErrorSuppressCascading = &suppress
	}
	if cfg.Scenarios.Dir == "" {
		cfg.Scenarios.Dir = ".tusk/scenarios"
	}
	if cfg.MockServer.Hostname == "" {
		cfg.MockServer.Hostname = "127.0.0.1"
	}
	if cfg.MockServer.Port == 0 {
		cfg.MockServer.Port = 9080
	}

	// Scenario paths are relative to the project root, not the working directory
	if loadedFile != "" {
		cfg.Scenarios.Dir = utils.ResolvePath(utils.ProjectRoot(loadedFile), cfg.Scenarios.Dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) Validate() error {
	var errs []error

	if cfg.Service.Port < 1 || cfg.Service.Port > 65535 {
		errs = append(errs, fmt.Errorf("service.port must be between 1-65535, got %d", cfg.Service.Port))
	}
	if cfg.MockServer.Port < 1 || cfg.MockServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("mock_server.port must be between 1-65535, got %d", cfg.MockServer.Port))
	}
	if command := strings.TrimSpace(cfg.Service.Start.Command); command != "" {
		if _, err := syntax.NewParser().Parse(strings.NewReader(command), ""); err != nil {
			errs = append(errs, fmt.Errorf("service.start.command: %w", err))
		}
	}
	if cfg.Options.JSONCompareDepth < 0 {
		errs = append(errs, fmt.Errorf("options.json_compare_depth must not be negative, got %d", cfg.Options.JSONCompareDepth))
	}

	durations := map[string]string{
		"options.api_request_timeout": cfg.Options.APIRequestTimeout,
		"service.readiness.timeout":   cfg.Service.Readiness.Timeout,
		"service.readiness.interval":  cfg.Service.Readiness.Interval,
	}
	for _, key := range []string{"options.api_request_timeout", "service.readiness.timeout", "service.readiness.interval"} {
		value := durations[key]
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, value))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %q", key, value))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// HarnessOptions converts the options section for the harness. Call it on a
// validated config only.
func (cfg *Config) HarnessOptions() harness.Options {
	opts := harness.DefaultOptions()
	opts.JSONCompareDepth = cfg.Options.JSONCompareDepth
	if d, err := time.ParseDuration(cfg.Options.APIRequestTimeout); err == nil {
		opts.APIRequestTimeout = d
	}
	if cfg.Options.ErrorSuppressCascading != nil {
		opts.ErrorSuppressCascading = *cfg.Options.ErrorSuppressCascading
	}
	return opts
}

func (cfg *Config) StartupTimeout() time.Duration {
	d, err := time.ParseDuration(cfg.Service.Readiness.Timeout)
	if err != nil {
		return harness.DefaultStartupTimeout
	}
	return d
}

func (cfg *Config) StartupInterval() time.Duration {
	d, err := time.ParseDuration(cfg.Service.Readiness.Interval)
	if err != nil {
		return harness.DefaultStartupInterval
	}
	return d
}

// ValidationResult contains detailed validation results for config files.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	UnknownKeys []string `json:"unknown_keys,omitempty"`
	SchemaHint  string   `json:"schema_hint,omitempty"`
}

// ValidateConfigFile performs comprehensive validation on a config file.
// It checks for unknown keys and value constraints.
func ValidateConfigFile(configPath string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Config file not found: %s", configPath))
		return result
	}

	Invalidate()
	if err := Load(configPath); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to parse config: %s", err))
		return result
	}

	unknownKeys := CheckUnknownKeys()
	if len(unknownKeys) > 0 {
		result.UnknownKeys = unknownKeys
		for _, key := range unknownKeys {
			if suggestion := suggestCorrectKey(key); suggestion != "" {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown key '%s' - did you mean '%s'?", key, suggestion))
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown key '%s' will be ignored", key))
			}
		}
	}

	if _, err := Get(); err != nil {
		result.Valid = false
		for _, line := range strings.Split(err.Error(), "\n") {
			result.Errors = append(result.Errors, line)
		}
	}

	if !result.Valid || len(result.Warnings) > 0 {
		result.SchemaHint = getMinimalSchemaHint()
	}

	return result
}

// CheckUnknownKeys compares loaded config keys against the valid schema.
// Returns a list of keys that don't match any known config field.
func CheckUnknownKeys() []string {
	validSet := make(map[string]bool)
	for _, key := range validKeys() {
		validSet[key] = true
		parts := strings.Split(key, ".")
		for i := 1; i < len(parts); i++ {
			validSet[strings.Join(parts[:i], ".")] = true
		}
	}

	var unknown []string
	for _, key := range k.Keys() {
		if !validSet[key] {
			unknown = append(unknown, key)
		}
	}

	return unknown
}

func validKeys() []string {
	return getValidKeys(reflect.TypeOf(Config{}), "")
}

// getValidKeys extracts all valid config key paths from struct tags recursively.
func getValidKeys(t reflect.Type, prefix string) []string {
	var keys []string

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return keys
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}

		fullKey := tag
		if prefix != "" {
			fullKey = prefix + "." + tag
		}

		keys = append(keys, fullKey)

		fieldType := field.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}
		if fieldType.Kind() == reflect.Struct {
			keys = append(keys, getValidKeys(fieldType, fullKey)...)
		}
	}

	return keys
}

// maxSuggestionDistance bounds how different a suggested key may be.
const maxSuggestionDistance = 4

// suggestCorrectKey returns the valid leaf key closest to unknownKey. Keys
// whose last segment matches exactly are preferred, so a misplaced key is
// pointed at its real section.
func suggestCorrectKey(unknownKey string) string {
	last := unknownKey[strings.LastIndex(unknownKey, ".")+1:]

	best, bestDistance := "", maxSuggestionDistance+1
	for _, key := range validKeys() {
		if strings.HasSuffix(key, "."+last) && key != unknownKey {
			return key
		}
		if d := levenshtein.ComputeDistance(unknownKey, key); d < bestDistance {
			best, bestDistance = key, d
		}
	}
	return best
}

// getMinimalSchemaHint returns a minimal example of the correct config structure.
func getMinimalSchemaHint() string {
	return `service:
  port: 3000
  start:
    command: "go run ./cmd/api"   # optional, the service may already run
  readiness:
    timeout: 10s
options:
  json_compare_depth: 4096
  api_request_timeout: 1s
  error_suppress_cascading: true
scenarios:
  dir: .tusk/scenarios`
}

// Locate returns the config file Load would use for configFile, or "" when
// there is none.
func Locate(configFile string) string {
	if configFile == "" {
		configFile = os.Getenv("TUSK_HARNESS_CONFIG")
	}
	if configFile == "" {
		configFile = findConfigFile()
	}
	return configFile
}

func findConfigFile() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return utils.FindUpward(wd, configCandidates)
}

// Invalidate clears all cached config state, forcing a reload on next Get().
// Used when validating another file and for testing.
func Invalidate() {
	loadMutex.Lock()
	defer loadMutex.Unlock()
	hasLoaded = false
	loadedFile = ""
	cachedConfig = nil
	cachedConfigErr = nil
	k = koanf.New(".")
}

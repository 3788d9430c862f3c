package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/Use-Tusk/tusk-harness/internal/config"
	"github.com/Use-Tusk/tusk-harness/internal/log"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [files or directories...]",
	Short: "Check the config and scenario files without running them",
	Long: `Check the config file for unknown keys and invalid values, and every scenario
file for schema and reference errors. Nothing is started.`,
	RunE:         validateScenarios,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&scenarioDir, "dir", "", "Scenario directory (default is scenarios.dir from the config)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the result as JSON")
}

type validationOutput struct {
	Valid     bool                     `json:"valid"`
	Config    *config.ValidationResult `json:"config,omitempty"`
	Scenarios int                      `json:"scenarios"`
	Errors    []string                 `json:"errors,omitempty"`
}

func validateScenarios(cmd *cobra.Command, args []string) error {
	out := validationOutput{Valid: true}

	if configPath := config.Locate(cfgFile); configPath != "" {
		out.Config = config.ValidateConfigFile(configPath)
		out.Valid = out.Config.Valid
	}

	if err := config.Load(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := config.Get()
	if err != nil && out.Config == nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err == nil {
		entries, err := loadEntries(cfg, args)
		out.Scenarios = len(entries)
		if err != nil {
			out.Valid = false
			out.Errors = errorLines(err)
		}
	}

	if validateJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		printValidation(out)
	}

	if !out.Valid {
		return errors.New("validation failed")
	}
	return nil
}

func printValidation(out validationOutput) {
	if c := out.Config; c != nil {
		for _, e := range c.Errors {
			log.UserError("config: " + e)
		}
		for _, w := range c.Warnings {
			log.UserWarn("config: " + w)
		}
		if c.SchemaHint != "" {
			log.UserProgress(c.SchemaHint)
		}
	}
	for _, e := range out.Errors {
		log.UserError(e)
	}
	if out.Valid {
		log.UserSuccess(fmt.Sprintf("✓ %d scenario(s) valid", out.Scenarios))
	}
}

// errorLines flattens a multierror into one line per error.
func errorLines(err error) []string {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return strings.Split(err.Error(), "\n")
	}
	var lines []string
	for _, e := range merr.WrappedErrors() {
		lines = append(lines, errorLines(e)...)
	}
	return lines
}

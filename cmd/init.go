package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Use-Tusk/tusk-harness/internal/log"
	"github.com/Use-Tusk/tusk-harness/internal/onboard"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
)

var (
	initYes   bool
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a harness config and an example scenario",
	Long: `Ask for the service address and start command, then write .tusk/harness.yaml
and an example scenario in the current directory.`,
	RunE:         initProject,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept the defaults without prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config")
}

func initProject(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}

	answers := onboard.DefaultAnswers()
	if !initYes {
		if !utils.IsTerminal() {
			return fmt.Errorf("init needs a terminal, use --yes to accept the defaults")
		}
		if err := onboard.Prompt(&answers); err != nil {
			return err
		}
	}

	written, err := onboard.Write(root, answers, initForce)
	for _, path := range written {
		log.UserSuccess("✓ Wrote " + path)
	}
	if err != nil {
		return err
	}
	log.UserProgress("Run `tusk-harness validate` to check the setup, then `tusk-harness run`.")
	return nil
}

package cmd

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Use-Tusk/tusk-harness/internal/log"
	"github.com/Use-Tusk/tusk-harness/internal/styles"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
	"github.com/Use-Tusk/tusk-harness/internal/version"
)

var (
	cfgFile     string
	debug       bool
	showVersion bool

	cleanupFuncs []func()
	cleanupMutex sync.Mutex
	signalSetup  sync.Once
)

//go:embed short_docs/overview.md
var overviewContent string

var rootCmd = &cobra.Command{
	Use:   "tusk-harness",
	Short: "Black-box HTTP test harness with canned upstream responses",
	Long:  utils.RenderMarkdown(overviewContent),
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), styles.Render(styles.TitleStyle, "Tusk Harness"))
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			version.PrintVersion(cmd.OutOrStdout())
			os.Exit(0)
		}
		log.Setup(debug, log.ModeText)
		return nil
	},
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func Execute() error {
	defer log.Shutdown()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tusk/harness.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "show version and exit")
}

// RegisterCleanup adds a function run on exit and on interrupt, in reverse
// registration order.
func RegisterCleanup(fn func()) {
	cleanupMutex.Lock()
	defer cleanupMutex.Unlock()
	cleanupFuncs = append(cleanupFuncs, fn)
}

func runCleanup() {
	cleanupMutex.Lock()
	defer cleanupMutex.Unlock()

	slog.Debug("Running cleanup functions", "count", len(cleanupFuncs))
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	cleanupFuncs = nil
}

func setupSignalHandling() {
	signalSetup.Do(func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		go func() {
			sig := <-c
			log.Stderrln(fmt.Sprintf("Received %s signal, cleaning up", sig))
			runCleanup()
			os.Exit(1)
		}()

		slog.Debug("Signal handling setup complete")
	})
}

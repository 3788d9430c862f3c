package cmd

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Use-Tusk/tusk-harness/internal/cache"
	"github.com/Use-Tusk/tusk-harness/internal/config"
	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/log"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
	"github.com/Use-Tusk/tusk-harness/internal/render"
	"github.com/Use-Tusk/tusk-harness/internal/scenario"
	"github.com/Use-Tusk/tusk-harness/internal/service"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
)

var (
	scenarioDir     string
	filter          string
	outputFormat    string
	quiet           bool
	showServiceLogs bool
	failFast        bool
	copyRerun       bool
	lastFailed      bool

	runOptions = harness.DefaultOptions()
)

//go:embed short_docs/run.md
var runContent string

//go:embed short_docs/filter.md
var filterContent string

var runCmd = &cobra.Command{
	Use:   "run [files or directories...]",
	Short: "Run scenarios against the service",
	Long:  utils.RenderMarkdown(runContent + "\n\n" + filterContent),
	RunE:         runScenarios,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&scenarioDir, "dir", "", "Scenario directory (default is scenarios.dir from the config)")
	runCmd.Flags().StringVarP(&filter, "filter", "f", "", "Only run matching scenarios")
	runCmd.Flags().StringVar(&outputFormat, "output-format", "text", `Output format: "text" or "json"`)
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only show failing scenarios")
	runCmd.Flags().BoolVar(&showServiceLogs, "show-service-logs", false, "Print the output of the started service")
	runCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop after the first failing scenario")
	runCmd.Flags().BoolVar(&lastFailed, "last-failed", false, "Only run the scenarios that failed in the previous run")
	runCmd.Flags().BoolVar(&copyRerun, "copy-rerun", false, "Copy the command re-running failed scenarios to the clipboard")
	runOptions.BindFlags(runCmd.Flags())
	runCmd.Flags().SortFlags = false
}

func runScenarios(cmd *cobra.Command, args []string) error {
	setupSignalHandling()
	defer runCleanup()

	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("invalid output format %q (choices: text, json)", outputFormat)
	}
	if outputFormat == "json" {
		log.SetMode(log.ModeJSON)
	}

	if err := config.Load(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	entries, err := loadEntries(cfg, args)
	if err != nil {
		return err
	}
	if entries, err = scenario.Filter(entries, filter); err != nil {
		return err
	}
	runs := runCache()
	if lastFailed {
		if entries, err = onlyFailed(runs, entries); err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		log.UserWarn("No scenarios to run")
		return nil
	}

	h := harness.New()
	h.Options = mergeOptions(cmd.Flags(), cfg.HarnessOptions())
	h.Coordinator.Timeout = cfg.StartupTimeout()
	h.Coordinator.Interval = cfg.StartupInterval()

	slog.Debug("Running scenarios",
		"count", len(entries),
		"filter", filter,
		"options", fmt.Sprintf("%+v", h.Options),
	)

	mockAddr := net.JoinHostPort(cfg.MockServer.Hostname, strconv.Itoa(cfg.MockServer.Port))
	srv := mock.NewServer(h.Context, mockAddr)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start mock server: %w", err)
	}
	RegisterCleanup(func() { _ = srv.Stop() })

	api, svc, err := serviceAPI(cfg, "http://"+srv.Addr())
	if err != nil {
		return err
	}

	var bar *utils.ProgressBar
	if outputFormat == "text" && utils.IsTerminal() && !debug && !showServiceLogs {
		bar = utils.NewProgressBar(os.Stderr, "Running scenarios", len(entries))
		bar.Start()
	}

	results := make([]render.Result, 0, len(entries))
	for _, e := range entries {
		result := runEntry(h, api, e)
		results = append(results, result)
		if bar != nil {
			bar.Record(result.Passed)
		}

		for _, ev := range srv.GetMockNotFoundEvents() {
			slog.Debug("Service called the mock server outside a scenario", "method", ev.Method, "url", ev.URL)
		}
		srv.ClearMockNotFoundEvents()

		if svc != nil && !result.Passed && !h.Coordinator.Started(api) {
			reportServiceFailure(svc)
			break
		}
		if failFast && !result.Passed {
			break
		}
	}
	if bar != nil {
		bar.Finish("")
	}

	if runs != nil {
		if err := saveRun(runs, results); err != nil {
			slog.Warn("Failed to record run results", "error", err)
		}
	}

	outErr := render.Output(cmd.OutOrStdout(), results, outputFormat, quiet)
	if outErr != nil && outputFormat == "text" {
		if rerun := rerunCommand(results); rerun != "" {
			log.UserProgress("Re-run failed scenarios with:\n  " + rerun)
			if copyRerun {
				if err := utils.CopyToClipboard(rerun); err != nil {
					log.UserWarn(fmt.Sprintf("Could not copy to clipboard: %v", err))
				}
			}
		}
	}
	return outErr
}

func runEntry(h *harness.Harness, api harness.API, e scenario.Entry) render.Result {
	start := time.Now()
	result := render.Result{ID: e.ID()}

	req, err := e.Build(h, api)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	report, _ := req.Collect()
	result.Duration = time.Since(start).Milliseconds()
	result.Report = report
	result.Passed = report.Passed()
	return result
}

// serviceAPI returns the API scenarios are sent to. A configured start command
// yields a managed service; its process is returned as well.
func serviceAPI(cfg *config.Config, proxyURL string) (harness.API, *service.Service, error) {
	if cfg.Service.Start.Command == "" {
		return harness.NewExternal(cfg.Service.Hostname, cfg.Service.Port), nil, nil
	}
	if service.PortInUse(cfg.Service.Hostname, cfg.Service.Port) {
		return nil, nil, fmt.Errorf("port %d is already in use, if your service is already running you should stop it first or remove service.start.command", cfg.Service.Port)
	}

	log.ShowServiceLogs(showServiceLogs)
	svc := service.New(service.Config{
		Hostname:       cfg.Service.Hostname,
		Port:           cfg.Service.Port,
		Command:        cfg.Service.Start.Command,
		ProxyURL:       proxyURL,
		StartupTimeout: cfg.StartupTimeout(),
		Output:         log.ServiceWriter(),
	})
	RegisterCleanup(func() {
		if err := svc.Stop(); err != nil {
			slog.Debug("Service stop completed with error", "error", err)
		}
	})
	return svc, svc, nil
}

func reportServiceFailure(svc *service.Service) {
	if err := svc.Err(); err != nil {
		log.UserError(fmt.Sprintf("Service is not running: %v", err))
	} else {
		log.UserError("Service did not become ready")
	}
	if tail := log.ServiceTail(); len(tail) > 0 {
		log.UserProgress("Last service output:\n" + utils.Indent(strings.Join(tail, "\n"), "  "))
	}
}

// runCache returns the last-run cache of the current project, or nil when it
// cannot be opened.
func runCache() *cache.RunCache {
	root, err := os.Getwd()
	if err != nil {
		return nil
	}
	if configPath := config.Locate(cfgFile); configPath != "" {
		root = utils.ProjectRoot(configPath)
	}
	runs, err := cache.NewRunCache(root)
	if err != nil {
		slog.Debug("Run cache unavailable", "error", err)
		return nil
	}
	return runs
}

func onlyFailed(runs *cache.RunCache, entries []scenario.Entry) ([]scenario.Entry, error) {
	if runs == nil {
		return nil, fmt.Errorf("--last-failed: run cache unavailable")
	}
	last, err := runs.Load()
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, fmt.Errorf("--last-failed: no previous run recorded")
	}
	return slices.DeleteFunc(entries, func(e scenario.Entry) bool {
		return !slices.Contains(last.Failed, e.ID())
	}), nil
}

func saveRun(runs *cache.RunCache, results []render.Result) error {
	var passed, failed []string
	for _, r := range results {
		if r.Passed {
			passed = append(passed, r.ID)
		} else {
			failed = append(failed, r.ID)
		}
	}
	return runs.Save(passed, failed)
}

// mergeOptions overrides config values with the option flags set on the
// command line.
func mergeOptions(fs *pflag.FlagSet, opts harness.Options) harness.Options {
	if fs.Changed("json-compare-depth") {
		opts.JSONCompareDepth = runOptions.JSONCompareDepth
	}
	if fs.Changed("api-request-timeout") {
		opts.APIRequestTimeout = runOptions.APIRequestTimeout
	}
	if fs.Changed("error-suppress-cascading") {
		opts.ErrorSuppressCascading = runOptions.ErrorSuppressCascading
	}
	return opts
}

// rerunCommand returns a command line running only the failed scenarios.
func rerunCommand(results []render.Result) string {
	var names []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		if i := strings.LastIndex(r.ID, "::"); i >= 0 {
			names = append(names, regexp.QuoteMeta(r.ID[i+2:]))
		}
	}
	if len(names) == 0 {
		return ""
	}
	pattern := `name="^(` + strings.Join(names, "|") + `)$"`
	return shellescape.QuoteCommand([]string{"tusk-harness", "run", "--filter", pattern})
}

// loadEntries loads the scenarios named by args, or the configured scenario
// directory when there are none.
func loadEntries(cfg *config.Config, args []string) ([]scenario.Entry, error) {
	paths := args
	if len(paths) == 0 {
		dir := cfg.Scenarios.Dir
		if scenarioDir != "" {
			dir = scenarioDir
		}
		paths = []string{dir}
	}

	var files []*scenario.File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path not found: %s", p)
		}
		if info.IsDir() {
			loaded, err := scenario.LoadDir(p)
			if err != nil {
				return nil, err
			}
			files = append(files, loaded...)
			continue
		}
		f, err := scenario.Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return scenario.Entries(files), nil
}

// Package main is the CLI entry point for watah.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/misua/watah/internal/config"
	"github.com/misua/watah/internal/daemon"
	"github.com/misua/watah/internal/domain"
	"github.com/misua/watah/internal/infra"
	"github.com/misua/watah/internal/observability"
	"github.com/misua/watah/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// stopTimeout bounds how long stop waits for the daemon to exit.
const stopTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "watah",
	Short: "Synthetic desktop activity scheduler",
	Long: `watah drives a synthetic desktop session: it moves the cursor, scrolls,
presses navigation keys and types short snippets into editor windows on a
randomized schedule. It pauses as soon as you touch the mouse or keyboard
and slows down while the machine is busy.

Press Ctrl+F5 for a manual pause.`,
	Version:      Version,
	SilenceUsage: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler in the background",
	RunE:  runStart,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler in the foreground",
	Long:  `Runs the scheduler in this process until interrupted (Ctrl+C) or the end-of-day cutoff.`,
	RunE:  runForeground,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background scheduler",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the scheduler is running",
	RunE:  runStatus,
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop, then start the background scheduler",
	RunE:  runRestart,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a configuration file with every default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitConfig,
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List activities and their normalized weights",
	RunE:  runActivities,
}

var tryCmd = &cobra.Command{
	Use:   "try",
	Short: "Run each enabled activity once",
	Long: `Runs every enabled activity once (or only --activity), with a short gap
between them. Useful for checking OS permissions for input injection.`,
	RunE: runTry,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	forceWrite   bool
	tryActivity  string
	tryCountdown time.Duration
	jsonOutput   bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Configuration file")
	initConfigCmd.Flags().BoolVarP(&forceWrite, "force", "f", false, "Overwrite an existing file")
	tryCmd.Flags().StringVar(&tryActivity, "activity", "", "Run only this activity")
	tryCmd.Flags().DurationVar(&tryCountdown, "countdown", 3*time.Second, "Wait before the first activity")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(activitiesCmd)
	rootCmd.AddCommand(tryCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newPIDStore(cfg *config.Config) (domain.PIDStore, domain.ProcessManager) {
	pm := infra.NewProcessManager()
	return infra.NewFilePIDStore(cfg.Daemon().PIDFile, pm), pm
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pidStore, _ := newPIDStore(cfg)
	if pidStore.IsRunning() {
		rec, _ := pidStore.Get()
		fmt.Printf("watah is already running (pid %d)\n", rec.PID)
		return nil
	}

	pid, err := daemon.StartDetached(cfg.Path())
	if err != nil {
		return err
	}

	// Wait a moment for the daemon to write its PID file
	time.Sleep(500 * time.Millisecond)

	fmt.Println("\n=== watah Started ===")
	fmt.Printf("PID: %d\n", pid)
	fmt.Printf("Config: %s\n", displayPath(cfg.Path()))
	fmt.Printf("Log: %s\n", infra.ExpandHome(cfg.Daemon().LogFile))
	fmt.Printf("Intensity: %s\n", cfg.Timing().Intensity)
	fmt.Println("\nMove the mouse or press a key to pause; Ctrl+F5 for a longer pause.")
	fmt.Println("=====================")
	return nil
}

func runForeground(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ds := cfg.Daemon()
	logger := observability.NewLogger(observability.LoggerOptions{
		Level:      ds.LogLevel,
		File:       infra.ExpandHome(ds.LogFile),
		MaxSizeMB:  ds.LogMaxSizeMB,
		MaxBackups: ds.LogMaxBackups,
		Console:    os.Stderr,
	})
	defer func() { _ = logger.Sync() }()

	pidStore, pm := newPIDStore(cfg)
	rec := domain.PIDRecord{PID: pm.GetCurrentPID(), StartedAt: time.Now(), AppVersion: Version}
	if err := pidStore.Acquire(rec); err != nil {
		return err
	}
	defer func() {
		if err := pidStore.Release(); err != nil {
			logger.Warn("failed to remove pid file", zap.Error(err))
		}
	}()

	scheduler, err := buildScheduler(cfg, logger)
	if err != nil {
		return err
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("watah starting",
		zap.Int("pid", rec.PID),
		zap.String("version", Version),
		zap.String("config", displayPath(cfg.Path())),
		zap.String("intensity", cfg.Timing().Intensity))

	err = scheduler.Run(ctx)
	stats := scheduler.Stats()
	logger.Info("watah stopped",
		zap.Int("executed", stats.Executed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed))

	if errors.Is(err, domain.ErrEndOfDay) {
		return nil
	}
	return err
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := stopDaemon(cfg); err != nil {
		if errors.Is(err, domain.ErrNotRunning) {
			fmt.Println("watah is not running")
			return nil
		}
		return err
	}
	fmt.Println("watah stopped")
	return nil
}

// stopDaemon terminates the recorded process and waits for it to exit.
func stopDaemon(cfg *config.Config) error {
	pidStore, pm := newPIDStore(cfg)
	rec, err := pidStore.Get()
	if err != nil {
		return err
	}
	if rec == nil || !pm.IsRunning(rec.PID) {
		// Stale record from a crashed run
		_ = pidStore.Release()
		return domain.ErrNotRunning
	}

	if err := pm.Terminate(rec.PID); err != nil {
		return fmt.Errorf("failed to stop pid %d: %w", rec.PID, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for pm.IsRunning(rec.PID) {
		if time.Now().After(deadline) {
			return fmt.Errorf("pid %d did not exit within %s", rec.PID, stopTimeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
	return pidStore.Release()
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidStore, pm := newPIDStore(cfg)

	fmt.Println("\n=== watah Status ===")

	rec, err := pidStore.Get()
	if err != nil {
		fmt.Printf("PID file unreadable: %v\n", err)
	}
	if rec != nil && pm.IsRunning(rec.PID) {
		fmt.Println("Status: RUNNING")
		fmt.Printf("PID: %d\n", rec.PID)
		fmt.Printf("Version: %s\n", rec.AppVersion)
		fmt.Printf("Uptime: %s\n", time.Since(rec.StartedAt).Round(time.Second))
	} else {
		fmt.Println("Status: NOT RUNNING")
	}

	ts := cfg.Timing()
	fmt.Printf("\nConfig: %s\n", displayPath(cfg.Path()))
	fmt.Printf("PID file: %s\n", pidStore.Path())
	fmt.Printf("Intensity: %s\n", ts.Intensity)
	fmt.Printf("Circadian rhythm: %t\n", ts.EnableCircadian)
	if ts.EnableEndOfDayShutdown {
		fmt.Printf("End of day: %02d:00\n", ts.EndOfDayHour)
	}
	fmt.Printf("Pause on input: %t\n", cfg.Safety().PauseOnUserInput)
	fmt.Println("====================")
	return nil
}

func runRestart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := stopDaemon(cfg); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return err
	}
	return runStart(cmd, args)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	path = infra.ExpandHome(path)

	if _, err := os.Stat(path); err == nil && !forceWrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.New().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func runActivities(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table := daemon.NewWeightTable(cfg.ActivityWeights())
	probs := table.Probabilities()

	fmt.Println("\n=== Activities ===")
	for _, name := range activityNames(cfg) {
		if p, ok := probs[name]; ok {
			fmt.Printf("  %-22s %5.1f%%\n", name, p*100)
		} else {
			fmt.Printf("  %-22s disabled\n", name)
		}
	}
	fmt.Println("==================")
	return nil
}

// activityNames lists every built-in activity plus any configured extras.
func activityNames(cfg *config.Config) []string {
	seen := map[string]bool{}
	for _, name := range domain.AllActivities {
		seen[name] = true
	}
	for name := range cfg.ActivityWeights() {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runTry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewConsoleLogger("debug")
	defer func() { _ = logger.Sync() }()

	c := buildComponents(cfg, logger)

	var names []string
	if tryActivity != "" {
		names = []string{tryActivity}
	} else {
		for name := range cfg.ActivityWeights() {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	fmt.Printf("Running %d activities in %s; switch to a scratch window now.\n", len(names), tryCountdown)
	time.Sleep(tryCountdown)

	runner := usecase.NewTrialRunner(c.catalog, c.timing.PauseDuration, logger)
	var failed int
	for _, res := range runner.Run(cmd.Context(), names) {
		if res.Succeeded() {
			fmt.Printf("  %-22s ok (%dms)\n", res.Name, res.DurationMs)
		} else {
			fmt.Printf("  %-22s FAIL: %v\n", res.Name, res.Err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d activities failed", failed, len(names))
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("watah %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

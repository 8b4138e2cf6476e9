package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"mirror-go/internal/app"
	"mirror-go/internal/config"
	"mirror-go/internal/mirror"
	"mirror-go/internal/progress"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing file yields the defaults so
// that backups given on the command line work before `config init`.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, fs.ErrNotExist) {
		return config.NewConfig(defaults["base_dir"]), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp creates a MirrorApp from cfg. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "backup", "history").
func newApp(cfg *config.Config, operation string) (*app.MirrorApp, error) {
	a, err := app.NewMirrorApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "mirror",
	Short:        "Mirror a folder into several backup folders",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		m := &config.Manager{Format: config.FormatForPath(defaults["config_path"])}
		return m.Write(cmd.OutOrStdout(), cfg)
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup [SOURCE TARGET...]",
	Short: "Mirror SOURCE into every TARGET",
	Long: "Mirror SOURCE into every TARGET, copying only files whose content differs.\n" +
		"Without arguments the [backup] section of the config is used.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return fmt.Errorf("at least one target is required after the source")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Backup.Workers, _ = cmd.Flags().GetInt("workers")
		}

		a, err := newApp(cfg, "backup")
		if err != nil {
			return err
		}
		defer a.Close()

		var source string
		var targets []string
		if len(args) > 0 {
			source, targets = args[0], args[1:]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		res, err := runBackup(ctx, a, source, targets)
		if res != nil && res.State == mirror.StateCompleted {
			printSummary(res)
		}
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		for _, t := range res.Targets {
			if t.Err != nil {
				return fmt.Errorf("backup to %s failed: %w", t.Root, t.Err)
			}
		}
		return nil
	},
}

// runBackup starts the backup in the background and prints progress events
// as they arrive, routing them by the resolved target roots.
func runBackup(ctx context.Context, a *app.MirrorApp, source string, targets []string) (*mirror.RunResult, error) {
	stream := progress.NewStream(64)
	run, err := a.StartBackup(ctx, source, targets, stream)
	if err != nil {
		return nil, err
	}
	stream.CloseWhenDone(run.Done())

	color := term.IsTerminal(int(os.Stdout.Fd()))
	console := progress.NewConsoleSink(os.Stdout, run.Targets(), color)
	for event := range stream.Events() {
		console.Emit(event)
	}
	return run.Wait()
}

func printSummary(res *mirror.RunResult) {
	elapsed := res.FinishedAt.Sub(res.StartedAt).Truncate(time.Millisecond)
	fmt.Printf("\n%d file(s) in source, finished in %s\n", res.Total, elapsed)
	for _, t := range res.Targets {
		status := "ok"
		if t.Err != nil {
			status = "failed"
		}
		fmt.Printf("  %-6s %s: %d copied (%s), %d skipped, %d failed\n",
			status, t.Root, t.Copied, humanize.Bytes(uint64(t.BytesCopied)), t.Skipped, t.Failed)
	}
}

// log command
var logCmd = &cobra.Command{
	Use:   "log TARGET",
	Short: "View a target's summary log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "log")
		if err != nil {
			return err
		}
		defer a.Close()

		lines, err := a.SummaryLog(args[0])
		if err != nil {
			return err
		}

		if len(lines) == 0 {
			fmt.Println("No backups logged.")
			return nil
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View backup run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No backup runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond)
			fmt.Printf("%s  %s (%s)  %-9s  %s  %d file(s)  %s\n",
				shortID(run.ID),
				run.StartedAt.Format("2006-01-02 15:04:05"),
				humanize.Time(run.StartedAt),
				run.State,
				run.SourceRoot,
				run.Total,
				duration,
			)
			for _, t := range run.Targets {
				line := fmt.Sprintf("    -> %s: %d copied (%s), %d skipped, %d failed",
					t.Root, t.Copied, humanize.Bytes(uint64(t.BytesCopied)), t.Skipped, t.Failed)
				if t.Error != "" {
					line += "  error: " + t.Error
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().IntP("workers", "w", 1, "Number of targets synced concurrently")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
}

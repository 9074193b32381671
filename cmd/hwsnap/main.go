package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigreer/hwsnap/internal/config"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	rootDir   string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "hwsnap",
	Short: "Hardware inventory snapshots",
	Long: `hwsnap inventories the hardware of the host it runs on: CPUs, memory
modules, disks, GPUs, network interfaces and system/BMC identity.

Every category is resolved from several sources (sysfs, /proc, vendor tools,
SMBIOS, libraries). Sources that are missing or fail are reported as
diagnostics; they never abort the snapshot.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hwsnap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hwsnap %s\n", version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/hwsnap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console, json")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "filesystem root for pseudo-file reads (default /)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-probe timeout (default 10s)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(detectorsCmd)
	rootCmd.AddCommand(inventoryCmd)
}

// loadConfig reads the config file, applies global flag overrides and
// attaches the configured logger to the command context. It exits on an
// invalid configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, context.Context) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("root") {
		cfg.Root = rootDir
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level, _ = logging.ParseLevel(cfg.Log.Level)
	logCfg.Format = cfg.Log.Format
	logger := logging.New(logCfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Debug().Str("config", cfg.Path).Str("root", cfg.Root).Msg("configuration loaded")
	return cfg, logging.WithContext(ctx, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

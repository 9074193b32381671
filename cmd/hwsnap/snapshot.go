package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/hwsnap/internal/config"
	"github.com/sigreer/hwsnap/internal/db"
	"github.com/sigreer/hwsnap/internal/report"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Collect a hardware snapshot of this host",
	Long: `Collect every category (or the ones named with --category) and print the
resulting report. With --save the report also becomes the host's latest
snapshot in the inventory database.

Examples:
  hwsnap snapshot
  hwsnap snapshot -o json --output /tmp/node07.json
  hwsnap snapshot --category storage --category memory
  hwsnap snapshot --save`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, ctx := loadConfig(cmd)

		format := outputFormat(cmd, cfg)
		categories, _ := cmd.Flags().GetStringSlice("category")
		if len(categories) == 0 {
			categories = cfg.Categories
		}
		outPath, _ := cmd.Flags().GetString("output")
		save, _ := cmd.Flags().GetBool("save")

		r, err := report.Collect(ctx, cfg.Env(), categories)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error collecting snapshot: %v\n", err)
			os.Exit(1)
		}

		if err := writeOutput(outPath, func(w io.Writer) error {
			return report.Encode(w, r, format)
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}

		if save {
			database := openDB(cfg)
			defer database.Close()
			if err := database.SaveReport(r); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving snapshot: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Snapshot %s saved for %s\n", r.ID, r.Hostname)
		}
	},
}

func init() {
	snapshotCmd.Flags().StringP("format", "o", "", "output format: table, json, yaml")
	snapshotCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	snapshotCmd.Flags().StringSlice("category", nil, "category to collect (repeatable)")
	snapshotCmd.Flags().Bool("save", false, "store the snapshot in the inventory database")
}

// outputFormat resolves the --format flag against the configured default.
func outputFormat(cmd *cobra.Command, cfg *config.Config) report.Format {
	name := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		name, _ = cmd.Flags().GetString("format")
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return format
}

// writeOutput runs write against path, or stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func openDB(cfg *config.Config) *db.DB {
	database, err := db.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return database
}

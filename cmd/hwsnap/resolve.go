package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/hwsnap/internal/report"
)

// resolution is the output of a single-category run.
type resolution struct {
	Category    string              `json:"category" yaml:"category"`
	Records     any                 `json:"records" yaml:"records"`
	Diagnostics []report.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Conflicts   []report.Conflict   `json:"conflicts" yaml:"conflicts"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <category>",
	Short: "Resolve one category and show its records and diagnostics",
	Long: `Run the detector chain of a single category and print the merged records
together with every failed detector and merge conflict.

Categories: ` + strings.Join(report.Categories(), ", "),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, ctx := loadConfig(cmd)
		format := outputFormat(cmd, cfg)

		r, err := report.Collect(ctx, cfg.Env(), args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving %s: %v\n", args[0], err)
			os.Exit(1)
		}

		if format == report.FormatTable {
			err = report.WriteTable(os.Stdout, r)
		} else {
			err = report.Encode(os.Stdout, resolutionOf(r), format)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	resolveCmd.Flags().StringP("format", "o", "", "output format: table, json, yaml")
}

func resolutionOf(r *report.Report) resolution {
	res := resolution{
		Category:    r.Categories[0],
		Diagnostics: r.Diagnostics,
		Conflicts:   r.Conflicts,
	}
	switch res.Category {
	case "system":
		res.Records = r.System
	case "cpu":
		res.Records = r.CPU
	case "memory":
		res.Records = r.Memory
	case "storage":
		res.Records = r.Storage
	case "gpu":
		res.Records = r.GPU
	case "network":
		res.Records = r.Network
	}
	return res
}

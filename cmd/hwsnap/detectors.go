package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/hwsnap/internal/report"
)

var detectorsCmd = &cobra.Command{
	Use:   "detectors [category...]",
	Short: "List detectors in the order they are tried",
	Long: `List the detectors of every category, or of the named ones, in priority
order. Names are given as <category>/<name> in disabled_detectors.`,
	Run: func(cmd *cobra.Command, args []string) {
		descriptors, err := report.Describe(args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			if err := report.WriteJSON(os.Stdout, descriptors); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}

		fmt.Printf("%-10s %-18s %-8s %s\n", "CATEGORY", "NAME", "PRIORITY", "SOURCE")
		fmt.Println(strings.Repeat("-", 72))
		for _, d := range descriptors {
			fmt.Printf("%-10s %-18s %-8d %s\n", d.Category, d.Name, d.Priority, d.Source)
		}
	},
}

func init() {
	detectorsCmd.Flags().Bool("json", false, "output as JSON")
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/hwsnap/internal/db"
	"github.com/sigreer/hwsnap/internal/report"
	"github.com/sigreer/hwsnap/internal/units"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Query stored snapshots",
	Long: `Query the inventory database filled by 'hwsnap snapshot --save'.

Each host keeps its latest snapshot. Devices with a serial number can be
looked up across every stored host.`,
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored hosts",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig(cmd)
		database := openDB(cfg)
		defer database.Close()

		hosts, err := database.ListHosts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing hosts: %v\n", err)
			os.Exit(1)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			if err := report.WriteJSON(os.Stdout, hosts); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(hosts) == 0 {
			fmt.Println("No hosts in inventory. Run 'hwsnap snapshot --save' first.")
			return
		}

		fmt.Printf("%-20s %-24s %-14s %5s %10s %10s %5s %5s %-20s\n",
			"HOST", "PRODUCT", "SERIAL", "CPUS", "MEMORY", "STORAGE", "DISKS", "GPUS", "COLLECTED")
		fmt.Println(strings.Repeat("-", 124))
		for _, h := range hosts {
			fmt.Printf("%-20s %-24s %-14s %5d %10s %10s %5d %5d %-20s\n",
				truncate(h.Hostname, 20),
				truncate(h.Product, 24),
				truncate(h.Serial, 14),
				h.LogicalCPUs,
				units.Human(h.MemoryBytes, true),
				units.Human(h.StorageBytes, false),
				h.Disks,
				h.GPUs,
				h.CollectedAt.Local().Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\n%d host(s)\n", len(hosts))
	},
}

var inventoryShowCmd = &cobra.Command{
	Use:   "show <hostname>",
	Short: "Show the stored snapshot of a host",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig(cmd)
		format := outputFormat(cmd, cfg)
		database := openDB(cfg)
		defer database.Close()

		host, err := database.GetHost(args[0])
		if errors.Is(err, db.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: no snapshot stored for %s\n", args[0])
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading host: %v\n", err)
			os.Exit(1)
		}

		if format == report.FormatTable {
			fmt.Printf("First seen:  %s\n", host.FirstSeen.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Last saved:  %s\n\n", host.LastSeen.Local().Format("2006-01-02 15:04:05"))
		}
		if err := report.Encode(os.Stdout, host.Report, format); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	},
}

var inventoryFindCmd = &cobra.Command{
	Use:   "find <serial>",
	Short: "Find devices by serial number across hosts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig(cmd)
		database := openDB(cfg)
		defer database.Close()

		devices, err := database.FindDevicesBySerial(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error searching devices: %v\n", err)
			os.Exit(1)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			if err := report.WriteJSON(os.Stdout, devices); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(devices) == 0 {
			fmt.Printf("No device with serial %s\n", args[0])
			os.Exit(1)
		}

		fmt.Printf("%-20s %-10s %-16s %-28s %-20s %s\n", "HOST", "CATEGORY", "IDENTITY", "MODEL", "SERIAL", "SIZE")
		fmt.Println(strings.Repeat("-", 110))
		for _, d := range devices {
			size := "-"
			if d.SizeBytes > 0 {
				size = units.Human(d.SizeBytes, d.Category != "storage")
			}
			fmt.Printf("%-20s %-10s %-16s %-28s %-20s %s\n",
				truncate(d.Hostname, 20), d.Category, truncate(d.Identity, 16),
				truncate(d.Model, 28), d.Serial, size)
		}
	},
}

func init() {
	inventoryListCmd.Flags().Bool("json", false, "output as JSON")
	inventoryShowCmd.Flags().StringP("format", "o", "", "output format: table, json, yaml")
	inventoryFindCmd.Flags().Bool("json", false, "output as JSON")

	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryShowCmd)
	inventoryCmd.AddCommand(inventoryFindCmd)
}

func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

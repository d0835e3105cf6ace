package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	discoverInterfaces []string
	discoverAutoApply  bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover new bundle versions in remote storage",
	Long: `Scan remote storage for the given interfaces and record every bundle
version not yet in the ledger as a pending migration. With --auto-apply the
new records are applied immediately as one batch.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringSliceVar(&discoverInterfaces, "interfaces", nil, "Interfaces to scan (default: all)")
	discoverCmd.Flags().BoolVar(&discoverAutoApply, "auto-apply", false, "Apply newly discovered records immediately")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	client := newClient()

	body := map[string]any{}
	if len(discoverInterfaces) > 0 {
		body["interfaces"] = discoverInterfaces
	}
	if discoverAutoApply {
		body["autoApply"] = true
	}

	var resp discoverResponse
	if err := client.postJSON(basePath+"/discover", body, &resp); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	fmt.Printf("Discovered %d new bundle(s), %d already known\n\n",
		len(resp.Discovery.Created), resp.Discovery.Skipped)

	if len(resp.Discovery.Created) > 0 {
		headers := []string{"ID", "Interface", "Filename", "Version", "Status"}
		rows := make([][]string, 0, len(resp.Discovery.Created))
		for _, m := range resp.Discovery.Created {
			rows = append(rows, []string{m.ID, m.Interface, m.Filename, m.Version, m.Status})
		}
		printTable(headers, rows)
	}

	for _, ir := range resp.Discovery.Ifaces {
		if ir.Error != "" {
			fmt.Printf("\nWarning: interface %s failed: %s\n", ir.Interface, ir.Error)
		}
	}

	if resp.Batch != nil {
		fmt.Printf("\nAuto-apply batch %s: %d succeeded, %d failed\n",
			resp.Batch.BatchNumber, resp.Batch.Succeeded, resp.Batch.Failed)
	}

	return nil
}

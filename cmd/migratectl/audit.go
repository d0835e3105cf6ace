package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	auditActor    string
	auditRecordID string
	auditType     string
	auditPageSize int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse the audit trail",
	RunE:  runAuditList,
}

func init() {
	auditCmd.Flags().StringVar(&auditActor, "actor", "", "Filter by acting user")
	auditCmd.Flags().StringVar(&auditRecordID, "record", "", "Filter by migration record ID")
	auditCmd.Flags().StringVar(&auditType, "type", "", "Filter by event type (e.g. migration.applied, api.discover)")
	auditCmd.Flags().IntVar(&auditPageSize, "page-size", 50, "Maximum events to return")
}

func runAuditList(cmd *cobra.Command, args []string) error {
	client := newClient()

	params := url.Values{}
	if auditActor != "" {
		params.Set("actor", auditActor)
	}
	if auditRecordID != "" {
		params.Set("recordId", auditRecordID)
	}
	if auditType != "" {
		params.Set("eventType", auditType)
	}
	params.Set("pageSize", fmt.Sprintf("%d", auditPageSize))

	var resp auditListResponse
	if err := client.getJSON(basePath+"/audit/events?"+params.Encode(), &resp); err != nil {
		return fmt.Errorf("listing audit events failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"Time", "Type", "Actor", "Record", "Outcome", "Message"}
	rows := make([][]string, 0, len(resp.Events))
	for _, ev := range resp.Events {
		rows = append(rows, []string{
			ev.CreatedAt, ev.EventType, ev.Actor, ev.RecordID, ev.Outcome, truncate(ev.Message, 60),
		})
	}
	printTable(headers, rows)
	if resp.NextPageToken != "" {
		fmt.Printf("\nMore results available, next page token: %s\n", resp.NextPageToken)
	}
	return nil
}

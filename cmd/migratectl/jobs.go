package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	jobsState     string
	jobsOperation string
	jobsRecordID  string
	jobsPageSize  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect background migration jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List background jobs",
	RunE:  runJobsList,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a single job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsState, "state", "", "Filter by state (queued, running, succeeded, failed, canceled)")
	jobsListCmd.Flags().StringVar(&jobsOperation, "operation", "", "Filter by operation (apply, applyBatch, retryFailed)")
	jobsListCmd.Flags().StringVar(&jobsRecordID, "record", "", "Filter by migration record ID")
	jobsListCmd.Flags().IntVar(&jobsPageSize, "page-size", 50, "Maximum jobs to return")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	client := newClient()

	params := url.Values{}
	if jobsState != "" {
		params.Set("state", jobsState)
	}
	if jobsOperation != "" {
		params.Set("operation", jobsOperation)
	}
	if jobsRecordID != "" {
		params.Set("recordId", jobsRecordID)
	}
	params.Set("pageSize", fmt.Sprintf("%d", jobsPageSize))

	var resp jobListResponse
	if err := client.getJSON(basePath+"/jobs?"+params.Encode(), &resp); err != nil {
		return fmt.Errorf("listing jobs failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Operation", "Record", "State", "Requested By", "Error"}
	rows := make([][]string, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		rows = append(rows, []string{
			j.ID, j.Operation, j.RecordID, j.State, j.RequestedBy, truncate(j.LastError, 40),
		})
	}
	printTable(headers, rows)
	if resp.NextPageToken != "" {
		fmt.Printf("\nMore results available, next page token: %s\n", resp.NextPageToken)
	}
	return nil
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var j jobInfo
	if err := client.getJSON(basePath+"/jobs/"+args[0], &j); err != nil {
		return fmt.Errorf("fetching job failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(j)
	}

	printTable(
		[]string{"Field", "Value"},
		[][]string{
			{"ID", j.ID},
			{"Environment", j.Environment},
			{"Operation", j.Operation},
			{"Record", j.RecordID},
			{"State", j.State},
			{"Requested By", j.RequestedBy},
			{"Requested At", j.RequestedAt},
			{"Rows Written", fmt.Sprintf("%d", j.RowsWritten)},
			{"Error", j.LastError},
		},
	)
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	client := newClient()

	var j jobInfo
	if err := client.postJSON(basePath+"/jobs/"+args[0]+":cancel", nil, &j); err != nil {
		return fmt.Errorf("canceling job failed: %w", err)
	}
	fmt.Printf("Job %s is now %s\n", j.ID, j.State)
	return nil
}

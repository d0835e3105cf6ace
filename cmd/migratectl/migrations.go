package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var (
	listInterface string
	listStatus    string
	listBatch     string
	listPageSize  int
	applyAsync    bool
	applyNoBackup bool
	applyNoVerify bool
	batchAsync    bool
	retryAllAsync bool
)

var migrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "Inspect and drive migration records",
}

var migrationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List migration records",
	RunE:  runMigrationsList,
}

var migrationsGetCmd = &cobra.Command{
	Use:   "get <migration-id>",
	Short: "Show a single migration record",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrationsGet,
}

var migrationsPreviewCmd = &cobra.Command{
	Use:   "preview <migration-id>",
	Short: "Show the key-level diff a migration would apply",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrationsPreview,
}

var migrationsDownloadCmd = &cobra.Command{
	Use:   "download <migration-id>",
	Short: "Download the raw bundle payload of a migration",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrationsDownload,
}

var migrationsApplyCmd = &cobra.Command{
	Use:   "apply <migration-id>",
	Short: "Apply a pending migration to the live translation store",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrationsApply,
}

var migrationsRollbackCmd = &cobra.Command{
	Use:   "rollback <migration-id>",
	Short: "Restore the pre-apply snapshot of a completed migration",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrationsRollback,
}

var migrationsRetryCmd = &cobra.Command{
	Use:   "retry <migration-id>",
	Short: "Reset a failed migration and re-run the apply",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrationsRetry,
}

var migrationsApplyBatchCmd = &cobra.Command{
	Use:   "apply-batch <migration-id> [migration-id...]",
	Short: "Apply several pending migrations as one batch",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMigrationsApplyBatch,
}

var migrationsRetryFailedCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Reset every failed migration in the environment and re-apply",
	RunE:  runMigrationsRetryFailed,
}

func init() {
	migrationsListCmd.Flags().StringVar(&listInterface, "interface", "", "Filter by interface")
	migrationsListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, processing, completed, failed, rolled_back)")
	migrationsListCmd.Flags().StringVar(&listBatch, "batch", "", "Filter by batch number")
	migrationsListCmd.Flags().IntVar(&listPageSize, "page-size", 50, "Maximum records to return")

	migrationsApplyCmd.Flags().BoolVar(&applyAsync, "async", false, "Enqueue as a background job instead of waiting")
	migrationsApplyCmd.Flags().BoolVar(&applyNoBackup, "no-backup", false, "Skip the pre-apply snapshot (the migration cannot be rolled back)")
	migrationsApplyCmd.Flags().BoolVar(&applyNoVerify, "no-verify", false, "Skip the bundle checksum gate")
	migrationsApplyBatchCmd.Flags().BoolVar(&batchAsync, "async", false, "Enqueue as a background job instead of waiting")
	migrationsRetryFailedCmd.Flags().BoolVar(&retryAllAsync, "async", false, "Enqueue as a background job instead of waiting")

	migrationsCmd.AddCommand(migrationsListCmd)
	migrationsCmd.AddCommand(migrationsGetCmd)
	migrationsCmd.AddCommand(migrationsPreviewCmd)
	migrationsCmd.AddCommand(migrationsDownloadCmd)
	migrationsCmd.AddCommand(migrationsApplyCmd)
	migrationsCmd.AddCommand(migrationsRollbackCmd)
	migrationsCmd.AddCommand(migrationsRetryCmd)
	migrationsCmd.AddCommand(migrationsApplyBatchCmd)
	migrationsCmd.AddCommand(migrationsRetryFailedCmd)
}

func runMigrationsList(cmd *cobra.Command, args []string) error {
	client := newClient()

	params := url.Values{}
	if listInterface != "" {
		params.Set("interface", listInterface)
	}
	if listStatus != "" {
		params.Set("status", listStatus)
	}
	if listBatch != "" {
		params.Set("batch", listBatch)
	}
	params.Set("pageSize", fmt.Sprintf("%d", listPageSize))

	var resp migrationListResponse
	if err := client.getJSON(basePath+"/migrations?"+params.Encode(), &resp); err != nil {
		return fmt.Errorf("listing migrations failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Interface", "Filename", "Version", "Status", "Batch", "Error"}
	rows := make([][]string, 0, len(resp.Migrations))
	for _, m := range resp.Migrations {
		rows = append(rows, []string{
			m.ID, m.Interface, m.Filename, m.Version, m.Status,
			m.BatchNumber, truncate(m.ErrorMessage, 40),
		})
	}
	printTable(headers, rows)
	fmt.Printf("\n%d record(s)\n", resp.TotalSize)
	if resp.NextPageToken != "" {
		fmt.Printf("More results available, next page token: %s\n", resp.NextPageToken)
	}
	return nil
}

func runMigrationsGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var m migrationInfo
	if err := client.getJSON(basePath+"/migrations/"+args[0], &m); err != nil {
		return fmt.Errorf("fetching migration failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(m)
	}

	printTable(
		[]string{"Field", "Value"},
		[][]string{
			{"ID", m.ID},
			{"Environment", m.Environment},
			{"Interface", m.Interface},
			{"Filename", m.Filename},
			{"Version", m.Version},
			{"Status", m.Status},
			{"Batch", m.BatchNumber},
			{"Created", m.CreatedAt},
			{"Error", m.ErrorMessage},
		},
	)
	return nil
}

func runMigrationsPreview(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp previewResponse
	if err := client.getJSON(basePath+"/migrations/"+args[0]+"/preview", &resp); err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	fmt.Printf("Preview for %s: %d key(s), %d new, %d updated, %d deleted\n\n",
		resp.RecordID, resp.Summary.TotalKeys, resp.Summary.NewKeys,
		resp.Summary.UpdatedKeys, resp.Summary.DeletedKeys)

	headers := []string{"Change", "Key", "Locales"}
	rows := make([][]string, 0, len(resp.Changes))
	for _, c := range resp.Changes {
		locales := ""
		for loc := range c.Locales {
			if locales != "" {
				locales += ","
			}
			locales += loc
		}
		rows = append(rows, []string{c.Kind, c.Key, truncate(locales, 50)})
	}
	printTable(headers, rows)
	return nil
}

func runMigrationsDownload(cmd *cobra.Command, args []string) error {
	client := newClient()

	data, err := client.getRaw(basePath + "/migrations/" + args[0] + "/download")
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runMigrationsApply(cmd *cobra.Command, args []string) error {
	client := newClient()
	path := basePath + "/migrations/" + args[0] + ":apply"

	if applyAsync {
		var job enqueuedJob
		if err := client.postJSON(path, map[string]any{"async": true}, &job); err != nil {
			return fmt.Errorf("apply failed: %w", err)
		}
		fmt.Printf("Enqueued job %s (%s)\n", job.JobID, job.State)
		return nil
	}

	body := map[string]any{}
	if applyNoBackup {
		body["createBackup"] = false
	}
	if applyNoVerify {
		body["validateChecksum"] = false
	}

	var resp applyResponse
	if err := client.postJSON(path, body, &resp); err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}
	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}
	fmt.Printf("Applied %s: %d key(s), %d row(s) written\n",
		resp.RecordID, resp.KeysApplied, resp.RowsWritten)
	return nil
}

func runMigrationsRollback(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp rollbackResponse
	if err := client.postJSON(basePath+"/migrations/"+args[0]+":rollback", nil, &resp); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}
	fmt.Printf("Rolled back %s: %d row(s) restored\n", resp.RecordID, resp.RowsRestored)
	return nil
}

func runMigrationsRetry(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp applyResponse
	if err := client.postJSON(basePath+"/migrations/"+args[0]+":retry", nil, &resp); err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}
	fmt.Printf("Retried %s: %d key(s), %d row(s) written\n",
		resp.RecordID, resp.KeysApplied, resp.RowsWritten)
	return nil
}

func runMigrationsApplyBatch(cmd *cobra.Command, args []string) error {
	client := newClient()
	body := map[string]any{"recordIds": args}

	if batchAsync {
		body["async"] = true
		var job enqueuedJob
		if err := client.postJSON(basePath+"/migrations:applyBatch", body, &job); err != nil {
			return fmt.Errorf("batch apply failed: %w", err)
		}
		fmt.Printf("Enqueued job %s (%s)\n", job.JobID, job.State)
		return nil
	}

	var resp batchResponse
	if err := client.postJSON(basePath+"/migrations:applyBatch", body, &resp); err != nil {
		return fmt.Errorf("batch apply failed: %w", err)
	}
	return printBatchResult(&resp)
}

func runMigrationsRetryFailed(cmd *cobra.Command, args []string) error {
	client := newClient()

	if retryAllAsync {
		var job enqueuedJob
		if err := client.postJSON(basePath+"/migrations:retryFailed", map[string]any{"async": true}, &job); err != nil {
			return fmt.Errorf("retry-failed failed: %w", err)
		}
		fmt.Printf("Enqueued job %s (%s)\n", job.JobID, job.State)
		return nil
	}

	var resp batchResponse
	if err := client.postJSON(basePath+"/migrations:retryFailed", nil, &resp); err != nil {
		return fmt.Errorf("retry-failed failed: %w", err)
	}
	return printBatchResult(&resp)
}

func printBatchResult(resp *batchResponse) error {
	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	fmt.Printf("Batch %s: %d succeeded, %d failed\n\n", resp.BatchNumber, resp.Succeeded, resp.Failed)
	headers := []string{"ID", "Result", "Rows", "Error"}
	rows := make([][]string, 0, len(resp.Outcomes))
	for _, o := range resp.Outcomes {
		result := "ok"
		if !o.Succeeded {
			result = "failed"
		}
		rows = append(rows, []string{o.RecordID, result, fmt.Sprintf("%d", o.RowsWritten), truncate(o.Error, 50)})
	}
	printTable(headers, rows)
	return nil
}

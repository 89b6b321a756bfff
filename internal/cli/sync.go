package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"textilepro/internal/catalogsync"
	"textilepro/internal/domain"
	"textilepro/internal/repos"
)

var (
	statusLimit int
	statusJSON  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Control the TopTex catalog sync",
}

var syncStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run a catalog sync in the foreground",
	Long: `Run a catalog sync and wait for it to finish.

Fails when another sync is still active; use force-restart to supersede it.
Interrupting the command marks the job failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, false)
	},
}

var syncForceCmd = &cobra.Command{
	Use:   "force-restart",
	Short: "Expire active syncs and run a new one in the foreground",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, true)
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest sync jobs and the product count",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

func init() {
	syncStatusCmd.Flags().IntVar(&statusLimit, "limit", catalogsync.DefaultStatusLimit, "number of jobs to show")
	syncStatusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the report as JSON")
	syncCmd.AddCommand(syncStartCmd, syncForceCmd, syncStatusCmd)
}

func runSync(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	mgr, err := e.syncManager(ctx, e.supplier())
	if err != nil {
		return err
	}
	defer mgr.Close()

	var id string
	if force {
		var expired []string
		id, expired, err = mgr.ForceRestart(ctx)
		for _, x := range expired {
			fmt.Fprintf(cmd.OutOrStdout(), "expired %s\n", x)
		}
	} else {
		id, err = mgr.Start(ctx)
	}
	if err != nil {
		if id != "" {
			return fmt.Errorf("%w (job %s)", err, id)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "started %s\n", id)

	done := make(chan struct{})
	go func() {
		mgr.Wait(id)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Close cancels the run; its final state is saved before Wait returns.
		mgr.Close()
		<-done
	}

	job, err := repos.NewSyncJobRepo(e.db).Get(context.WithoutCancel(ctx), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d products in %dms\n", job.ID, job.Status, job.ProductsCount, job.FinishedInMs)
	if job.Status != domain.JobCompleted {
		return fmt.Errorf("sync %s ended %s: %s", job.ID, job.Status, job.ErrorMessage)
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	// Status reads the tables only, so no supplier client is needed.
	products := repos.NewProductRepo(e.db)
	jobs := repos.NewSyncJobRepo(e.db)
	mgr := catalogsync.NewManager(jobs, products, catalogsync.NewSyncer(nil, products, jobs, catalogsync.DefaultPolicy()))
	defer mgr.Close()

	rep, err := mgr.Status(ctx, statusLimit)
	if err != nil {
		return err
	}
	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(cmd, rep)
	return nil
}

func printReport(cmd *cobra.Command, rep catalogsync.StatusReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "products: %d\n\n", rep.ProductCount)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tEXPORTS\tPOLLS\tBYTES\tPRODUCTS\tERROR")
	for _, j := range rep.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			j.ID, j.Status, j.StartedAt, j.ExportAttempts, j.S3PollCount, j.DownloadBytes, j.ProductsCount, j.ErrorMessage)
	}
	_ = tw.Flush()
	if len(rep.Jobs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no sync jobs yet")
	}
}

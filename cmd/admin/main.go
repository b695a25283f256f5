// Command admin runs maintenance tasks against the dataset store and
// inspects workbooks locally.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/insightdesk/internal/admin"
	"github.com/JonMunkholm/insightdesk/internal/config"
	"github.com/JonMunkholm/insightdesk/internal/core"
	"github.com/JonMunkholm/insightdesk/internal/files"
	"github.com/JonMunkholm/insightdesk/internal/logging"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

var (
	confirm bool
	pretty  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Maintenance tasks for the dataset store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored datasets, newest first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every dataset with its rows and uploaded file",
		Args:  cobra.NoArgs,
		RunE:  runReset,
	}
	resetCmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the reset")

	inspectCmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Parse a workbook and print a profile of every sheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Report datasets whose stored rows differ from their recorded total",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}

	rootCmd.AddCommand(listCmd, resetCmd, inspectCmd, verifyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore connects to the configured store. The returned func closes it.
func openStore(ctx context.Context) (store.Repository, *config.Config, func(), error) {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	repo, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, nil, err
	}
	return repo, cfg, func() { _ = repo.Close(context.Background()) }, nil
}

// openDatasets wraps the configured store with the upload directory. The
// returned func closes the store.
func openDatasets(ctx context.Context) (*core.DatasetStore, func(), error) {
	repo, cfg, closeFn, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	disk, err := files.NewDisk(cfg.Upload.Dir)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	ds := core.NewDatasetStore(repo, disk, cfg.Upload.BatchSize, core.PageLimits{
		Default: cfg.Pagination.DefaultLimit,
		Max:     cfg.Pagination.MaxLimit,
	})
	return ds, closeFn, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	ds, closeFn, err := openDatasets(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	list, err := ds.ListAll(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROWS\tVERSION\tCREATED")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.ID, d.Name, d.Metadata.TotalRows, d.Version, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !confirm {
		return errors.New("reset deletes every dataset; pass --yes to confirm")
	}

	ds, closeFn, err := openDatasets(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := admin.ResetAll(cmd.Context(), ds)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d datasets\n", n)
	return err
}

func runVerify(cmd *cobra.Command, _ []string) error {
	repo, _, closeFn, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	drifts, err := admin.Verify(cmd.Context(), repo)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "all datasets consistent")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRECORDED\tSTORED")
	for _, d := range drifts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", d.Dataset.ID, d.Dataset.Name, d.Dataset.Metadata.TotalRows, d.Stored)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%d datasets out of sync", len(drifts))
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !workbook.IsTabular(filepath.Ext(path)) {
		return fmt.Errorf("%s is not a spreadsheet (.xlsx, .xls or .csv)", path)
	}
	sheets, err := workbook.ParseFile(path)
	if err != nil {
		return err
	}

	profiles := make([]core.SheetProfile, 0, len(sheets))
	for _, sh := range sheets {
		profiles = append(profiles, core.ProfileSheet(sh))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(profiles)
}

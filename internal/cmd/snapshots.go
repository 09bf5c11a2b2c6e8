package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// snapshotsCmd represents the snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage saved signature snapshots",
	Long: `List, show, delete and clear the snapshots saved with 'csig extract --save'.

Snapshots live in .csig/cache.db, found by walking up from the working
directory. Without a subcommand, the snapshots are listed.

Examples:
  csig snapshots
  csig snapshots show 3.12
  csig snapshots delete 3.11
  csig snapshots clear`,
	Args: cobra.NoArgs,
	RunE: runSnapshotsList,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the signatures stored in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsDelete,
}

var snapshotsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsClear,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)
	snapshotsCmd.AddCommand(snapshotsClearCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := openCache(false)
	if err != nil {
		return err
	}
	defer c.Close()

	snaps, err := c.ListSnapshots()
	if err != nil {
		return err
	}
	if stats, err := c.GetStats(); err == nil {
		logf("%d snapshots holding %d signatures", stats.SnapshotCount, stats.SignatureCount)
	}
	return writeOutput(cmd, cfg, snaps)
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := openCache(false)
	if err != nil {
		return err
	}
	defer c.Close()

	sigs, err := c.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	return writeOutput(cmd, cfg, sigs)
}

func runSnapshotsDelete(cmd *cobra.Command, args []string) error {
	c, err := openCache(false)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.DeleteSnapshot(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
	return nil
}

func runSnapshotsClear(cmd *cobra.Command, args []string) error {
	c, err := openCache(false)
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.GetStats()
	if err != nil {
		return err
	}
	if err := c.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d snapshots\n", stats.SnapshotCount)
	return nil
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/seastarlegal/seastar/internal/markdown"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot and restore the whole database",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot every collection into a new backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := st.CreateBackup(cmd.Context())
		if err != nil {
			return err
		}
		counts := make(map[string]int, len(b.Data))
		for name := range b.Data {
			counts[name] = b.Count(name)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created backup %d\n", b.ID)
		fmt.Fprintln(out, markdown.RenderCountTable("Collection", counts))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backups, err := st.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, backups)
		}
		fmt.Fprintln(cmd.OutOrStdout(), markdown.RenderBackupTable(backups))
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace every collection except backups with a backup's contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := backupID(args[0])
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Restore backup %d? Current records will be replaced.", id)); err != nil {
			return err
		}
		if err := st.RestoreBackup(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored backup %d\n", id)
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := backupID(args[0])
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Delete backup %d?", id)); err != nil {
			return err
		}
		if err := st.DeleteBackup(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %d\n", id)
		return nil
	},
}

func backupID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid backup id %q", s)
	}
	return id, nil
}

func init() {
	backupListCmd.Flags().Bool("json", false, "print as JSON")
	backupRestoreCmd.Flags().BoolP("force", "f", false, "skip confirmation")
	backupDeleteCmd.Flags().BoolP("force", "f", false, "skip confirmation")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	rootCmd.AddCommand(backupCmd)
}

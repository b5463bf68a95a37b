package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/seastarlegal/seastar/internal/workspace"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Link a directory to a data directory",
}

var workspaceLinkCmd = &cobra.Command{
	Use:         "link <data-dir>",
	Short:       "Use <data-dir> for commands run in or below the current directory",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := workspace.Write(cwd, target); err != nil {
			return err
		}
		logger.Debug("workspace linked")
		fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to %s\n", workspace.FileName, target)
		return nil
	},
}

var workspaceUnlinkCmd = &cobra.Command{
	Use:         "unlink",
	Short:       "Remove the link in the current directory",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := workspace.Remove(cwd); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", workspace.FileName)
		return nil
	},
}

var workspaceShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the data directory commands use from here",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		linked, dir, err := workspace.Find(cwd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if linked == "" {
			fmt.Fprintf(out, "%s (no link; run: seastar workspace link <data-dir>)\n", dataDir)
			return nil
		}
		fmt.Fprintf(out, "%s (from %s)\n", linked, filepath.Join(dir, workspace.FileName))
		return nil
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceLinkCmd)
	workspaceCmd.AddCommand(workspaceUnlinkCmd)
	workspaceCmd.AddCommand(workspaceShowCmd)
	rootCmd.AddCommand(workspaceCmd)
}

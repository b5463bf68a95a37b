package cmd

import (
	"fmt"

	"github.com/seastarlegal/seastar/internal/markdown"
	"github.com/seastarlegal/seastar/internal/syncer"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Assemble the sync payload and report what it holds",
	Long: `Sync reads every collection into a payload the way a server sync would.
There is no sync server, so nothing is transmitted. The run is skipped when
the autoSync setting is false, unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		res, err := syncer.New(st, syncer.WithLogger(logger.Named("sync"))).Sync(cmd.Context(), force)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, res)
		}
		out := cmd.OutOrStdout()
		if res.Skipped {
			fmt.Fprintln(out, "Sync skipped: autoSync is off (use --force to run anyway)")
			return nil
		}
		fmt.Fprintf(out, "Sync payload %s at %s\n", res.PayloadID, res.Timestamp)
		fmt.Fprintln(out, markdown.RenderCountTable("Collection", res.Counts))
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("force", false, "run even when autoSync is off")
	syncCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(syncCmd)
}

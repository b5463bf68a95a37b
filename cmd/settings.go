package cmd

import (
	"fmt"
	"sort"

	"github.com/seastarlegal/seastar/internal/markdown"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change application settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := st.GetSettings(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, settings)
		}
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := cmd.OutOrStdout()
		for _, k := range keys {
			fmt.Fprintln(out, markdown.RenderField(k, markdown.FormatValue(settings[k])))
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting (value parsed as JSON when possible)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := st.UpdateSetting(cmd.Context(), args[0], parseValue(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
		return nil
	},
}

func init() {
	settingsListCmd.Flags().Bool("json", false, "print as JSON")

	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

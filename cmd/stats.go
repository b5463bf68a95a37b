package cmd

import (
	"fmt"
	"time"

	"github.com/seastarlegal/seastar/internal/markdown"
	"github.com/seastarlegal/seastar/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := st.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, s)
		}
		fmt.Fprintln(cmd.OutOrStdout(), markdown.RenderStats(s))
		return nil
	},
}

var statsCasesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Break cases down by type, status, court and month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := st.GetCaseStats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, cs)
		}
		timeline := make(map[string]int, len(cs.Timeline))
		for _, m := range cs.Timeline {
			timeline[m.Month] = m.Count
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, markdown.RenderCountTable("Type", cs.ByType))
		fmt.Fprintln(out, markdown.RenderCountTable("Status", cs.ByStatus))
		fmt.Fprintln(out, markdown.RenderCountTable("Court", cs.ByCourt))
		fmt.Fprintln(out, markdown.RenderCountTable("Month", timeline))
		return nil
	},
}

var statsFinancialCmd = &cobra.Command{
	Use:   "financial",
	Short: "Sum case fees, paid and pending",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := st.GetFinancialStats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, fs)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, markdown.RenderField("Total fees", markdown.FormatAmount(fs.TotalFees)))
		fmt.Fprintln(out, markdown.RenderField("Paid", markdown.FormatAmount(fs.PaidFees)))
		fmt.Fprintln(out, markdown.RenderField("Pending", markdown.FormatAmount(fs.PendingFees)))
		fmt.Fprintln(out, markdown.RenderAmountTable("Month", fs.ByMonth))
		fmt.Fprintln(out, markdown.RenderAmountTable("Payment method", fs.ByPaymentMethod))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Court session views",
}

var sessionsUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List scheduled sessions from today through the next N days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if !cmd.Flags().Changed("days") {
			days = cfg.UpcomingDays
		}
		sessions, err := st.GetUpcomingSessions(cmd.Context(), days)
		if err != nil {
			return err
		}
		return printRecords(cmd, store.Sessions, sessions)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the full office report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildReport(cmd)
		if err != nil {
			return err
		}
		content := markdown.BuildReport(r)
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}
		rendered, err := markdown.RenderMarkdown(content, 100)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func buildReport(cmd *cobra.Command) (markdown.Report, error) {
	ctx := cmd.Context()
	r := markdown.Report{Generated: time.Now().In(st.Location())}
	var err error
	if r.Stats, err = st.GetStats(ctx); err != nil {
		return r, err
	}
	if r.Cases, err = st.GetCaseStats(ctx); err != nil {
		return r, err
	}
	if r.Financial, err = st.GetFinancialStats(ctx); err != nil {
		return r, err
	}
	r.Upcoming, err = st.GetUpcomingSessions(ctx, cfg.UpcomingDays)
	return r, err
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, statsCasesCmd, statsFinancialCmd, sessionsUpcomingCmd} {
		c.Flags().Bool("json", false, "print as JSON")
	}
	sessionsUpcomingCmd.Flags().Int("days", store.DefaultUpcomingDays, "window length in days, today included")
	sessionsUpcomingCmd.Flags().String("columns", "caseId,date,time,court,status", "comma-separated fields to show")

	reportCmd.Flags().Bool("raw", false, "print markdown without rendering")

	statsCmd.AddCommand(statsCasesCmd)
	statsCmd.AddCommand(statsFinancialCmd)
	sessionsCmd.AddCommand(sessionsUpcomingCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(reportCmd)
}

package markdown

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seastarlegal/seastar/internal/model"
)

// Report gathers the aggregates shown on the dashboard.
type Report struct {
	Generated time.Time
	Stats     *model.Stats
	Cases     *model.CaseStats
	Financial *model.FinancialStats
	Upcoming  []model.Record
}

// BuildReport writes the report as markdown, ready for RenderMarkdown.
func BuildReport(r Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# SeaStar Legal report\n\n_Generated %s_\n\n", r.Generated.Format("2006-01-02 15:04"))

	if st := r.Stats; st != nil {
		sb.WriteString("## Overview\n\n| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&sb, "| Total cases | %d |\n", st.TotalCases)
		fmt.Fprintf(&sb, "| Active cases | %d |\n", st.ActiveCases)
		fmt.Fprintf(&sb, "| Completed cases | %d |\n", st.CompletedCases)
		fmt.Fprintf(&sb, "| Clients | %d |\n", st.TotalClients)
		fmt.Fprintf(&sb, "| Sessions today | %d |\n", st.TodaySessions)
		fmt.Fprintf(&sb, "| Upcoming sessions | %d |\n", st.UpcomingSessions)
		fmt.Fprintf(&sb, "| Total revenue | %s |\n", FormatAmount(st.TotalRevenue))
		fmt.Fprintf(&sb, "| Collected revenue | %s |\n\n", FormatAmount(st.CollectedRevenue))
	}

	if cs := r.Cases; cs != nil {
		writeCounts(&sb, "Cases by status", cs.ByStatus)
		writeCounts(&sb, "Cases by type", cs.ByType)
		writeCounts(&sb, "Cases by court", cs.ByCourt)
		if len(cs.Timeline) > 0 {
			sb.WriteString("### Cases opened per month\n\n| Month | Cases |\n|---|---|\n")
			for _, m := range cs.Timeline {
				fmt.Fprintf(&sb, "| %s | %d |\n", m.Month, m.Count)
			}
			sb.WriteString("\n")
		}
	}

	if fs := r.Financial; fs != nil {
		sb.WriteString("## Fees\n\n")
		fmt.Fprintf(&sb, "- Total: **%s**\n- Paid: **%s**\n- Pending: **%s**\n\n",
			FormatAmount(fs.TotalFees), FormatAmount(fs.PaidFees), FormatAmount(fs.PendingFees))
		writeAmounts(&sb, "Paid by method", fs.ByPaymentMethod)
		writeAmounts(&sb, "Fees by month", fs.ByMonth)
	}

	if r.Upcoming != nil {
		sb.WriteString("## Upcoming sessions\n\n")
		if len(r.Upcoming) == 0 {
			sb.WriteString("No scheduled sessions.\n")
		}
		for _, s := range r.Upcoming {
			line := "- " + s.String("date")
			if court := s.String("court"); court != "" {
				line += " · " + court
			}
			if c, ok := s.Text("caseId"); ok {
				line += " · case " + c
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := sortedKeys(counts)
	fmt.Fprintf(sb, "### %s\n\n| | Count |\n|---|---|\n", title)
	for _, k := range keys {
		fmt.Fprintf(sb, "| %s | %d |\n", orNone(k), counts[k])
	}
	sb.WriteString("\n")
}

func writeAmounts(sb *strings.Builder, title string, amounts map[string]float64) {
	if len(amounts) == 0 {
		return
	}
	keys := sortedKeys(amounts)
	fmt.Fprintf(sb, "### %s\n\n| | Amount |\n|---|---|\n", title)
	for _, k := range keys {
		fmt.Fprintf(sb, "| %s | %s |\n", orNone(k), FormatAmount(amounts[k]))
	}
	sb.WriteString("\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

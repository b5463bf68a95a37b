package markdown

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/seastarlegal/seastar/internal/model"
)

var (
	headerRowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle      = lipgloss.NewStyle()
)

// maxAutoColumns caps the columns picked when the caller names none.
const maxAutoColumns = 6

// Columns returns the union of fields across records: keyField first, then
// the rest sorted, with the managed timestamps last when withTimestamps is
// set.
func Columns(records []model.Record, keyField string, withTimestamps bool) []string {
	seen := map[string]bool{}
	var rest []string
	for _, r := range records {
		for k := range r {
			if seen[k] || k == keyField || k == model.FieldCreatedAt || k == model.FieldUpdatedAt {
				continue
			}
			seen[k] = true
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	cols := []string{keyField}
	cols = append(cols, rest...)
	if withTimestamps {
		for _, ts := range []string{model.FieldCreatedAt, model.FieldUpdatedAt} {
			for _, r := range records {
				if _, ok := r[ts]; ok {
					cols = append(cols, ts)
					break
				}
			}
		}
	}
	return cols
}

// FormatValue renders a field value for a table cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// RenderRecordTable renders records with the given columns, or with the
// first few fields when columns is empty.
func RenderRecordTable(records []model.Record, keyField string, columns []string) string {
	if len(records) == 0 {
		return "No records found."
	}
	if len(columns) == 0 {
		for _, c := range Columns(records, keyField, false) {
			if c == BodyField {
				continue
			}
			columns = append(columns, c)
			if len(columns) == maxAutoColumns {
				break
			}
		}
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = FormatValue(r[c])
			if c == "status" {
				row[j] = RenderStatus(row[j])
			}
		}
		rows[i] = row
	}
	return renderTable(columns, rows)
}

func RenderBackupTable(backups []model.BackupSummary) string {
	if len(backups) == 0 {
		return "No backups found."
	}
	rows := make([][]string, len(backups))
	for i, b := range backups {
		rows[i] = []string{
			strconv.FormatInt(b.ID, 10),
			b.Name,
			FormatSize(b.Size),
			strconv.Itoa(b.SchemaVersion),
			b.CreatedAt,
		}
	}
	return renderTable([]string{"ID", "Name", "Size", "Schema", "Created"}, rows)
}

// RenderCountTable renders a grouping as label/count rows, largest first.
func RenderCountTable(label string, counts map[string]int) string {
	if len(counts) == 0 {
		return "Nothing to show."
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{orNone(k), strconv.Itoa(counts[k])}
	}
	return renderTable([]string{label, "Count"}, rows)
}

// RenderAmountTable renders a grouping of sums ordered by label.
func RenderAmountTable(label string, amounts map[string]float64) string {
	if len(amounts) == 0 {
		return "Nothing to show."
	}
	keys := make([]string, 0, len(amounts))
	for k := range amounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{orNone(k), FormatAmount(amounts[k])}
	}
	return renderTable([]string{label, "Amount"}, rows)
}

func RenderStats(st *model.Stats) string {
	rows := [][]string{
		{"Total cases", strconv.Itoa(st.TotalCases)},
		{"Active cases", strconv.Itoa(st.ActiveCases)},
		{"Completed cases", strconv.Itoa(st.CompletedCases)},
		{"Clients", strconv.Itoa(st.TotalClients)},
		{"Sessions today", strconv.Itoa(st.TodaySessions)},
		{"Upcoming sessions", strconv.Itoa(st.UpcomingSessions)},
		{"Total revenue", FormatAmount(st.TotalRevenue)},
		{"Collected revenue", FormatAmount(st.CollectedRevenue)},
	}
	return renderTable([]string{"Metric", "Value"}, rows)
}

func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatSize prints a byte count in B, KB or MB.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerRowStyle
			}
			return cellStyle
		})
	return t.Render()
}

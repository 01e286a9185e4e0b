package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FuturesSentinel/internal/model"
)

// maxReportRows bounds how many adjusted rows are listed in one message.
const maxReportRows = 10

// FormatRegressionReport renders a pipeline run for humans.
func FormatRegressionReport(r *model.RegressionReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📐 <b>%s adjusted for %s</b> | %s\n\n",
		r.Target, r.Reference, r.GeneratedAt.UTC().Format("2006-01-02 15:04:05")))

	if r.Empty {
		b.WriteString("Trades table is empty, nothing to adjust.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Stored rows: %d\n", r.TableRows))
	b.WriteString(fmt.Sprintf("Joined observations: %d\n", r.Observations))
	if r.Adjustment.Len() == 0 {
		b.WriteString("No matching timestamps between the two series.\n")
		return b.String()
	}

	adj := r.Adjustment
	b.WriteString(fmt.Sprintf("Slope: %.6f\n\n", adj.Slope))

	start := 0
	if adj.Len() > maxReportRows {
		start = adj.Len() - maxReportRows
		b.WriteString(fmt.Sprintf("(last %d of %d rows)\n", maxReportRows, adj.Len()))
	}
	for _, p := range adj.Points[start:] {
		b.WriteString(fmt.Sprintf("  %s  %.6f\n", p.Time.UTC().Format("15:04:05"), p.Price))
	}
	return b.String()
}

// FormatFailure renders a failed operation. Messages are sent as HTML, so the
// error text is escaped.
func FormatFailure(op string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", op, html.EscapeString(err.Error()))
}

// FormatPruneResult renders the outcome of a retention sweep.
func FormatPruneResult(deleted int64, cutoff time.Time) string {
	return fmt.Sprintf("🧹 Old trades deleted: %d (older than %s)", deleted, cutoff.UTC().Format(time.RFC3339))
}

// FormatRowCount renders a trade table count.
func FormatRowCount(table string, n int64) string {
	if n == 0 {
		return fmt.Sprintf("Table %s is empty.", table)
	}
	return fmt.Sprintf("Table %s holds %d rows.", table, n)
}

package reporting

import (
	"fmt"
	"strings"
	"time"

	"fuel-price-lab/internal/aggregate"
	"fuel-price-lab/internal/timeseries"
)

func formatMs(ms int64, loc *time.Location) string {
	if ms == 0 {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc).Format(TimeLayout)
}

// RenderMarkdown renders the database summary as Markdown.
func RenderMarkdown(s *Summary) string {
	var sb strings.Builder

	sb.WriteString("# Fuel Price Database\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Stations | %d |\n", s.Stats.Stations))
	sb.WriteString(fmt.Sprintf("| Prices | %d |\n", s.Stats.Prices))
	sb.WriteString(fmt.Sprintf("| First update | %s |\n", formatMs(s.Stats.FirstUpdate, s.Location)))
	sb.WriteString(fmt.Sprintf("| Last update | %s |\n", formatMs(s.Stats.LastUpdate, s.Location)))
	sb.WriteString("\n")

	sb.WriteString("## Stations\n\n")
	if len(s.Stations) == 0 {
		sb.WriteString("No stations.\n\n")
		return sb.String()
	}
	sb.WriteString("| ID | Station | Domain | Prices | First | Last | Latest |\n")
	sb.WriteString("|----|---------|--------|--------|-------|------|--------|\n")
	for _, r := range s.Stations {
		latest := make([]string, 0, len(r.Fuels))
		for _, f := range r.Fuels {
			latest = append(latest, fmt.Sprintf("%s %s", f.Name(), FormatPrice(r.Latest[f])))
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s | %s | %s |\n",
			r.ID, escapeCell(r.Name), r.Domain, r.Prices,
			formatMs(r.FirstUpdate, s.Location), formatMs(r.LastUpdate, s.Location),
			strings.Join(latest, ", ")))
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderChartMarkdown renders a per-trace overview of an aggregation result.
func RenderChartMarkdown(res *aggregate.Result, loc *time.Location) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", res.Title))
	if res.Caption != "" {
		sb.WriteString(res.Caption)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Range: %s - %s\n\n", formatMs(res.MinTime, loc), formatMs(res.MaxTime, loc)))

	sb.WriteString("| Trace | Color | Points | Min | Max | Mean |\n")
	sb.WriteString("|-------|-------|--------|-----|-----|------|\n")
	for _, tr := range res.Traces {
		lo, hi, mean := describe(tr.Series)
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s |\n",
			escapeCell(tr.Name), tr.Color.Hex(), tr.Series.Len(),
			FormatPrice(lo), FormatPrice(hi), FormatPrice(mean)))
	}
	sb.WriteString("\n")

	if len(res.Skipped) > 0 {
		sb.WriteString("Skipped (not enough data): ")
		sb.WriteString(strings.Join(res.Skipped, ", "))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func describe(s *timeseries.Series) (lo, hi, mean float32) {
	if s.IsEmpty() {
		return 0, 0, 0
	}
	lo, hi = s.At(0), s.At(0)
	var sum float64
	for i := 0; i < s.Len(); i++ {
		v := s.At(i)
		lo = min(lo, v)
		hi = max(hi, v)
		sum += float64(v)
	}
	return lo, hi, float32(sum / float64(s.Len()))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

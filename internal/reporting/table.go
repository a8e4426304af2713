package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fuel-price-lab/internal/domain"
)

// TimeLayout is the layout of timestamps in text output.
const TimeLayout = "02.01.2006 15:04"

// FormatPrice renders a price the way tables show it.
func FormatPrice(v float32) string {
	return fmt.Sprintf("%.3f€", v)
}

// RenderPriceTable renders one row per observed timestamp of st with a
// column per fuel type. Fuels without a price at a row's time show "-".
func RenderPriceTable(st *domain.Station, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	fuels := st.FuelTypes()

	seen := make(map[int64]bool)
	var times []int64
	for _, f := range fuels {
		for _, ts := range st.Prices(f).Keys() {
			if !seen[ts] {
				seen[ts] = true
				times = append(times, ts)
			}
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	header := []string{"Time"}
	for _, f := range fuels {
		header = append(header, f.Name())
	}
	rows := [][]string{header}
	for _, ts := range times {
		row := []string{time.UnixMilli(ts).In(loc).Format(TimeLayout)}
		for _, f := range fuels {
			if v, ok := st.Prices(f).Lookup(ts); ok {
				row = append(row, FormatPrice(v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}

	var sb strings.Builder
	sb.WriteString(st.Name)
	sb.WriteString("\n")
	if len(times) == 0 {
		sb.WriteString("No prices.\n")
		return sb.String()
	}
	writeAligned(&sb, rows)
	return sb.String()
}

// writeAligned writes rows as a pipe separated table with a rule under the
// header. Width is counted in runes so "€" occupies one column.
func writeAligned(sb *strings.Builder, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len([]rune(cell)))
		}
	}

	line := func(row []string) {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-len([]rune(cell))))
			}
		}
		sb.WriteString("\n")
	}

	line(rows[0])
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("-+-")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")
	for _, row := range rows[1:] {
		line(row)
	}
}

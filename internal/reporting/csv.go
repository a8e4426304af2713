package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"fuel-price-lab/internal/aggregate"
	"fuel-price-lab/internal/calendar"
)

// WriteTracesCSV writes every point of res as trace,color,key,label,price.
// The label is the local time for time axes, "15:04" for day offsets and
// "Mon 15:04" for week offsets.
func WriteTracesCSV(w io.Writer, res *aggregate.Result, loc *time.Location) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"trace", "color", "key", "label", "price"}); err != nil {
		return err
	}
	for _, tr := range res.Traces {
		color := tr.Color.Hex()
		s := tr.Series
		for i := 0; i < s.Len(); i++ {
			key := s.KeyAt(i)
			rec := []string{
				tr.Name,
				color,
				strconv.FormatInt(key, 10),
				AxisLabel(res.Axis, key, loc),
				strconv.FormatFloat(float64(s.At(i)), 'f', 3, 32),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// AxisLabel renders key according to axis.
func AxisLabel(axis aggregate.Axis, key int64, loc *time.Location) string {
	switch axis {
	case aggregate.AxisDay:
		return offsetClock(key % calendar.DayMillis)
	case aggregate.AxisWeek:
		day := key / calendar.DayMillis
		// Monday first; the closing key wraps to Monday
		wd := time.Weekday((day + 1) % 7)
		return fmt.Sprintf("%s %s", wd.String()[:3], offsetClock(key%calendar.DayMillis))
	default:
		if loc == nil {
			loc = time.UTC
		}
		return time.UnixMilli(key).In(loc).Format(TimeLayout)
	}
}

func offsetClock(ms int64) string {
	minutes := ms / 60_000
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

package scheduling

import (
	"sort"
	"time"
)

// DensityRow counts flights per hour of one calendar date.
type DensityRow struct {
	Date    string       `json:"date"`
	Hours   [24]int      `json:"hours"`
	Flights [24][]string `json:"flights"`
}

// DensityMatrix is the date × hour heat map of operative times.
type DensityMatrix struct {
	Rows         []DensityRow `json:"rows"`
	HourlyTotals [24]int      `json:"hourly_totals"`
}

// ComputeDensity buckets flights whose operative time lies in the closed
// window by date and hour of day, in the location of window.Start.
func ComputeDensity(flights []FlightOperation, window TimeRange) (DensityMatrix, error) {
	if err := window.Validate(); err != nil {
		return DensityMatrix{}, err
	}

	loc := window.Start.Location()
	rows := make(map[string]*DensityRow)
	var m DensityMatrix

	for _, f := range flights {
		if f.OperativeTime.IsZero() || !window.Contains(f.OperativeTime) {
			continue
		}
		t := f.OperativeTime.In(loc)
		date := t.Format(time.DateOnly)
		row, ok := rows[date]
		if !ok {
			row = &DensityRow{Date: date}
			rows[date] = row
		}
		h := t.Hour()
		row.Hours[h]++
		row.Flights[h] = append(row.Flights[h], f.ID)
		m.HourlyTotals[h]++
	}

	dates := make([]string, 0, len(rows))
	for d := range rows {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		m.Rows = append(m.Rows, *rows[d])
	}
	return m, nil
}

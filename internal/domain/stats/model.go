package stats

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Filter отбирает записи для сводки. Даты включительно, YYYY-MM-DD;
// пустая граница не ограничивает. DriverID 0 означает всех водителей.
type Filter struct {
	DriverID int64  `json:"driverId,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// MonthFilter охватывает один календарный месяц, "2024-05".
func MonthFilter(driverID int64, month string) (Filter, error) {
	start, err := time.Parse(monthLayout, month)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", ErrInvalidFilter, month)
	}
	end := start.AddDate(0, 1, -1)
	return Filter{DriverID: driverID, From: start.Format(dateLayout), To: end.Format(dateLayout)}, nil
}

func (f Filter) validate() error {
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidFilter, d)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return nil
}

func (f Filter) covers(date string) bool {
	if f.From != "" && date < f.From {
		return false
	}
	if f.To != "" && date > f.To {
		return false
	}
	return true
}

// Summary пересчитывается из согласованных рейсов, топлива и авансов при каждом вызове.
type Summary struct {
	Filter   Filter  `json:"filter"`
	Trips    int     `json:"trips"`
	Bags     float64 `json:"bags"`
	Earnings float64 `json:"earnings"`
	Revenue  float64 `json:"revenue"`
	Fuel     float64 `json:"fuel"`
	Tolls    float64 `json:"tolls"`
	Advances float64 `json:"advances"`
	Cost     float64 `json:"cost"`
	Profit   float64 `json:"profit"`
	Payable  float64 `json:"payable"`
	// Excluded - число рейсов, пропущенных из-за отсутствия согласования.
	Excluded int `json:"excluded"`
}

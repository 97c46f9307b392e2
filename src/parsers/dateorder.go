package parsers

import (
	"strconv"
	"strings"
	"time"
)

// DateOrder says how to read ambiguous NN/NN/YYYY dates in one column.
type DateOrder int

const (
	DayFirst DateOrder = iota
	MonthFirst
)

func (o DateOrder) String() string {
	if o == MonthFirst {
		return "month-first"
	}
	return "day-first"
}

// DetectDateOrder infers the date order for a whole column of raw values.
// A first component above 12 anywhere is proof of day-first; failing that, a
// second component above 12 is proof of month-first; with no evidence either
// way the column defaults to day-first. The verdict applies to every row in
// the column, including values that would also fit the other order.
func DetectDateOrder(values []string) DateOrder {
	dayFirstEvidence := 0
	monthFirstEvidence := 0

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		parts := strings.Split(value, "/")
		if len(parts) < 3 {
			continue
		}
		first, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		second, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			continue
		}
		if first > 12 {
			dayFirstEvidence++
		}
		if second > 12 {
			monthFirstEvidence++
		}
	}

	if dayFirstEvidence > 0 {
		return DayFirst
	}
	if monthFirstEvidence > 0 {
		return MonthFirst
	}
	return DayFirst
}

// FormatsForOrder returns the exact formats to try for the inferred order,
// 4-digit year first, then the 2-digit variant.
func FormatsForOrder(order DateOrder) []string {
	if order == MonthFirst {
		return []string{"01/02/2006", "01/02/06"}
	}
	return []string{"02/01/2006", "02/01/06"}
}

// TryParseDate walks the format chain and reports whether any format matched.
func TryParseDate(value string, formats []string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

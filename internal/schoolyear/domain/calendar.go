package domain

import (
	"strconv"
	"strings"
)

// MonthYear is one billable month stamped with its calendar year.
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

const (
	DefaultStartMonth = 9
	DefaultEndMonth   = 7
)

// AllowedMonths computes the ordered (month, calendar year) sequence covered
// by a school year. Months from the start month through December carry the
// first year of the period label; months from January through the end month
// carry the second. When the end month does not precede the start month the
// whole span stays inside the first year. A nil or malformed school year
// yields an empty sequence.
//
// Every operation that validates a (month, year) pair goes through this
// function; it is the single source of truth for the academic calendar.
func AllowedMonths(sy *SchoolYear) []MonthYear {
	if sy == nil {
		return nil
	}
	yStart, yEnd, ok := parsePeriodo(sy.Periodo)
	if !ok {
		return nil
	}

	start := sy.StartMonth
	if start < 1 || start > 12 {
		start = DefaultStartMonth
	}
	end := sy.EndMonth
	if end < 1 || end > 12 {
		end = DefaultEndMonth
	}

	wraps := end < start
	out := make([]MonthYear, 0, 12)
	m := start
	for {
		year := yStart
		if wraps && m < start {
			year = yEnd
		}
		out = append(out, MonthYear{Month: m, Year: year})
		if m == end {
			break
		}
		m++
		if m > 12 {
			m = 1
		}
	}
	return out
}

// Contains reports whether (month, year) is part of the school year's span.
func Contains(sy *SchoolYear, month, year int) bool {
	for _, my := range AllowedMonths(sy) {
		if my.Month == month && my.Year == year {
			return true
		}
	}
	return false
}

func parsePeriodo(periodo string) (yStart, yEnd int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(periodo), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	yStart, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	yEnd, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return yStart, yEnd, true
}

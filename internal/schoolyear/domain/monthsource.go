package domain

// MonthSource yields the month set the charge generator bills for a school
// year. Routing both the generator and the freeze/sync validators through
// this package keeps the two month sequences from silently diverging.
type MonthSource interface {
	Months(sy *SchoolYear) []MonthYear
}

// CalendarMonths derives the set from the school year's configured span.
type CalendarMonths struct{}

func (CalendarMonths) Months(sy *SchoolYear) []MonthYear {
	return AllowedMonths(sy)
}

// fixedBillingMonths is the legacy September..July list the generator has
// always billed, independent of the school year's configured span. Kept as
// the default until product confirms the calendar-backed set is the
// intended behavior.
var fixedBillingMonths = []int{9, 10, 11, 12, 1, 2, 3, 4, 5, 6, 7}

// FixedMonths stamps the legacy month list with calendar years taken from
// the period label: September..December with the first year, the rest with
// the second.
type FixedMonths struct{}

func (FixedMonths) Months(sy *SchoolYear) []MonthYear {
	if sy == nil {
		return nil
	}
	yStart, yEnd, ok := parsePeriodo(sy.Periodo)
	if !ok {
		return nil
	}
	out := make([]MonthYear, 0, len(fixedBillingMonths))
	for _, m := range fixedBillingMonths {
		year := yStart
		if m < DefaultStartMonth {
			year = yEnd
		}
		out = append(out, MonthYear{Month: m, Year: year})
	}
	return out
}

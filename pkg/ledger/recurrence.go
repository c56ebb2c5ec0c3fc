package ledger

import "time"

// DefaultInstallments is the number of installments expanded when the
// caller does not ask for a specific count.
const DefaultInstallments = 12

// Expand computes the due dates of the installments generated for a
// recurring transaction. It returns count dates strictly after base, the
// k-th offset by k recurrence units.
//
// Day-based units are daily (1 day), weekly (7 days), and biweekly
// (15 days). Month-based units use calendar months (monthly=1,
// bimonthly=2, quarterly=3, semiannual=6) and annual uses calendar years,
// all with time.AddDate semantics: overflowing dates normalize forward, so
// Jan 31 + 1 month is Mar 2 or Mar 3, never a clamped Feb 28.
//
// A recurrence of none (or an unknown one) and a non-positive count both
// yield nil.
func Expand(base time.Time, r Recurrence, count int) []time.Time {
	if count <= 0 || r == RecurNone {
		return nil
	}

	var days, months, years int
	switch r {
	case RecurDaily:
		days = 1
	case RecurWeekly:
		days = 7
	case RecurBiweekly:
		days = 15
	case RecurMonthly:
		months = 1
	case RecurBimonthly:
		months = 2
	case RecurQuarterly:
		months = 3
	case RecurSemiannual:
		months = 6
	case RecurAnnual:
		years = 1
	default:
		return nil
	}

	dates := make([]time.Time, count)
	for k := 1; k <= count; k++ {
		dates[k-1] = base.AddDate(years*k, months*k, days*k)
	}
	return dates
}

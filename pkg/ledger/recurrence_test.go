package ledger

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		base  time.Time
		r     Recurrence
		count int
		want  []time.Time
	}{
		{
			name:  "daily",
			base:  date(2025, time.March, 10),
			r:     RecurDaily,
			count: 3,
			want:  []time.Time{date(2025, time.March, 11), date(2025, time.March, 12), date(2025, time.March, 13)},
		},
		{
			name:  "weekly",
			base:  date(2025, time.March, 10),
			r:     RecurWeekly,
			count: 2,
			want:  []time.Time{date(2025, time.March, 17), date(2025, time.March, 24)},
		},
		{
			name:  "biweekly is fifteen days",
			base:  date(2025, time.January, 1),
			r:     RecurBiweekly,
			count: 2,
			want:  []time.Time{date(2025, time.January, 16), date(2025, time.January, 31)},
		},
		{
			name:  "monthly",
			base:  date(2025, time.April, 15),
			r:     RecurMonthly,
			count: 3,
			want:  []time.Time{date(2025, time.May, 15), date(2025, time.June, 15), date(2025, time.July, 15)},
		},
		{
			name:  "monthly overflows month end",
			base:  date(2025, time.January, 31),
			r:     RecurMonthly,
			count: 3,
			// AddDate normalizes: Feb 31 -> Mar 3, Mar 31 stays, Apr 31 -> May 1.
			want: []time.Time{date(2025, time.March, 3), date(2025, time.March, 31), date(2025, time.May, 1)},
		},
		{
			name:  "quarterly",
			base:  date(2025, time.January, 10),
			r:     RecurQuarterly,
			count: 2,
			want:  []time.Time{date(2025, time.April, 10), date(2025, time.July, 10)},
		},
		{
			name:  "semiannual crosses year",
			base:  date(2025, time.October, 1),
			r:     RecurSemiannual,
			count: 2,
			want:  []time.Time{date(2026, time.April, 1), date(2026, time.October, 1)},
		},
		{
			name:  "annual leap day normalizes",
			base:  date(2024, time.February, 29),
			r:     RecurAnnual,
			count: 1,
			want:  []time.Time{date(2025, time.March, 1)},
		},
		{
			name:  "none yields nothing",
			base:  date(2025, time.January, 1),
			r:     RecurNone,
			count: 5,
			want:  nil,
		},
		{
			name:  "zero count yields nothing",
			base:  date(2025, time.January, 1),
			r:     RecurMonthly,
			count: 0,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.base, tt.r, tt.count)
			if len(got) != len(tt.want) {
				t.Fatalf("Expand() returned %d dates, expected %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("Expand()[%d] = %s, expected %s", i, got[i].Format(DateFormat), tt.want[i].Format(DateFormat))
				}
			}
		})
	}
}

func TestExpandAlwaysStrictlyAfterBase(t *testing.T) {
	base := date(2025, time.January, 31)
	for _, r := range []Recurrence{
		RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly,
		RecurBimonthly, RecurQuarterly, RecurSemiannual, RecurAnnual,
	} {
		for i, d := range Expand(base, r, DefaultInstallments) {
			if !d.After(base) {
				t.Errorf("%s: date %d (%s) is not after base", r, i, d.Format(DateFormat))
			}
		}
	}
}

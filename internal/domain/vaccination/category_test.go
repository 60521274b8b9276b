package vaccination

import (
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		label string
		want  AgeCategory
	}{
		{"Birth", AgeCategory{Label: "Birth", Birth: true, Recognized: true}},
		{"6 weeks", AgeCategory{Label: "6 weeks", Unit: UnitWeeks, Lower: 6, Recognized: true}},
		{"1 week", AgeCategory{Label: "1 week", Unit: UnitWeeks, Lower: 1, Recognized: true}},
		{"6-10 weeks", AgeCategory{Label: "6-10 weeks", Unit: UnitWeeks, Lower: 6, Upper: 10, Recognized: true}},
		{"9 - 12 Months", AgeCategory{Label: "9 - 12 Months", Unit: UnitMonths, Lower: 9, Upper: 12, Recognized: true}},
		{"6 months", AgeCategory{Label: "6 months", Unit: UnitMonths, Lower: 6, Recognized: true}},
		{"4-6 years", AgeCategory{Label: "4-6 years", Unit: UnitYears, Lower: 4, Upper: 6, Recognized: true}},
		{"1 year", AgeCategory{Label: "1 year", Unit: UnitYears, Lower: 1, Recognized: true}},
		{"Booster", AgeCategory{Label: "Booster"}},
		{"At birth", AgeCategory{Label: "At birth"}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ParseCategory(tt.label); got != tt.want {
				t.Errorf("ParseCategory(%q) = %+v, want %+v", tt.label, got, tt.want)
			}
		})
	}
}

func TestIsCategoryDue_WeekBoundary(t *testing.T) {
	now := day(2024, time.June, 15)

	dob := now.AddDate(0, 0, -42)
	if !IsCategoryDue("6 weeks", dob, now) {
		t.Error("expected 6 weeks to be due exactly 6 weeks after birth")
	}

	dob = now.AddDate(0, 0, -41)
	if IsCategoryDue("6 weeks", dob, now) {
		t.Error("expected 6 weeks not to be due one day early")
	}
}

func TestIsCategoryDue(t *testing.T) {
	dob := day(2024, time.January, 1)
	tests := []struct {
		label string
		now   time.Time
		want  bool
	}{
		{"Birth", dob, true},
		{"Birth", dob.AddDate(-1, 0, 0), true},
		{"9-12 months", day(2024, time.September, 30), false},
		{"9-12 months", day(2024, time.October, 1), true},
		{"6 months", day(2024, time.July, 1), true},
		{"1-2 years", day(2024, time.December, 31), false},
		{"1-2 years", day(2025, time.January, 1), true},
		{"5 years", day(2028, time.December, 31), false},
		{"Booster", day(2030, time.January, 1), false},
	}
	for _, tt := range tests {
		if got := IsCategoryDue(tt.label, dob, tt.now); got != tt.want {
			t.Errorf("IsCategoryDue(%q, %s) = %v, want %v", tt.label, tt.now.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestAgeCategory_DueDateMatchesEligibility(t *testing.T) {
	dob := day(2023, time.August, 31)
	for _, label := range []string{"6 weeks", "10 weeks", "6 months", "9-12 months", "2 years"} {
		cat := ParseCategory(label)
		due, ok := cat.DueDate(dob)
		if !ok {
			t.Fatalf("%q: expected a due date", label)
		}
		if !cat.IsDue(dob, due) {
			t.Errorf("%q: expected due on %s", label, FormatDate(due))
		}
		if cat.IsDue(dob, due.AddDate(0, 0, -1)) {
			t.Errorf("%q: expected not due the day before %s", label, FormatDate(due))
		}
	}
}

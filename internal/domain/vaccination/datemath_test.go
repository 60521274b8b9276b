package vaccination

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateAge(t *testing.T) {
	now := day(2024, time.June, 15)
	tests := []struct {
		name string
		dob  time.Time
		want string
	}{
		{"born today", now, "0 days"},
		{"one day", day(2024, time.June, 14), "1 day"},
		{"twenty days", now.AddDate(0, 0, -20), "20 days"},
		{"exactly three weeks", now.AddDate(0, 0, -21), "3 weeks"},
		{"four weeks", now.AddDate(0, 0, -29), "4 weeks"},
		{"one month", day(2024, time.May, 15), "1 month"},
		{"months and days", day(2024, time.March, 10), "3 months 5 days"},
		{"one year two months", day(2023, time.April, 15), "1 year 2 months"},
		{"two years", day(2022, time.June, 15), "2 years"},
		{"year borrow", day(2023, time.July, 20), "10 months 26 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateAge(tt.dob, now); got != tt.want {
				t.Errorf("CalculateAge(%s) = %q, want %q", tt.dob.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestCalculateAge_IgnoresTimeOfDay(t *testing.T) {
	dob := time.Date(2024, time.June, 1, 23, 59, 0, 0, time.UTC)
	now := time.Date(2024, time.June, 22, 0, 1, 0, 0, time.UTC)
	if got := CalculateAge(dob, now); got != "3 weeks" {
		t.Errorf("expected 3 weeks, got %q", got)
	}
}

func TestCalculateDueDate(t *testing.T) {
	dob := "2024-01-01"
	tests := []struct {
		label string
		want  string
	}{
		{"Birth", "January 1, 2024"},
		{"birth", "January 1, 2024"},
		{"6 weeks", "February 12, 2024"},
		{"10 Weeks", "March 11, 2024"},
		{"9-12 months", "October 1, 2024"},
		{"6 months", "July 1, 2024"},
		{"16-24 Months", "May 1, 2025"},
		{"5 years", "January 1, 2029"},
		{"4-6 years", "January 1, 2028"},
		{"Booster", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := CalculateDueDate(tt.label, dob); got != tt.want {
				t.Errorf("CalculateDueDate(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestCalculateDueDate_EmptyDOB(t *testing.T) {
	if got := CalculateDueDate("6 weeks", ""); got != NoDate {
		t.Errorf("expected %q, got %q", NoDate, got)
	}
}

func TestCalculateDueDate_UnparseableDOB(t *testing.T) {
	if got := CalculateDueDate("6 weeks", "yesterday"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	want := day(2024, time.March, 5)
	for _, in := range []string{
		"2024-03-05",
		"2024-03-05T10:30:00Z",
		"2024-03-05T10:30:00.000Z",
		"March 5, 2024",
		" 2024-03-05 ",
	} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseDate("05/03/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestFormatDate_RoundTrip(t *testing.T) {
	for _, d := range []time.Time{
		day(2024, time.January, 1),
		day(2023, time.December, 31),
		day(2020, time.February, 29),
	} {
		formatted := FormatDate(d)
		parsed, err := ParseDate(formatted)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", formatted, err)
		}
		if FormatDate(parsed) != formatted {
			t.Errorf("round trip: %q became %q", formatted, FormatDate(parsed))
		}
	}
}

func TestFormatDateString(t *testing.T) {
	if got := FormatDateString("2024-02-12"); got != "February 12, 2024" {
		t.Errorf("got %q", got)
	}
	if got := FormatDateString("someday"); got != "someday" {
		t.Errorf("unparseable input should pass through, got %q", got)
	}
	if got := FormatDateString(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestFormatTime24To12(t *testing.T) {
	tests := map[string]string{
		"00:00":        "12:00 AM",
		"09:05":        "9:05 AM",
		"12:00":        "12:00 PM",
		"13:45":        "1:45 PM",
		"23:59:00.000": "11:59 PM",
		"":             "",
		"25:00":        "",
		"noon":         "",
	}
	for in, want := range tests {
		if got := FormatTime24To12(in); got != want {
			t.Errorf("FormatTime24To12(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatGeneratedDate(t *testing.T) {
	if got := FormatGeneratedDate(day(2024, time.March, 5)); got != "5.3.24" {
		t.Errorf("got %q, want 5.3.24", got)
	}
	if got := FormatGeneratedDate(day(2005, time.November, 21)); got != "21.11.05" {
		t.Errorf("got %q, want 21.11.05", got)
	}
}

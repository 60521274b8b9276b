package vaccination

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the long date form used across reports and the API.
const DisplayLayout = "January 2, 2006"

// NoDate is shown in place of a due date when the birth date is unknown.
const NoDate = "-"

var parseLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DisplayLayout,
}

// dateOnly truncates t to midnight UTC of its own calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts ISO dates, RFC3339 timestamps and the display layout.
// The result is the calendar day at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders t the way the report shows dates, e.g. "January 2, 2006".
func FormatDate(t time.Time) string {
	return t.Format(DisplayLayout)
}

// FormatDateString re-renders a stored date in the display layout, returning
// the input unchanged when it cannot be parsed.
func FormatDateString(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return FormatDate(t)
}

// FormatGeneratedDate renders the report stamp as D.M.YY.
func FormatGeneratedDate(now time.Time) string {
	return fmt.Sprintf("%d.%d.%02d", now.Day(), int(now.Month()), now.Year()%100)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// daysInMonthBefore is the length of the month preceding t's month.
func daysInMonthBefore(t time.Time) int {
	return time.Date(t.Year(), t.Month(), 0, 0, 0, 0, 0, time.UTC).Day()
}

// CalculateAge renders the child's age on now in the largest useful unit:
// years and months, months and days, whole weeks from 21 days, else days.
func CalculateAge(dob, now time.Time) string {
	dob, now = dateOnly(dob), dateOnly(now)

	years := now.Year() - dob.Year()
	months := int(now.Month()) - int(dob.Month())
	days := now.Day() - dob.Day()

	if days < 0 {
		months--
		days += daysInMonthBefore(now)
	}
	if months < 0 {
		years--
		months += 12
	}

	totalDays := int(now.Sub(dob).Hours() / 24)
	if totalDays < 0 {
		totalDays = -totalDays
	}

	switch {
	case years > 0:
		if months > 0 {
			return plural(years, "year") + " " + plural(months, "month")
		}
		return plural(years, "year")
	case months > 0:
		if days > 0 {
			return plural(months, "month") + " " + plural(days, "day")
		}
		return plural(months, "month")
	case totalDays >= 21:
		return plural(totalDays/7, "week")
	default:
		return plural(totalDays, "day")
	}
}

// CalculateDueDate returns the display-formatted due date of an age-group
// label, "" for labels with no recognizable age, or NoDate when dob is empty.
func CalculateDueDate(label, dob string) string {
	if strings.TrimSpace(dob) == "" {
		return NoDate
	}
	birth, err := ParseDate(dob)
	if err != nil {
		return ""
	}
	due, ok := ParseCategory(label).DueDate(birth)
	if !ok {
		return ""
	}
	return FormatDate(due)
}

// FormatTime24To12 converts "HH:MM" (seconds ignored) to "H:MM AM/PM".
// Empty or malformed input yields "".
func FormatTime24To12(s string) string {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return ""
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return ""
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return ""
	}
	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	h := hours % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minutes, period)
}

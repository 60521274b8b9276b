package vaccination

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit is the time unit of an age category label.
type Unit string

const (
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// AgeCategory is the structured form of a free-text age-group label such as
// "Birth", "6 weeks", "9-12 months" or "5 years". Ranges resolve to their
// lower bound.
type AgeCategory struct {
	Label      string `json:"label"`
	Birth      bool   `json:"birth"`
	Unit       Unit   `json:"unit,omitempty"`
	Lower      int    `json:"lower"`
	Upper      int    `json:"upper,omitempty"`
	Recognized bool   `json:"recognized"`
}

type categoryPattern struct {
	re     *regexp.Regexp
	unit   Unit
	ranged bool
}

// First match wins.
var categoryLadder = []categoryPattern{
	{regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*weeks?`), UnitWeeks, true},
	{regexp.MustCompile(`(?i)(\d+)\s*weeks?`), UnitWeeks, false},
	{regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*months?`), UnitMonths, true},
	{regexp.MustCompile(`(?i)(\d+)\s*months?`), UnitMonths, false},
	{regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*years?`), UnitYears, true},
	{regexp.MustCompile(`(?i)(\d+)\s*years?`), UnitYears, false},
}

// ParseCategory reads an age-group label such as "Birth", "6 weeks",
// "9-12 months" or "1 year". Ranges keep both bounds; schedule logic uses the
// lower one. Labels with no recognizable age come back with Recognized false.
func ParseCategory(label string) AgeCategory {
	cat := AgeCategory{Label: label}
	if strings.ToLower(label) == "birth" {
		cat.Birth = true
		cat.Recognized = true
		return cat
	}
	for _, p := range categoryLadder {
		m := p.re.FindStringSubmatch(label)
		if m == nil {
			continue
		}
		lower, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		cat.Unit = p.unit
		cat.Lower = lower
		if p.ranged {
			if upper, err := strconv.Atoi(m[2]); err == nil {
				cat.Upper = upper
			}
		}
		cat.Recognized = true
		return cat
	}
	return cat
}

// DueDate is the day the category becomes due for a child born on dob.
func (c AgeCategory) DueDate(dob time.Time) (time.Time, bool) {
	dob = dateOnly(dob)
	if c.Birth {
		return dob, true
	}
	if !c.Recognized {
		return time.Time{}, false
	}
	switch c.Unit {
	case UnitWeeks:
		return dob.AddDate(0, 0, 7*c.Lower), true
	case UnitMonths:
		return dob.AddDate(0, c.Lower, 0), true
	case UnitYears:
		return dob.AddDate(c.Lower, 0, 0), true
	}
	return time.Time{}, false
}

// IsDue reports whether the category's due date has been reached on now.
// Unrecognized labels are never due.
func (c AgeCategory) IsDue(dob, now time.Time) bool {
	if c.Birth {
		return true
	}
	due, ok := c.DueDate(dob)
	if !ok {
		return false
	}
	return !dateOnly(now).Before(due)
}

// IsCategoryDue parses label and reports whether it is due on now.
func IsCategoryDue(label string, dob, now time.Time) bool {
	return ParseCategory(label).IsDue(dob, now)
}

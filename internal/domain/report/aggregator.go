package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
)

var (
	ErrNothingSelected   = errors.New("no age group or status selected")
	ErrMissingCategories = errors.New("vaccinations payload has no categories")
)

var (
	NoticeNothingSelected = vaccination.Notice{
		Title:   "Please Check!",
		Message: "Kindly select both age group and category.",
	}
	NoticeNoData = vaccination.Notice{
		Title:   "No Data Found",
		Message: "There are no records for the selected age group and category.",
	}
)

const unknownLabel = "Unknown"

// Selection is the caller's choice of age groups and statuses. "All" in
// either list selects every option.
type Selection struct {
	AgeGroups []string             `json:"age_groups"`
	Statuses  []vaccination.Status `json:"statuses"`
}

func (s Selection) Empty() bool {
	return len(s.AgeGroups) == 0 || len(s.Statuses) == 0
}

// Expand replaces "All" with the concrete options.
func (s Selection) Expand(categoryNames []string) Selection {
	out := Selection{}
	for _, g := range s.AgeGroups {
		if g == vaccination.AllOption {
			out.AgeGroups = append([]string(nil), categoryNames...)
			break
		}
		out.AgeGroups = append(out.AgeGroups, g)
	}
	for _, st := range s.Statuses {
		if string(st) == vaccination.AllOption {
			out.Statuses = []vaccination.Status{
				vaccination.StatusVaccinated, vaccination.StatusNotVaccinated, vaccination.StatusSkipped,
			}
			break
		}
		if parsed, ok := vaccination.ParseStatus(string(st)); ok {
			st = parsed
		}
		out.Statuses = append(out.Statuses, st)
	}
	return out
}

func (s Selection) hasAgeGroup(name string) bool {
	for _, g := range s.AgeGroups {
		if g == name {
			return true
		}
	}
	return false
}

func (s Selection) hasStatus(st vaccination.Status) bool {
	for _, want := range s.Statuses {
		if want == st {
			return true
		}
	}
	return false
}

// LineItem is an entry flattened out of its category.
type LineItem struct {
	vaccination.Entry
	AgeGroup string `json:"Age_Group"`
	DueDate  string `json:"Due_Date,omitempty"`
}

// Buckets holds report lines split by status.
type Buckets struct {
	Vaccinated    []LineItem `json:"vaccinated"`
	NotVaccinated []LineItem `json:"not_vaccinated"`
	Skipped       []LineItem `json:"skipped"`
}

// EmptyBuckets returns buckets with non-nil, empty slices so they encode as [].
func EmptyBuckets() Buckets {
	return Buckets{
		Vaccinated:    []LineItem{},
		NotVaccinated: []LineItem{},
		Skipped:       []LineItem{},
	}
}

func (b Buckets) Total() int {
	return len(b.Vaccinated) + len(b.NotVaccinated) + len(b.Skipped)
}

func (b Buckets) Empty() bool {
	return b.Total() == 0
}

// SelectLines keeps the entries of selected categories that match region and
// a selected status, in payload order. The payload is not modified.
func SelectLines(sched *vaccination.Schedule, region string, sel Selection) ([]LineItem, error) {
	if sel.Empty() {
		return []LineItem{}, ErrNothingSelected
	}
	if !sched.HasCategories() {
		return []LineItem{}, ErrMissingCategories
	}

	lines := []LineItem{}
	for _, cat := range sched.Categories {
		if !sel.hasAgeGroup(cat.Name) {
			continue
		}
		for _, e := range cat.Vaccinations {
			if !e.InRegion(region) || !sel.hasStatus(e.Status) {
				continue
			}
			lines = append(lines, LineItem{Entry: e, AgeGroup: cat.Name})
		}
	}
	return lines, nil
}

// Partition splits lines by status keeping their order. Lines with any other
// status are dropped.
func Partition(lines []LineItem) Buckets {
	b := EmptyBuckets()
	for _, l := range lines {
		switch l.Status {
		case vaccination.StatusVaccinated:
			b.Vaccinated = append(b.Vaccinated, l)
		case vaccination.StatusNotVaccinated:
			b.NotVaccinated = append(b.NotVaccinated, l)
		case vaccination.StatusSkipped:
			b.Skipped = append(b.Skipped, l)
		}
	}
	return b
}

// BuildReport filters the schedule and partitions the result. On a
// selection or payload error the buckets are empty and the error says why.
func BuildReport(sched *vaccination.Schedule, region string, sel Selection) (Buckets, error) {
	lines, err := SelectLines(sched, region, sel)
	if err != nil {
		return EmptyBuckets(), err
	}
	return Partition(lines), nil
}

// StatusFetcher returns current details for several entries in one call.
type StatusFetcher interface {
	GetVaccinationStatuses(ctx context.Context, babyID string, entryIDs []string) (map[string]*vaccination.Entry, error)
}

// Enrich replaces each line with the entry's current detail, keeping the
// line's age group and vaccine name. Lines without a detail are kept as they
// are.
func Enrich(ctx context.Context, fetcher StatusFetcher, babyID string, lines []LineItem) ([]LineItem, error) {
	if len(lines) == 0 {
		return []LineItem{}, nil
	}
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID.String()
	}
	details, err := fetcher.GetVaccinationStatuses(ctx, babyID, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch vaccination statuses: %w", err)
	}

	out := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		d, ok := details[l.ID.String()]
		if !ok || d == nil {
			out = append(out, l)
			continue
		}
		merged := LineItem{Entry: *d, AgeGroup: l.AgeGroup, DueDate: l.DueDate}
		if merged.ID == "" {
			merged.ID = l.ID
		}
		merged.VaccineName = l.VaccineName
		if merged.AgeGroup == "" {
			merged.AgeGroup = unknownLabel
		}
		if merged.VaccineName == "" {
			merged.VaccineName = unknownLabel
		}
		out = append(out, merged)
	}
	return out, nil
}

// WithDueDates returns a copy of lines with DueDate computed from each age
// group and the baby's date of birth.
func WithDueDates(lines []LineItem, dob string) []LineItem {
	out := make([]LineItem, len(lines))
	for i, l := range lines {
		l.DueDate = vaccination.CalculateDueDate(l.AgeGroup, dob)
		out[i] = l
	}
	return out
}

func categoryNames(cats []vaccination.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

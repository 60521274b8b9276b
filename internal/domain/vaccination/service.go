package vaccination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream request failed")
)

// AllOption selects every age group or status in list and report filters.
const AllOption = "All"

// DefaultCategory is the age group shown when none is requested.
const DefaultCategory = "Birth"

// Upstream is the babies REST API. Implementations forward the caller's
// bearer token carried in ctx.
type Upstream interface {
	GetBaby(ctx context.Context, babyID string) (*Baby, error)
	GetVaccinations(ctx context.Context, babyID string) (*Schedule, error)
	GetVaccinationStatus(ctx context.Context, babyID, entryID string) (*Entry, error)
	GetVaccinationStatuses(ctx context.Context, babyID string, entryIDs []string) (map[string]*Entry, error)
	UpdateVaccinationStatus(ctx context.Context, babyID string, update *StatusUpdate) (*Entry, error)
}

// Service provides schedule lookups and status updates for a baby.
type Service struct {
	upstream Upstream
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new vaccination service.
func NewService(upstream Upstream, logger zerolog.Logger) *Service {
	return &Service{
		upstream: upstream,
		logger:   logger.With().Str("component", "vaccination").Logger(),
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ScheduleView is the response of GET /babies/:babyId/schedule.
type ScheduleView struct {
	Baby            *Baby      `json:"baby"`
	Region          string     `json:"region"`
	Age             string     `json:"age"`
	Categories      []Category `json:"categories"`
	AgeGroups       []string   `json:"age_groups"`
	DefaultCategory string     `json:"default_category"`
	Notice          *Notice    `json:"notice,omitempty"`
}

// RegionCategories keeps categories that have at least one entry in region,
// trimmed to those entries. When nothing matches every category is returned.
func RegionCategories(sched *Schedule, region string) []Category {
	if !sched.HasCategories() {
		return []Category{}
	}
	out := make([]Category, 0, len(sched.Categories))
	for _, cat := range sched.Categories {
		var matching []Entry
		for _, e := range cat.Vaccinations {
			if e.InRegion(region) {
				matching = append(matching, e)
			}
		}
		if len(matching) > 0 {
			out = append(out, Category{Name: cat.Name, Vaccinations: matching})
		}
	}
	if len(out) == 0 {
		return sched.Categories
	}
	return out
}

func (s *Service) Schedule(ctx context.Context, babyID string) (*ScheduleView, error) {
	baby, err := s.upstream.GetBaby(ctx, babyID)
	if err != nil {
		return nil, fmt.Errorf("get baby: %w", err)
	}
	sched, err := s.upstream.GetVaccinations(ctx, babyID)
	if err != nil {
		return nil, fmt.Errorf("get vaccinations: %w", err)
	}

	region := baby.NormalizedRegion()
	if !sched.HasCategories() {
		s.logger.Warn().Str("baby_id", babyID).Msg("vaccinations payload has no categories")
	}
	cats := RegionCategories(sched, region)

	view := &ScheduleView{
		Baby:            baby,
		Region:          region,
		Age:             s.age(baby),
		Categories:      cats,
		AgeGroups:       []string{AllOption},
		DefaultCategory: DefaultCategory,
	}
	for _, c := range cats {
		view.AgeGroups = append(view.AgeGroups, c.Name)
	}
	if len(cats) == 0 {
		n := NoticeNoScheduleData
		view.Notice = &n
	}
	return view, nil
}

type VaccineList struct {
	Category string  `json:"category"`
	Status   string  `json:"status"`
	Entries  []Entry `json:"entries"`
	Notice   *Notice `json:"notice,omitempty"`
}

// ListVaccines returns the entries of one age group, optionally filtered by
// status. An empty category selects DefaultCategory; "All" disables either
// filter.
func (s *Service) ListVaccines(ctx context.Context, babyID, category, status string) (*VaccineList, error) {
	if category == "" {
		category = DefaultCategory
	}
	if status == "" {
		status = AllOption
	}
	if status != AllOption {
		if _, ok := ParseStatus(status); !ok {
			return nil, &ValidationError{Fields: map[string]string{"status": "unknown status: " + status}}
		}
	}

	view, err := s.Schedule(ctx, babyID)
	if err != nil {
		return nil, err
	}

	list := &VaccineList{Category: category, Status: status, Entries: []Entry{}}
	for _, cat := range view.Categories {
		if category != AllOption && cat.Name != category {
			continue
		}
		for _, e := range cat.Vaccinations {
			if status != AllOption && !strings.EqualFold(string(e.Status), status) {
				continue
			}
			list.Entries = append(list.Entries, e)
		}
	}

	if len(list.Entries) == 0 {
		n := NoticeNoRecords
		if status != AllOption {
			n = noRecordsForStatus(status)
		}
		list.Notice = &n
	}
	return list, nil
}

// Status returns the current detail of one entry with form defaults applied.
func (s *Service) Status(ctx context.Context, babyID, entryID string) (*Entry, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"entryId": "entry id is required"}}
	}
	e, err := s.upstream.GetVaccinationStatus(ctx, babyID, entryID)
	if err != nil {
		return nil, fmt.Errorf("get vaccination status: %w", err)
	}
	if e.Reaction == "" {
		e.Reaction = reactionYes
	}
	return e, nil
}

// UpdateStatus validates the update before anything is sent upstream.
func (s *Service) UpdateStatus(ctx context.Context, babyID string, update *StatusUpdate) (*Entry, error) {
	update.Normalize()
	if err := update.Validate(s.now()); err != nil {
		return nil, err
	}
	e, err := s.upstream.UpdateVaccinationStatus(ctx, babyID, update)
	if err != nil {
		return nil, fmt.Errorf("update vaccination status: %w", err)
	}
	s.logger.Info().
		Str("baby_id", babyID).
		Str("entry_id", update.EntryID.String()).
		Str("status", string(update.Status)).
		Msg("vaccination status updated")
	return e, nil
}

type AgeView struct {
	BabyID      string `json:"baby_id"`
	DOB         string `json:"dob"`
	BirthTime   string `json:"birth_time,omitempty"`
	Age         string `json:"age"`
	GeneratedOn string `json:"generated_on"`
}

// Age returns the baby's age as shown in the report header.
func (s *Service) Age(ctx context.Context, babyID string) (*AgeView, error) {
	baby, err := s.upstream.GetBaby(ctx, babyID)
	if err != nil {
		return nil, fmt.Errorf("get baby: %w", err)
	}
	return &AgeView{
		BabyID:      babyID,
		DOB:         FormatDateString(baby.DOB),
		BirthTime:   FormatTime24To12(baby.BirthTime),
		Age:         s.age(baby),
		GeneratedOn: FormatGeneratedDate(s.now()),
	}, nil
}

type EligibilityView struct {
	Category AgeCategory `json:"category"`
	DueDate  string      `json:"due_date"`
	Due      bool        `json:"due"`
	Age      string      `json:"age"`
}

// Eligibility reports when an age group falls due for the baby and whether
// that date has been reached.
func (s *Service) Eligibility(ctx context.Context, babyID, label string) (*EligibilityView, error) {
	if strings.TrimSpace(label) == "" {
		return nil, &ValidationError{Fields: map[string]string{"category": "category is required"}}
	}
	baby, err := s.upstream.GetBaby(ctx, babyID)
	if err != nil {
		return nil, fmt.Errorf("get baby: %w", err)
	}

	cat := ParseCategory(label)
	view := &EligibilityView{
		Category: cat,
		DueDate:  CalculateDueDate(label, baby.DOB),
		Age:      s.age(baby),
	}
	if dob, ok := baby.BirthDate(); ok {
		view.Due = cat.IsDue(dob, s.now())
	}
	return view, nil
}

func (s *Service) age(baby *Baby) string {
	dob, ok := baby.BirthDate()
	if !ok {
		return ""
	}
	return CalculateAge(dob, s.now())
}

package vaccination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// -- Mock Upstream --

type mockUpstream struct {
	babies    map[string]*Baby
	schedules map[string]*Schedule
	statuses  map[string]*Entry
	updates   []*StatusUpdate
	err       error
}

func newMockUpstream() *mockUpstream {
	return &mockUpstream{
		babies:    make(map[string]*Baby),
		schedules: make(map[string]*Schedule),
		statuses:  make(map[string]*Entry),
	}
}

func (m *mockUpstream) GetBaby(_ context.Context, babyID string) (*Baby, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.babies[babyID]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockUpstream) GetVaccinations(_ context.Context, babyID string) (*Schedule, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.schedules[babyID]
	if !ok {
		return &Schedule{}, nil
	}
	return s, nil
}

func (m *mockUpstream) GetVaccinationStatus(_ context.Context, _ string, entryID string) (*Entry, error) {
	e, ok := m.statuses[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockUpstream) GetVaccinationStatuses(ctx context.Context, babyID string, ids []string) (map[string]*Entry, error) {
	out := make(map[string]*Entry, len(ids))
	for _, id := range ids {
		if e, err := m.GetVaccinationStatus(ctx, babyID, id); err == nil {
			out[id] = e
		}
	}
	return out, nil
}

func (m *mockUpstream) UpdateVaccinationStatus(_ context.Context, _ string, u *StatusUpdate) (*Entry, error) {
	m.updates = append(m.updates, u)
	return &Entry{ID: u.EntryID, Status: u.Status, Reaction: u.Reaction, Response: u.Response}, nil
}

var testNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

func newTestService(up *mockUpstream) *Service {
	svc := NewService(up, zerolog.Nop())
	svc.SetClock(func() time.Time { return testNow })
	return svc
}

func seedBaby(up *mockUpstream) {
	up.babies["b1"] = &Baby{ID: "b1", Name: "Asha", DOB: "2024-01-01", BirthTime: "14:20", Gender: "Female", Region: "India"}
	up.schedules["b1"] = &Schedule{Categories: []Category{
		{Name: "Birth", Vaccinations: []Entry{
			{ID: "1", VaccineName: "BCG", Region: "India", Status: StatusVaccinated},
			{ID: "2", VaccineName: "Hep B", Region: "USA", Status: StatusVaccinated},
		}},
		{Name: "6 weeks", Vaccinations: []Entry{
			{ID: "3", VaccineName: "OPV 1", Region: "india", Status: StatusNotVaccinated},
			{ID: "4", VaccineName: "DTaP 1", Region: "India", Status: StatusSkipped},
		}},
		{Name: "2 months", Vaccinations: []Entry{
			{ID: "5", VaccineName: "RV 1", Region: "USA"},
		}},
	}}
}

func TestService_Schedule(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	svc := newTestService(up)

	view, err := svc.Schedule(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if view.Region != "india" {
		t.Errorf("expected region india, got %q", view.Region)
	}
	if len(view.Categories) != 2 {
		t.Fatalf("expected 2 regional categories, got %d", len(view.Categories))
	}
	if len(view.Categories[0].Vaccinations) != 1 {
		t.Errorf("expected Birth trimmed to 1 entry, got %d", len(view.Categories[0].Vaccinations))
	}
	want := []string{"All", "Birth", "6 weeks"}
	if len(view.AgeGroups) != len(want) {
		t.Fatalf("expected age groups %v, got %v", want, view.AgeGroups)
	}
	for i := range want {
		if view.AgeGroups[i] != want[i] {
			t.Errorf("age group %d: expected %q, got %q", i, want[i], view.AgeGroups[i])
		}
	}
	if view.Age != "5 months 14 days" {
		t.Errorf("unexpected age %q", view.Age)
	}
	if view.Notice != nil {
		t.Errorf("unexpected notice %+v", view.Notice)
	}
}

func TestService_Schedule_FallsBackToAllCategories(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	up.babies["b1"].Region = "Kenya"
	svc := newTestService(up)

	view, err := svc.Schedule(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(view.Categories) != 3 {
		t.Errorf("expected all 3 categories, got %d", len(view.Categories))
	}
}

func TestService_Schedule_NoData(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	delete(up.schedules, "b1")
	svc := newTestService(up)

	view, err := svc.Schedule(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if view.Notice == nil || view.Notice.Title != "No Vaccination Data" {
		t.Errorf("expected No Vaccination Data notice, got %+v", view.Notice)
	}
}

func TestService_Schedule_UpstreamError(t *testing.T) {
	up := newMockUpstream()
	up.err = ErrUnauthorized
	svc := newTestService(up)

	_, err := svc.Schedule(context.Background(), "b1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestService_ListVaccines(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	svc := newTestService(up)
	ctx := context.Background()

	list, err := svc.ListVaccines(ctx, "b1", "6 weeks", "skipped")
	if err != nil {
		t.Fatalf("ListVaccines: %v", err)
	}
	if len(list.Entries) != 1 || list.Entries[0].ID != "4" {
		t.Errorf("expected only entry 4, got %+v", list.Entries)
	}

	list, err = svc.ListVaccines(ctx, "b1", "", "")
	if err != nil {
		t.Fatalf("ListVaccines: %v", err)
	}
	if list.Category != "Birth" || len(list.Entries) != 1 {
		t.Errorf("expected default Birth category with 1 entry, got %q %d", list.Category, len(list.Entries))
	}

	list, err = svc.ListVaccines(ctx, "b1", "Birth", "Skipped")
	if err != nil {
		t.Fatalf("ListVaccines: %v", err)
	}
	if list.Notice == nil || list.Notice.Message != "No vaccines found for status: Skipped" {
		t.Errorf("unexpected notice %+v", list.Notice)
	}
}

func TestService_ListVaccines_UnknownStatus(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	svc := newTestService(up)

	_, err := svc.ListVaccines(context.Background(), "b1", "Birth", "Pending")
	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_Status_DefaultsReaction(t *testing.T) {
	up := newMockUpstream()
	up.statuses["3"] = &Entry{ID: "3", VaccineName: "OPV 1", Status: StatusNotVaccinated}
	svc := newTestService(up)

	e, err := svc.Status(context.Background(), "b1", "3")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if e.Reaction != "Yes" {
		t.Errorf("expected default reaction Yes, got %q", e.Reaction)
	}
}

func TestService_UpdateStatus_ValidatesBeforeNetwork(t *testing.T) {
	up := newMockUpstream()
	svc := newTestService(up)

	_, err := svc.UpdateStatus(context.Background(), "b1", &StatusUpdate{
		EntryID: "3", Status: StatusVaccinated, Reaction: "Yes", Response: "",
	})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(up.updates) != 0 {
		t.Errorf("expected no upstream call, got %d", len(up.updates))
	}
}

func TestService_UpdateStatus(t *testing.T) {
	up := newMockUpstream()
	svc := newTestService(up)

	e, err := svc.UpdateStatus(context.Background(), "b1", &StatusUpdate{
		EntryID: "3", Status: StatusVaccinated, Response: "Slight swelling", Height: "60", Weight: "6",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if e.Status != StatusVaccinated {
		t.Errorf("expected Vaccinated, got %q", e.Status)
	}
	if len(up.updates) != 1 || up.updates[0].Reaction != "Yes" {
		t.Errorf("expected one update with default reaction, got %+v", up.updates)
	}
}

func TestService_Age(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	svc := newTestService(up)

	view, err := svc.Age(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Age: %v", err)
	}
	if view.DOB != "January 1, 2024" {
		t.Errorf("unexpected dob %q", view.DOB)
	}
	if view.BirthTime != "2:20 PM" {
		t.Errorf("unexpected birth time %q", view.BirthTime)
	}
	if view.GeneratedOn != "15.6.24" {
		t.Errorf("unexpected generated date %q", view.GeneratedOn)
	}
}

func TestService_Eligibility(t *testing.T) {
	up := newMockUpstream()
	seedBaby(up)
	svc := newTestService(up)
	ctx := context.Background()

	view, err := svc.Eligibility(ctx, "b1", "6 weeks")
	if err != nil {
		t.Fatalf("Eligibility: %v", err)
	}
	if !view.Due || view.DueDate != "February 12, 2024" {
		t.Errorf("unexpected eligibility %+v", view)
	}

	view, err = svc.Eligibility(ctx, "b1", "9-12 months")
	if err != nil {
		t.Fatalf("Eligibility: %v", err)
	}
	if view.Due || view.DueDate != "October 1, 2024" {
		t.Errorf("unexpected eligibility %+v", view)
	}

	if _, err := svc.Eligibility(ctx, "b1", " "); !IsValidationError(err) {
		t.Errorf("expected validation error for blank category, got %v", err)
	}
}

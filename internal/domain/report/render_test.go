package report

import (
	"strings"
	"testing"

	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
)

func testReport() *Report {
	return &Report{
		BabyID: "b1",
		Baby: &vaccination.Baby{
			ID: "b1", Name: "Asha <Rao>", DOB: "2024-01-01", BirthTime: "14:20",
			Gender: "Female", Region: "india",
		},
		Age:         "5 months 14 days",
		GeneratedOn: "15.6.24",
		Buckets: Buckets{
			Vaccinated: []LineItem{{
				Entry: vaccination.Entry{
					ID: "1", VaccineName: "BCG", Date: "2024-01-02",
					Height: vaccination.NewQuantity(50.5), Weight: vaccination.NewQuantity(3.2),
				},
				AgeGroup: "Birth",
			}},
			NotVaccinated: []LineItem{{
				Entry:    vaccination.Entry{ID: "3", VaccineName: "OPV 1"},
				AgeGroup: "6 weeks",
				DueDate:  "February 12, 2024",
			}},
			Skipped: []LineItem{},
		},
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(testReport(), "", DefaultWebsite)

	if doc.Brand != DefaultBrand {
		t.Errorf("expected default brand, got %q", doc.Brand)
	}
	if doc.DOB != "January 1, 2024" {
		t.Errorf("DOB = %q", doc.DOB)
	}
	if doc.BirthTime != "2:20 PM" {
		t.Errorf("BirthTime = %q", doc.BirthTime)
	}
	if doc.RegionLabel != "India" {
		t.Errorf("RegionLabel = %q", doc.RegionLabel)
	}
	if len(doc.Vaccinated) != 1 {
		t.Fatalf("expected one vaccinated row, got %d", len(doc.Vaccinated))
	}
	row := doc.Vaccinated[0]
	if row.DateGiven != "January 2, 2024" || row.Reactions != "-" {
		t.Errorf("unexpected row %+v", row)
	}
	if row.Height != "50.5 cm" || row.Weight != "3.2 Kg" {
		t.Errorf("unexpected measurements %q %q", row.Height, row.Weight)
	}
	if len(doc.NotVaccinated) != 1 || doc.NotVaccinated[0].DueDate != "February 12, 2024" {
		t.Errorf("unexpected not vaccinated rows %+v", doc.NotVaccinated)
	}
	if doc.Skipped != nil {
		t.Errorf("expected no skipped rows, got %+v", doc.Skipped)
	}
}

func TestNewDocument_MissingMeasurements(t *testing.T) {
	rep := testReport()
	rep.Buckets.Vaccinated[0].Height = vaccination.Quantity{}
	rep.Buckets.Vaccinated[0].Response = "Mild fever"
	doc := NewDocument(rep, "Brand", "")

	row := doc.Vaccinated[0]
	if row.Height != "-" || row.Weight != "3.2 Kg" {
		t.Errorf("unexpected measurements %q %q", row.Height, row.Weight)
	}
	if row.Reactions != "Mild fever" {
		t.Errorf("Reactions = %q", row.Reactions)
	}
}

func TestRegionLabel(t *testing.T) {
	tests := map[string]string{
		"india":      "India",
		" USA ":      "Usa",
		"österreich": "Österreich",
		"ÉIRE":       "Éire",
		"":           "All Regions",
		"uk":         "Uk",
		"canada":     "Canada",
	}
	for in, want := range tests {
		if got := RegionLabel(in); got != want {
			t.Errorf("RegionLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	html, err := r.Render(NewDocument(testReport(), "AroCord", DefaultWebsite))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"Asha &lt;Rao&gt;",
		"January 1, 2024",
		"2:20 PM",
		"Vaccination Report (Only Recommended In India)",
		"Completed Vaccination",
		"Not Vaccinated",
		"Generated on: 15.6.24",
		"50.5 cm",
		"February 12, 2024",
		"data:image/svg+xml;base64,",
		"www.arocord.com",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected markup to contain %q", want)
		}
	}
	if strings.Contains(html, "<script") {
		t.Error("report markup must not contain scripts")
	}
	if strings.Contains(html, ">Skipped<") {
		t.Error("expected empty skipped section to be omitted")
	}
	if n := strings.Count(html, "Generated on:"); n != 1 {
		t.Errorf("expected one generated stamp, got %d", n)
	}
}

func TestRenderer_OnlySkipped(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	rep := testReport()
	rep.Buckets = Buckets{Skipped: []LineItem{{Entry: vaccination.Entry{VaccineName: "DTaP 1"}, AgeGroup: "6 weeks"}}}
	html, err := r.Render(NewDocument(rep, "", ""))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(html, "Completed Vaccination") || !strings.Contains(html, "DTaP 1") {
		t.Error("expected only the skipped section")
	}
	if !strings.Contains(html, "Generated on: 15.6.24") {
		t.Error("expected the generated stamp on the first rendered section")
	}
	if !strings.Contains(html, "<td>-</td>") {
		t.Error("expected dash for a missing due date")
	}
}

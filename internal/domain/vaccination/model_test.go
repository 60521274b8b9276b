package vaccination

import (
	"encoding/json"
	"testing"
)

func TestEntry_DecodeUpstreamShapes(t *testing.T) {
	raw := `{
		"Vaccination_List_ID": 17,
		"Vaccine_Name": "BCG",
		"Region": "India",
		"Status": "Vaccinated",
		"Height": "51.5",
		"Weight": 3.2
	}`
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.ID != "17" {
		t.Errorf("expected id 17, got %q", e.ID)
	}
	if h, ok := e.Height.Float(); !ok || h != 51.5 {
		t.Errorf("expected height 51.5, got %v (%v)", h, ok)
	}
	if w, ok := e.Weight.Float(); !ok || w != 3.2 {
		t.Errorf("expected weight 3.2, got %v (%v)", w, ok)
	}
	if !e.InRegion("india") {
		t.Error("expected case-insensitive region match")
	}
}

func TestQuantity_EmptyAndNull(t *testing.T) {
	var e Entry
	if err := json.Unmarshal([]byte(`{"Height":"","Weight":null}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := e.Height.Float(); ok {
		t.Error("expected empty height to be unset")
	}
	if e.Weight.String() != "" {
		t.Errorf("expected empty weight string, got %q", e.Weight.String())
	}
	b, err := json.Marshal(e.Height)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("expected null, got %s", b)
	}
}

func TestQuantity_Invalid(t *testing.T) {
	var q Quantity
	if err := json.Unmarshal([]byte(`"tall"`), &q); err == nil {
		t.Error("expected error for non-numeric quantity")
	}
}

func TestSchedule_HasCategories(t *testing.T) {
	var missing Schedule
	if err := json.Unmarshal([]byte(`{}`), &missing); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if missing.HasCategories() {
		t.Error("expected missing categories key to report false")
	}

	var empty Schedule
	if err := json.Unmarshal([]byte(`{"categories":[]}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !empty.HasCategories() {
		t.Error("expected empty categories array to report true")
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("not vaccinated")
	if !ok || st != StatusNotVaccinated {
		t.Errorf("got %q, %v", st, ok)
	}
	if _, ok := ParseStatus("Pending"); ok {
		t.Error("expected unknown status to fail")
	}
}

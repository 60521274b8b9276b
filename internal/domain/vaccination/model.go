package vaccination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the vaccination state of a schedule entry.
type Status string

const (
	StatusVaccinated    Status = "Vaccinated"
	StatusNotVaccinated Status = "Not Vaccinated"
	StatusSkipped       Status = "Skipped"
)

var validStatuses = map[Status]bool{
	StatusVaccinated: true, StatusNotVaccinated: true, StatusSkipped: true,
}

// Valid reports whether s is one of the three recorded statuses.
func (s Status) Valid() bool {
	return validStatuses[s]
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	for st := range validStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(raw)) {
			return st, true
		}
	}
	return "", false
}

// ID is an upstream identifier. The API emits both numeric and string ids.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Quantity is an optional decimal measurement (height in cm, weight in kg).
// It decodes from JSON numbers, numeric strings, empty strings and null.
type Quantity struct {
	value float64
	set   bool
}

// NewQuantity creates a Quantity from a number.
func NewQuantity(v float64) Quantity {
	return Quantity{value: v, set: true}
}

func (q Quantity) Float() (float64, bool) {
	return q.value, q.set
}

func (q Quantity) String() string {
	if !q.set {
		return ""
	}
	return strconv.FormatFloat(q.value, 'f', -1, 64)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.set {
		return []byte("null"), nil
	}
	return []byte(q.String()), nil
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = Quantity{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*q = Quantity{}
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("quantity %q: %w", raw, err)
	}
	*q = NewQuantity(v)
	return nil
}

// Baby represents the child profile returned by the babies API.
type Baby struct {
	ID        ID     `json:"Baby_ID"`
	Name      string `json:"Baby_Name"`
	DOB       string `json:"DOB"`
	BirthTime string `json:"Birth_Time,omitempty"`
	Gender    string `json:"Gender"`
	Region    string `json:"Region"`
}

// NormalizedRegion is the lower-cased region used for schedule matching.
func (b *Baby) NormalizedRegion() string {
	return strings.ToLower(strings.TrimSpace(b.Region))
}

// BirthDate parses DOB. ok is false when DOB is empty or unparseable.
func (b *Baby) BirthDate() (time.Time, bool) {
	if strings.TrimSpace(b.DOB) == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(b.DOB)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Entry represents one vaccine in a baby's schedule together with its
// recorded status.
type Entry struct {
	ID          ID       `json:"Vaccination_List_ID"`
	VaccineName string   `json:"Vaccine_Name"`
	Region      string   `json:"Region"`
	Status      Status   `json:"Status,omitempty"`
	Date        string   `json:"Date,omitempty"`
	Time        string   `json:"Time,omitempty"`
	Reaction    string   `json:"Vaccine_Reaction,omitempty"`
	Response    string   `json:"Post_Vaccination_Response,omitempty"`
	Height      Quantity `json:"Height"`
	Weight      Quantity `json:"Weight"`
	UpdatedOn   string   `json:"Updated_On,omitempty"`
}

// InRegion reports whether the entry applies to region (case-insensitive).
func (e *Entry) InRegion(region string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Region), strings.TrimSpace(region))
}

// Category represents an age group and its vaccines, in schedule order.
type Category struct {
	Name         string  `json:"Vaccination_Category_Name"`
	Vaccinations []Entry `json:"vaccinations"`
}

// Schedule is the payload of GET /babies/{id}/vaccinations.
type Schedule struct {
	Categories []Category `json:"categories"`
}

// HasCategories is false when the payload carried no categories key at all.
func (s *Schedule) HasCategories() bool {
	return s != nil && s.Categories != nil
}

// StatusUpdate is the body sent to POST /babies/{id}/vaccination-status.
type StatusUpdate struct {
	EntryID  ID     `json:"Vaccination_List_ID"`
	Status   Status `json:"Status"`
	Reaction string `json:"Vaccine_Reaction,omitempty"`
	Response string `json:"Post_Vaccination_Response,omitempty"`
	Date     string `json:"Date,omitempty"`
	Time     string `json:"Time,omitempty"`
	Height   string `json:"Height,omitempty"`
	Weight   string `json:"Weight,omitempty"`
}

// Notice is a user-facing empty-state or conflict message.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var (
	NoticeNoScheduleData = Notice{
		Title:   "No Vaccination Data",
		Message: "No vaccination data available for this baby or region.",
	}
	NoticeNoRecords = Notice{
		Title:   "No Records",
		Message: "There are no records to show you right now.",
	}
)

func noRecordsForStatus(status string) Notice {
	return Notice{Title: "No Records", Message: "No vaccines found for status: " + status}
}

package report

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
)

//go:embed templates/report.html.tmpl assets/*.svg
var content embed.FS

const (
	DefaultBrand   = "AroCord"
	DefaultWebsite = "www.arocord.com"
	emptyCell      = "-"
)

// Row is one table line of the rendered report.
type Row struct {
	AgeGroup    string
	VaccineName string
	DateGiven   string
	Reactions   string
	Height      string
	Weight      string
	DueDate     string
}

// Document is everything the report template needs. Build it with
// NewDocument.
type Document struct {
	Brand       string
	Website     string
	BabyName    string
	DOB         string
	BirthTime   string
	Gender      string
	Age         string
	GeneratedOn string
	RegionLabel string

	Vaccinated    []Row
	NotVaccinated []Row
	Skipped       []Row
}

// NewDocument formats a report for display.
func NewDocument(r *Report, brand, website string) Document {
	if brand == "" {
		brand = DefaultBrand
	}
	doc := Document{
		Brand:       brand,
		Website:     website,
		BabyName:    r.Baby.Name,
		DOB:         vaccination.FormatDateString(r.Baby.DOB),
		BirthTime:   vaccination.FormatTime24To12(r.Baby.BirthTime),
		Gender:      r.Baby.Gender,
		Age:         r.Age,
		GeneratedOn: r.GeneratedOn,
		RegionLabel: RegionLabel(r.Baby.Region),
	}
	for _, l := range r.Buckets.Vaccinated {
		doc.Vaccinated = append(doc.Vaccinated, Row{
			AgeGroup:    l.AgeGroup,
			VaccineName: l.VaccineName,
			DateGiven:   orDash(vaccination.FormatDateString(l.Date)),
			Reactions:   orDash(l.Response),
			Height:      withUnit(l.Height, "cm"),
			Weight:      withUnit(l.Weight, "Kg"),
		})
	}
	doc.NotVaccinated = dueRows(r.Buckets.NotVaccinated)
	doc.Skipped = dueRows(r.Buckets.Skipped)
	return doc
}

func dueRows(lines []LineItem) []Row {
	var rows []Row
	for _, l := range lines {
		rows = append(rows, Row{
			AgeGroup:    l.AgeGroup,
			VaccineName: l.VaccineName,
			DueDate:     orDash(l.DueDate),
		})
	}
	return rows
}

// RegionLabel is the region as shown in the report heading: "India" for
// "india", and "All Regions" when unset.
func RegionLabel(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return "All Regions"
	}
	first, size := utf8.DecodeRuneInString(region)
	return string(unicode.ToUpper(first)) + strings.ToLower(region[size:])
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyCell
	}
	return s
}

func withUnit(q vaccination.Quantity, unit string) string {
	if _, ok := q.Float(); !ok {
		return emptyCell
	}
	return q.String() + " " + unit
}

// Renderer produces self-contained report HTML. Icons are inlined as data
// URIs so the markup renders without network access.
type Renderer struct {
	tmpl  *template.Template
	icons map[string]template.URL
}

// NewRenderer parses the embedded report template and loads its icons.
func NewRenderer() (*Renderer, error) {
	icons, err := loadIcons()
	if err != nil {
		return nil, err
	}
	r := &Renderer{icons: icons}
	tmpl, err := template.New("report.html.tmpl").
		Funcs(template.FuncMap{"icon": r.icon}).
		ParseFS(content, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

func loadIcons() (map[string]template.URL, error) {
	files, err := content.ReadDir("assets")
	if err != nil {
		return nil, fmt.Errorf("read report assets: %w", err)
	}
	icons := make(map[string]template.URL, len(files))
	for _, f := range files {
		data, err := content.ReadFile(path.Join("assets", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("read asset %s: %w", f.Name(), err)
		}
		name := strings.TrimSuffix(f.Name(), path.Ext(f.Name()))
		icons[name] = template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data))
	}
	return icons, nil
}

func (r *Renderer) icon(name string) (template.URL, error) {
	u, ok := r.icons[name]
	if !ok {
		return "", fmt.Errorf("unknown icon %q", name)
	}
	return u, nil
}

// Render executes the report template.
func (r *Renderer) Render(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

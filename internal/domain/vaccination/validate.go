package vaccination

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	maxResponseLength = 50
	maxHeightCM       = 180
	maxWeightKG       = 70
	reactionYes       = "Yes"
	reactionNo        = "No"
)

var (
	responseStartRe = regexp.MustCompile(`^[a-zA-Z0-9]`)
	heightRe        = regexp.MustCompile(`^\d{0,4}(\.\d{0,2})?$`)
	weightRe        = regexp.MustCompile(`^\d{0,3}(\.\d{0,2})?$`)
	timeRe          = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d(\.\d+)?)?$`)
)

// ValidationError maps request fields to user-facing messages.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// IsValidationError reports whether err carries field messages.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Normalize fills defaults and clears the fields that only apply to a
// completed vaccination.
func (u *StatusUpdate) Normalize() {
	if st, ok := ParseStatus(string(u.Status)); ok {
		u.Status = st
	}
	u.Response = strings.TrimSpace(u.Response)
	u.Height = strings.TrimSpace(u.Height)
	u.Weight = strings.TrimSpace(u.Weight)
	if u.Status != StatusVaccinated {
		u.Reaction, u.Response, u.Date, u.Time, u.Height, u.Weight = "", "", "", "", "", ""
		return
	}
	if u.Reaction == "" {
		u.Reaction = reactionYes
	}
	if u.Reaction == reactionNo {
		u.Response = ""
	}
}

// Validate checks a normalized update against the edit-form rules. now is
// used to reject future vaccination dates.
func (u *StatusUpdate) Validate(now time.Time) error {
	verr := &ValidationError{}

	if strings.TrimSpace(string(u.EntryID)) == "" {
		verr.add("Vaccination_List_ID", "Vaccination_List_ID is required.")
	}
	if !u.Status.Valid() {
		verr.add("Status", "Status must be one of Vaccinated, Not Vaccinated or Skipped.")
	}

	if u.Status == StatusVaccinated {
		switch u.Reaction {
		case reactionYes:
			validateResponse(verr, u.Response)
		case reactionNo:
		default:
			verr.add("Vaccine_Reaction", "Vaccine_Reaction must be Yes or No.")
		}

		if u.Date != "" {
			d, err := time.Parse("2006-01-02", u.Date)
			if err != nil {
				verr.add("Date", "Date must be in YYYY-MM-DD format.")
			} else if dateOnly(d).After(dateOnly(now)) {
				verr.add("Date", "Date cannot be in the future.")
			}
		}
		if u.Time != "" && !timeRe.MatchString(u.Time) {
			verr.add("Time", "Time must be in HH:MM format.")
		}
		if u.Height != "" {
			validateMeasure(verr, "Height", u.Height, heightRe, maxHeightCM,
				"Please enter a valid height.", "Height must be 180 cm or less.")
		}
		if u.Weight != "" {
			validateMeasure(verr, "Weight", u.Weight, weightRe, maxWeightKG,
				"Please enter a valid weight.", "Weight must be 70 kg or less.")
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func validateResponse(verr *ValidationError, response string) {
	switch {
	case strings.TrimSpace(response) == "":
		verr.add("Post_Vaccination_Response", "Kindly fill this field.")
	case !responseStartRe.MatchString(response):
		verr.add("Post_Vaccination_Response", "Must start with a letter or number.")
	case len([]rune(response)) > maxResponseLength:
		verr.add("Post_Vaccination_Response", "Maximum length is 50 characters.")
	}
}

func validateMeasure(verr *ValidationError, field, raw string, re *regexp.Regexp, max float64, invalidMsg, tooLargeMsg string) {
	if !re.MatchString(raw) {
		verr.add(field, invalidMsg)
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 1 {
		verr.add(field, invalidMsg)
		return
	}
	if v > max {
		verr.add(field, tooLargeMsg)
	}
}

package report

import (
	"strings"
	"unicode/utf8"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

// FieldValidator is one named rule: a predicate over the record and the message shown
// next to the field when the predicate fails.
type FieldValidator struct {
	Field   string
	Message string
	Check   func(IncidentReport) bool
}

// FieldErrors maps a field name to the first failing rule's message.
type FieldErrors map[string]string

func minLen(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

func sliderLabel(label string) bool {
	if strings.TrimSpace(label) == "" {
		return false
	}
	v, numeric := sliderNumber(label)
	if !numeric {
		return true
	}
	return v >= SliderMin && v <= SliderMax
}

var validators = []FieldValidator{
	{
		Field:   FieldName,
		Message: "Name must be at least 2 characters.",
		Check:   func(r IncidentReport) bool { return minLen(2)(r.Name) },
	},
	{
		Field:   FieldPhone,
		Message: "Phone number must be at least 10 digits.",
		Check:   func(r IncidentReport) bool { return minLen(10)(r.Phone) },
	},
	{
		Field:   FieldLocation,
		Message: "Location must be a valid latitude and longitude.",
		Check:   func(r IncidentReport) bool { return len(r.Location.Validate()) == 0 },
	},
	{
		Field:   FieldOccurrenceDuration,
		Message: "Please select how long this has been happening.",
		Check:   func(r IncidentReport) bool { return sliderLabel(r.OccurrenceDuration) },
	},
	{
		Field:   FieldFrequency,
		Message: "Please select how often incidents occur.",
		Check:   func(r IncidentReport) bool { return sliderLabel(r.Frequency) },
	},
	{
		Field:   FieldVisibleInjuries,
		Message: "Please select whether there are visible injuries.",
		Check:   func(r IncidentReport) bool { return r.VisibleInjuries.Valid() },
	},
	{
		Field:   FieldPreferredContact,
		Message: "You have to select at least one contact method.",
		Check:   func(r IncidentReport) bool { return len(r.PreferredContact) > 0 },
	},
	{
		Field:   FieldPreferredContact,
		Message: "Unknown or repeated contact method.",
		Check: func(r IncidentReport) bool {
			for _, m := range r.PreferredContact {
				if !m.Valid() {
					return false
				}
			}
			return !r.PreferredContact.hasDuplicates()
		},
	},
	{
		Field:   FieldCurrentSituation,
		Message: "Current situation must be at least 5 characters.",
		Check:   func(r IncidentReport) bool { return minLen(5)(r.CurrentSituation) },
	},
	{
		Field:   FieldCulprit,
		Message: "Culprit description must be at least 5 characters.",
		Check:   func(r IncidentReport) bool { return minLen(5)(r.Culprit) },
	},
}

// Validators returns the rules in evaluation order. The slice is a copy.
func Validators() []FieldValidator {
	return append([]FieldValidator(nil), validators...)
}

// Check runs every rule and keeps the first message per field.
func Check(r IncidentReport) FieldErrors {
	out := FieldErrors{}
	for _, v := range validators {
		if _, failed := out[v.Field]; failed {
			continue
		}
		if !v.Check(r) {
			out[v.Field] = v.Message
		}
	}
	return out
}

func (r IncidentReport) Validate() error {
	const op = "report.model.validate"

	if fields := Check(r); len(fields) > 0 {
		return errs.Invalid("REPORT_INVALID", op, fields)
	}
	return nil
}

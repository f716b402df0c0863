// Package report holds the incident report record and the field rules it must satisfy
// before it leaves the form.
package report

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	SliderMin = 1
	SliderMax = 100
)

type Injuries string

const (
	InjuriesYes Injuries = "Yes"
	InjuriesNo  Injuries = "No"
)

func (i Injuries) Valid() bool { return i == InjuriesYes || i == InjuriesNo }

// Field names double as JSON keys and as keys of per-field error maps.
const (
	FieldName               = "name"
	FieldPhone              = "phone"
	FieldLocation           = "location"
	FieldOccurrenceDuration = "occurrenceDuration"
	FieldFrequency          = "frequency"
	FieldVisibleInjuries    = "visibleInjuries"
	FieldPreferredContact   = "preferredContact"
	FieldCurrentSituation   = "currentSituation"
	FieldCulprit            = "culprit"
)

// Fields lists every field in form order.
func Fields() []string {
	return []string{
		FieldName,
		FieldPhone,
		FieldLocation,
		FieldOccurrenceDuration,
		FieldFrequency,
		FieldVisibleInjuries,
		FieldPreferredContact,
		FieldCurrentSituation,
		FieldCulprit,
	}
}

type IncidentReport struct {
	Name               string     `json:"name" yaml:"name"`
	Phone              string     `json:"phone" yaml:"phone"`
	Location           Point      `json:"location" yaml:"location"`
	OccurrenceDuration string     `json:"occurrenceDuration" yaml:"occurrenceDuration"`
	Frequency          string     `json:"frequency" yaml:"frequency"`
	VisibleInjuries    Injuries   `json:"visibleInjuries" yaml:"visibleInjuries"`
	PreferredContact   ContactSet `json:"preferredContact" yaml:"preferredContact"`
	CurrentSituation   string     `json:"currentSituation" yaml:"currentSituation"`
	Culprit            string     `json:"culprit" yaml:"culprit"`
}

// Clone returns a copy that shares no slices with r.
func (r IncidentReport) Clone() IncidentReport {
	out := r
	if r.PreferredContact != nil {
		out.PreferredContact = append(ContactSet(nil), r.PreferredContact...)
	}
	return out
}

// ClampSlider bounds v to the slider range.
func ClampSlider(v int) int {
	if v < SliderMin {
		return SliderMin
	}
	if v > SliderMax {
		return SliderMax
	}
	return v
}

func SliderLabel(v int) string { return strconv.Itoa(ClampSlider(v)) }

// SliderValue parses a slider label back to its position, rounding fractions.
// Free-text labels and NaN or infinite numbers report false.
func SliderValue(label string) (int, bool) {
	f, numeric := sliderNumber(label)
	if !numeric || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Max(math.Min(math.Round(f), math.MaxInt32), math.MinInt32)
	return int(f), true
}

// sliderNumber reports whether label reads as a number in any notation strconv accepts
// (decimal, exponent, hex, octal, binary) and the value it reads as. Values too large
// to represent come back as ±Inf.
func sliderNumber(label string) (float64, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return f, true
	}

	n, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return float64(n), true
	}
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	return 0, false
}

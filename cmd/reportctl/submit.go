package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/form"
	"github.com/m1ll3r1337/incident-report-service/internal/geo"
)

var errReportInvalid = errors.New("report is invalid")

type submitOptions struct {
	file        string
	interactive bool
	lat, lon    float64
	locate      bool
	geoEndpoint string
}

func newSubmitCmd(o *rootOptions) *cobra.Command {
	var s submitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Validate a report and generate its help-request text",
		Example: `  reportctl submit -f report.yaml
  reportctl submit --interactive --locate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, o, s)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&s.file, "file", "f", "", "YAML file with the report fields")
	f.BoolVarP(&s.interactive, "interactive", "i", false, "prompt for every field")
	f.Float64Var(&s.lat, "lat", 0, "latitude")
	f.Float64Var(&s.lon, "lon", 0, "longitude")
	f.BoolVar(&s.locate, "locate", false, "look up an approximate location from the public IP")
	f.StringVar(&s.geoEndpoint, "geo-endpoint", geo.DefaultIPEndpoint, "IP geolocation endpoint")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	cmd.MarkFlagsMutuallyExclusive("locate", "lat")
	cmd.MarkFlagsMutuallyExclusive("locate", "lon")

	return cmd
}

func runSubmit(cmd *cobra.Command, o *rootOptions, s submitOptions) error {
	ctx := cmd.Context()
	log := o.logger()

	if s.file == "" && !s.interactive {
		return errors.New("nothing to submit: pass --file or --interactive")
	}

	user, err := o.user()
	if err != nil {
		return err
	}

	policy := form.FailSilently
	if o.surfaceErrors {
		policy = form.FailLoudly
	}
	f := form.New(ctx, o.client(), user,
		form.WithLogger(log),
		form.WithFailurePolicy(policy),
		form.WithOnText(func(text string) { fmt.Fprintln(o.stdout, text) }),
	)

	if s.file != "" {
		r, err := loadReport(s.file)
		if err != nil {
			return err
		}
		if r.Name == "" {
			r.Name = f.Draft().Name
		}
		f.Load(r)
	}

	switch {
	case cmd.Flags().Changed("lat"):
		f.SetLocation(report.Point{Lat: s.lat, Lon: s.lon})
	case s.locate:
		res := <-f.RequestLocation(ctx, geo.NewIPLocator(s.geoEndpoint, 5*time.Second))
		if res.Err != nil {
			fmt.Fprintln(o.stderr, "location unavailable, continuing without it")
		}
	}

	if s.interactive {
		driver := o.driver
		if driver == nil {
			driver = surveyDriver{}
		}
		if err := promptReport(ctx, driver, f); err != nil {
			return err
		}
	}

	out, err := f.Submit(ctx)
	if errs.IsKind(err, errs.KindInvalid) {
		printFieldErrors(o, out.Fields)
		return errReportInvalid
	}
	return err
}

func loadReport(path string) (report.IncidentReport, error) {
	const op = "reportctl.load_report"

	fh, err := os.Open(path)
	if err != nil {
		return report.IncidentReport{}, err
	}
	defer fh.Close()

	var r report.IncidentReport
	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return report.IncidentReport{}, errs.E(errs.KindInvalid, "BAD_YAML", op, fmt.Sprintf("read %s", path), nil, err)
	}

	if r.OccurrenceDuration == "" {
		r.OccurrenceDuration = report.SliderLabel(report.SliderMin)
	}
	if r.Frequency == "" {
		r.Frequency = report.SliderLabel(report.SliderMin)
	}
	return r, nil
}

func printFieldErrors(o *rootOptions, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(o.stderr, "%s: %s\n", k, fields[k])
	}
}

// fieldRule checks one field of the draft with s applied, for inline prompt validation.
func fieldRule(f *form.Form, field string, apply func(*report.IncidentReport, string)) func(string) error {
	return func(s string) error {
		probe := f.Draft()
		apply(&probe, s)
		if msg := report.Check(probe)[field]; msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}

func promptReport(ctx context.Context, d PromptDriver, f *form.Form) error {
	draft := f.Draft()

	name, err := d.Input(ctx, InputConfig{
		Message:   "Name",
		Default:   draft.Name,
		Validator: fieldRule(f, report.FieldName, func(r *report.IncidentReport, s string) { r.Name = s }),
	})
	if err != nil {
		return err
	}
	f.SetName(name)

	phone, err := d.Input(ctx, InputConfig{
		Message:   "Phone",
		Default:   draft.Phone,
		Validator: fieldRule(f, report.FieldPhone, func(r *report.IncidentReport, s string) { r.Phone = s }),
	})
	if err != nil {
		return err
	}
	f.SetPhone(phone)

	var locDefault string
	if !draft.Location.IsZero() {
		locDefault = draft.Location.String()
	}
	loc, err := d.Input(ctx, InputConfig{
		Message: "Location (lat, lon)",
		Default: locDefault,
		Help:    "Leave empty to send 0, 0.",
		Validator: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			p, err := parsePoint(s)
			if err != nil {
				return err
			}
			if fields := p.Validate(); len(fields) > 0 {
				return errors.New(fields[report.FieldLocation])
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(loc) != locDefault {
		p, _ := parsePoint(loc)
		f.SetLocation(p)
	}

	if err := promptSlider(ctx, d, f, report.FieldOccurrenceDuration, "How long has this been happening? (1-100 or a label)", draft.OccurrenceDuration, f.SetDurationLabel); err != nil {
		return err
	}
	if err := promptSlider(ctx, d, f, report.FieldFrequency, "How often do incidents occur? (1-100 or a label)", draft.Frequency, f.SetFrequencyLabel); err != nil {
		return err
	}

	injuries := []string{string(report.InjuriesYes), string(report.InjuriesNo)}
	i, err := d.Select(ctx, SelectConfig{
		Message:      "Visible injuries",
		Options:      injuries,
		DefaultIndex: indexOf(injuries, string(draft.VisibleInjuries)),
	})
	if err != nil {
		return err
	}
	if i >= 0 {
		f.SetVisibleInjuries(report.Injuries(injuries[i]))
	}

	methods := report.ContactMethods()
	options := make([]string, len(methods))
	var defaults []int
	for i, m := range methods {
		options[i] = string(m)
		if draft.PreferredContact.Has(m) {
			defaults = append(defaults, i)
		}
	}
	picked, err := d.MultiSelect(ctx, SelectConfig{
		Message:  "Preferred contact method",
		Options:  options,
		Defaults: defaults,
	})
	if err != nil {
		return err
	}
	want := make(report.ContactSet, 0, len(picked))
	for _, i := range picked {
		want = append(want, methods[i])
	}
	for _, m := range methods {
		if want.Has(m) != f.Draft().PreferredContact.Has(m) {
			f.ToggleContact(m)
		}
	}

	situation, err := d.TextArea(ctx, InputConfig{
		Message:   "Current situation",
		Default:   draft.CurrentSituation,
		Validator: fieldRule(f, report.FieldCurrentSituation, func(r *report.IncidentReport, s string) { r.CurrentSituation = s }),
	})
	if err != nil {
		return err
	}
	f.SetCurrentSituation(situation)

	culprit, err := d.TextArea(ctx, InputConfig{
		Message:   "Culprit description",
		Default:   draft.Culprit,
		Validator: fieldRule(f, report.FieldCulprit, func(r *report.IncidentReport, s string) { r.Culprit = s }),
	})
	if err != nil {
		return err
	}
	f.SetCulprit(culprit)
	return nil
}

func promptSlider(ctx context.Context, d PromptDriver, f *form.Form, field, msg, def string, setLabel func(string)) error {
	v, err := d.Input(ctx, InputConfig{
		Message: msg,
		Default: def,
		Validator: fieldRule(f, field, func(r *report.IncidentReport, s string) {
			if field == report.FieldFrequency {
				r.Frequency = s
			} else {
				r.OccurrenceDuration = s
			}
		}),
	})
	if err != nil {
		return err
	}

	v = strings.TrimSpace(v)
	if n, convErr := strconv.Atoi(v); convErr == nil {
		_, err = f.SetSlider(field, n)
		return err
	}
	setLabel(v)
	return nil
}

func parsePoint(s string) (report.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return report.Point{}, errors.New("enter latitude and longitude separated by a comma")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return report.Point{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return report.Point{}, fmt.Errorf("longitude: %w", err)
	}
	return report.Point{Lat: lat, Lon: lon}, nil
}

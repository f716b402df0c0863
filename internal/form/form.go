// Package form drives the incident report form: field state, the named validators,
// optional geolocation and the single outbound submission.
//
// A Form is safe for concurrent use. Submit moves through
// idle → validating → submitting → done | failed; a Submit issued while another is in
// flight is refused with ErrSubmissionPending.
package form

import (
	"context"
	"fmt"
	"sync"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

type TextGenerator interface {
	GenerateText(ctx context.Context, r report.IncidentReport, bearer string) (string, error)
}

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusSubmitting Status = "submitting"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// FailurePolicy decides what Submit does with a transport failure.
type FailurePolicy int

const (
	// FailSilently logs the failure, marks the form failed and returns no error.
	FailSilently FailurePolicy = iota
	// FailLoudly returns the failure to the caller as well.
	FailLoudly
)

var ErrSubmissionPending = errs.E(errs.KindConflict, "SUBMISSION_PENDING", "form.submit", "a submission is already in flight", nil, nil)

type Option func(*Form)

// WithOnText registers the callback that receives generated text after a successful submit.
func WithOnText(fn func(text string)) Option {
	return func(f *Form) { f.onText = fn }
}

func WithFailurePolicy(p FailurePolicy) Option {
	return func(f *Form) { f.policy = p }
}

func WithLogger(log Logger) Option {
	return func(f *Form) { f.log = log }
}

type Outcome struct {
	Status Status
	Text   string
	Fields report.FieldErrors
}

type Form struct {
	gen    TextGenerator
	user   auth.CurrentUser
	onText func(string)
	policy FailurePolicy
	log    Logger

	mu        sync.Mutex
	draft     report.IncidentReport
	fieldErrs report.FieldErrors
	status    Status
	text      string
	lastErr   error

	// locIssued counts location writes requested so far; locApplied is the newest one applied.
	locIssued  uint64
	locApplied uint64
}

// New builds an empty form. When user resolves a signed-in user, the name field is
// pre-filled and submissions carry the user's token.
func New(ctx context.Context, gen TextGenerator, user auth.CurrentUser, opts ...Option) *Form {
	if user == nil {
		user = auth.Anonymous{}
	}
	f := &Form{
		gen:    gen,
		user:   user,
		policy: FailSilently,
		log:    nopLogger{},
		status: StatusIdle,
		draft: report.IncidentReport{
			OccurrenceDuration: report.SliderLabel(report.SliderMin),
			Frequency:          report.SliderLabel(report.SliderMin),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	if u, ok := user.Current(ctx); ok && u.Name != "" {
		f.draft.Name = u.Name
	}
	return f
}

// Load replaces every field with the values of r.
func (f *Form) Load(r report.IncidentReport) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.draft = r.Clone()
	f.locIssued++
	f.locApplied = f.locIssued
}

func (f *Form) Draft() report.IncidentReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Clone()
}

func (f *Form) SetName(v string) { f.update(func(r *report.IncidentReport) { r.Name = v }) }

func (f *Form) SetPhone(v string) { f.update(func(r *report.IncidentReport) { r.Phone = v }) }

func (f *Form) SetVisibleInjuries(v report.Injuries) {
	f.update(func(r *report.IncidentReport) { r.VisibleInjuries = v })
}

func (f *Form) SetCurrentSituation(v string) {
	f.update(func(r *report.IncidentReport) { r.CurrentSituation = v })
}

func (f *Form) SetCulprit(v string) { f.update(func(r *report.IncidentReport) { r.Culprit = v }) }

func (f *Form) ToggleContact(m report.ContactMethod) {
	f.update(func(r *report.IncidentReport) { r.PreferredContact.Toggle(m) })
}

// SetLocation overwrites the location. Geolocation requests issued earlier no longer apply.
func (f *Form) SetLocation(p report.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.locIssued++
	f.locApplied = f.locIssued
	f.draft.Location = p
}

// SetSlider moves one of the slider-bound fields and returns the stored, clamped value.
func (f *Form) SetSlider(field string, v int) (int, error) {
	v = report.ClampSlider(v)
	label := report.SliderLabel(v)

	switch field {
	case report.FieldOccurrenceDuration:
		f.update(func(r *report.IncidentReport) { r.OccurrenceDuration = label })
	case report.FieldFrequency:
		f.update(func(r *report.IncidentReport) { r.Frequency = label })
	default:
		return 0, errs.E(errs.KindInvalid, "NOT_A_SLIDER", "form.set_slider", fmt.Sprintf("%q is not a slider field", field), nil, nil)
	}
	return v, nil
}

// SetDurationLabel stores a free-form duration label such as "2 years".
func (f *Form) SetDurationLabel(v string) {
	f.update(func(r *report.IncidentReport) { r.OccurrenceDuration = v })
}

func (f *Form) SetFrequencyLabel(v string) {
	f.update(func(r *report.IncidentReport) { r.Frequency = v })
}

// Slider reports the position of a slider-bound field, always within the slider range.
func (f *Form) Slider(field string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var label string
	switch field {
	case report.FieldOccurrenceDuration:
		label = f.draft.OccurrenceDuration
	case report.FieldFrequency:
		label = f.draft.Frequency
	}
	v, ok := report.SliderValue(label)
	if !ok {
		return report.SliderMin
	}
	return report.ClampSlider(v)
}

func (f *Form) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Pending reports whether the submit control should be disabled.
func (f *Form) Pending() bool {
	s := f.Status()
	return s == StatusValidating || s == StatusSubmitting
}

func (f *Form) FieldErrors() report.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(report.FieldErrors, len(f.fieldErrs))
	for k, v := range f.fieldErrs {
		out[k] = v
	}
	return out
}

func (f *Form) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// LastError returns the failure behind StatusFailed, for diagnostics.
func (f *Form) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Validate runs the field validators against the current draft without submitting.
func (f *Form) Validate() report.FieldErrors {
	return report.Check(f.Draft())
}

// Submit validates a snapshot of the draft and, when every rule passes, sends it once.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	const op = "form.submit"

	f.mu.Lock()
	if f.status == StatusValidating || f.status == StatusSubmitting {
		f.mu.Unlock()
		return Outcome{Status: f.Status()}, ErrSubmissionPending
	}
	f.status = StatusValidating
	snapshot := f.draft.Clone()
	f.mu.Unlock()

	if fields := report.Check(snapshot); len(fields) > 0 {
		return f.rejected(op, fields)
	}

	f.setState(StatusSubmitting, nil, nil)

	var bearer string
	if u, ok := f.user.Current(ctx); ok {
		bearer = u.Token
	}

	text, err := f.gen.GenerateText(ctx, snapshot, bearer)
	if err != nil {
		if e, ok := errs.As(err); ok && e.Kind == errs.KindInvalid && len(e.Fields) > 0 {
			return f.rejected(op, e.Fields)
		}

		f.log.Error(ctx, "report submission failed", "error", err)
		f.setState(StatusFailed, nil, err)

		out := Outcome{Status: StatusFailed}
		if f.policy == FailLoudly {
			return out, errs.Wrap(op, err)
		}
		return out, nil
	}

	f.mu.Lock()
	f.status = StatusDone
	f.text = text
	f.lastErr = nil
	f.fieldErrs = nil
	onText := f.onText
	f.mu.Unlock()

	f.log.Info(ctx, "report submitted", "chars", len(text))
	if onText != nil {
		onText(text)
	}
	return Outcome{Status: StatusDone, Text: text}, nil
}

func (f *Form) rejected(op string, fields map[string]string) (Outcome, error) {
	fe := make(report.FieldErrors, len(fields))
	for k, v := range fields {
		fe[k] = v
	}
	f.setState(StatusIdle, fe, nil)
	return Outcome{Status: StatusIdle, Fields: fe}, errs.Invalid("REPORT_INVALID", op, fields)
}

func (f *Form) setState(s Status, fields report.FieldErrors, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = s
	f.fieldErrs = fields
	f.lastErr = err
}

func (f *Form) update(fn func(*report.IncidentReport)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.draft)
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}

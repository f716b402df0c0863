// Package web serves the browser version of the incident report form.
package web

import (
	"context"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/microcosm-cc/bluemonday"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/client"
	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/form"
	"github.com/m1ll3r1337/incident-report-service/internal/guard"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

const failureNotice = "We could not generate your report right now. Please try again."

type Option func(*Handler)

// WithSurfaceErrors shows transport failures to the user instead of silently re-rendering the form.
func WithSurfaceErrors(on bool) Option {
	return func(h *Handler) {
		if on {
			h.policy = form.FailLoudly
		} else {
			h.policy = form.FailSilently
		}
	}
}

type Handler struct {
	gen      form.TextGenerator
	guard    guard.Guard
	renderer *Renderer
	log      Logger
	policy   form.FailurePolicy
	sanitize *bluemonday.Policy
}

func NewHandler(gen form.TextGenerator, g guard.Guard, renderer *Renderer, log Logger, opts ...Option) *Handler {
	h := &Handler{
		gen:      gen,
		guard:    g,
		renderer: renderer,
		log:      log,
		policy:   form.FailSilently,
		sanitize: bluemonday.UGCPolicy(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type reportForm struct {
	Token              string   `form:"token"`
	Name               string   `form:"name"`
	Phone              string   `form:"phone"`
	Lat                string   `form:"lat"`
	Lon                string   `form:"lon"`
	OccurrenceDuration string   `form:"occurrenceDuration"`
	Frequency          string   `form:"frequency"`
	VisibleInjuries    string   `form:"visibleInjuries"`
	PreferredContact   []string `form:"preferredContact"`
	CurrentSituation   string   `form:"currentSituation"`
	Culprit            string   `form:"culprit"`
}

// apply copies the posted values onto f. Slider fields accept numbers or free labels.
func (in reportForm) apply(f *form.Form) {
	if in.Name != "" {
		f.SetName(in.Name)
	}
	f.SetPhone(in.Phone)

	if p, ok := parsePoint(in.Lat, in.Lon); ok {
		f.SetLocation(p)
	}

	setSlider(f, report.FieldOccurrenceDuration, in.OccurrenceDuration, f.SetDurationLabel)
	setSlider(f, report.FieldFrequency, in.Frequency, f.SetFrequencyLabel)

	f.SetVisibleInjuries(report.Injuries(in.VisibleInjuries))
	for _, m := range in.PreferredContact {
		cm := report.ContactMethod(m)
		if !f.Draft().PreferredContact.Has(cm) {
			f.ToggleContact(cm)
		}
	}
	f.SetCurrentSituation(in.CurrentSituation)
	f.SetCulprit(in.Culprit)
}

func setSlider(f *form.Form, field, raw string, setLabel func(string)) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil {
		_, _ = f.SetSlider(field, v)
		return
	}
	setLabel(raw)
}

func parsePoint(lat, lon string) (report.Point, bool) {
	if strings.TrimSpace(lat) == "" || strings.TrimSpace(lon) == "" {
		return report.Point{}, false
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return report.Point{}, false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return report.Point{}, false
	}
	return report.Point{Lat: la, Lon: lo}, true
}

type option struct {
	Value   string
	Checked bool
}

type formView struct {
	Token     string
	Draft     report.IncidentReport
	Fields    report.FieldErrors
	Notice    string
	Lat, Lon  string
	Duration  int
	Frequency int
	SliderMin int
	SliderMax int
	Injuries  []option
	Contacts  []option
}

type resultView struct {
	Paragraphs template.HTML
}

func (h *Handler) newForm(ctx context.Context) *form.Form {
	return form.New(ctx, h.gen, auth.FromContext{},
		form.WithFailurePolicy(h.policy),
		form.WithLogger(h.log),
	)
}

func (h *Handler) Index(ctx *gin.Context) {
	const op = "web.index"

	f := h.newForm(ctx.Request.Context())
	if err := h.renderForm(ctx, http.StatusOK, f, nil, ""); err != nil {
		_ = ctx.Error(errs.Wrap(op, err))
	}
}

func (h *Handler) Submit(ctx *gin.Context) {
	const op = "web.submit"
	reqCtx := ctx.Request.Context()

	var in reportForm
	if err := ctx.ShouldBindWith(&in, binding.Form); err != nil {
		_ = ctx.Error(errs.E(errs.KindInvalid, "BAD_FORM", op, "malformed form", nil, err))
		return
	}

	f := h.newForm(reqCtx)
	in.apply(f)

	if err := h.guard.Claim(reqCtx, in.Token); err != nil {
		if errs.IsKind(err, errs.KindConflict) {
			h.log.Info(reqCtx, "duplicate submission ignored")
			h.render(ctx, op, http.StatusConflict, "submitted", nil)
			return
		}
		_ = ctx.Error(errs.Wrap(op, err))
		return
	}

	out, err := f.Submit(client.WithForwardedFor(reqCtx, ctx.ClientIP()))
	switch {
	case errs.IsKind(err, errs.KindInvalid):
		if rerr := h.renderForm(ctx, http.StatusUnprocessableEntity, f, out.Fields, ""); rerr != nil {
			_ = ctx.Error(errs.Wrap(op, rerr))
		}
	case err != nil:
		if rerr := h.renderForm(ctx, http.StatusBadGateway, f, nil, failureNotice); rerr != nil {
			_ = ctx.Error(errs.Wrap(op, rerr))
		}
	case out.Status == form.StatusFailed:
		if rerr := h.renderForm(ctx, http.StatusOK, f, nil, ""); rerr != nil {
			_ = ctx.Error(errs.Wrap(op, rerr))
		}
	default:
		h.render(ctx, op, http.StatusOK, "result", resultView{Paragraphs: h.paragraphs(out.Text)})
	}
}

// paragraphs lays generated text out as HTML: blank lines split paragraphs and single
// newlines become line breaks. Text is escaped before any markup is added, and the result
// still goes through the sanitizer since it is written to the page unescaped.
func (h *Handler) paragraphs(text string) template.HTML {
	var b strings.Builder
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, l := range lines {
			lines[i] = template.HTMLEscapeString(l)
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return template.HTML(h.sanitize.Sanitize(b.String()))
}

// renderForm always issues a fresh token so a corrected form can be posted again.
func (h *Handler) renderForm(ctx *gin.Context, status int, f *form.Form, fields report.FieldErrors, notice string) error {
	token, err := h.guard.Issue(ctx.Request.Context())
	if err != nil {
		return err
	}

	d := f.Draft()
	v := formView{
		Token:     token,
		Draft:     d,
		Fields:    fields,
		Notice:    notice,
		Duration:  f.Slider(report.FieldOccurrenceDuration),
		Frequency: f.Slider(report.FieldFrequency),
		SliderMin: report.SliderMin,
		SliderMax: report.SliderMax,
	}
	if !d.Location.IsZero() {
		v.Lat = strconv.FormatFloat(d.Location.Lat, 'f', -1, 64)
		v.Lon = strconv.FormatFloat(d.Location.Lon, 'f', -1, 64)
	}
	for _, i := range []report.Injuries{report.InjuriesYes, report.InjuriesNo} {
		v.Injuries = append(v.Injuries, option{Value: string(i), Checked: d.VisibleInjuries == i})
	}
	for _, m := range report.ContactMethods() {
		v.Contacts = append(v.Contacts, option{Value: string(m), Checked: d.PreferredContact.Has(m)})
	}

	return h.renderer.Render(ctx.Writer, status, "form", v)
}

func (h *Handler) render(ctx *gin.Context, op string, status int, name string, data any) {
	if err := h.renderer.Render(ctx.Writer, status, name, data); err != nil {
		_ = ctx.Error(errs.Wrap(op, err))
	}
}

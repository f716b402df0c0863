package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/generation"
)

type TextGenerator interface {
	Generate(ctx context.Context, r report.IncidentReport) (string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, input any) []string
}

type Generate struct {
	text   TextGenerator
	images ImageGenerator
	log    Logger
}

func NewGenerate(text TextGenerator, images ImageGenerator, log Logger) *Generate {
	return &Generate{text: text, images: images, log: log}
}

type generateTextRequest struct {
	Name               string            `json:"name" binding:"min=2"`
	Phone              string            `json:"phone" binding:"min=10"`
	Location           report.Point      `json:"location"`
	OccurrenceDuration string            `json:"occurrenceDuration" binding:"slider"`
	Frequency          string            `json:"frequency" binding:"slider"`
	VisibleInjuries    report.Injuries   `json:"visibleInjuries" binding:"oneof=Yes No"`
	PreferredContact   report.ContactSet `json:"preferredContact" binding:"contact"`
	CurrentSituation   string            `json:"currentSituation" binding:"min=5"`
	Culprit            string            `json:"culprit" binding:"min=5"`
}

func (r generateTextRequest) toReport() report.IncidentReport {
	return report.IncidentReport{
		Name:               r.Name,
		Phone:              r.Phone,
		Location:           r.Location,
		OccurrenceDuration: r.OccurrenceDuration,
		Frequency:          r.Frequency,
		VisibleInjuries:    r.VisibleInjuries,
		PreferredContact:   r.PreferredContact,
		CurrentSituation:   r.CurrentSituation,
		Culprit:            r.Culprit,
	}
}

// RegisterValidators adds the report-specific binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	if err := v.RegisterValidation("slider", func(fl validator.FieldLevel) bool {
		label := fl.Field().String()
		return report.Check(report.IncidentReport{OccurrenceDuration: label})[report.FieldOccurrenceDuration] == ""
	}); err != nil {
		return err
	}
	return v.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
		set, ok := fl.Field().Interface().(report.ContactSet)
		if !ok {
			return false
		}
		return report.Check(report.IncidentReport{PreferredContact: set})[report.FieldPreferredContact] == ""
	})
}

func (h *Generate) Text(ctx *gin.Context) {
	const op = "generation.http.text"

	var req generateTextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(bindError(op, err, req.toReport()))
		return
	}

	if u, ok := (auth.FromContext{}).Current(ctx.Request.Context()); ok {
		h.log.Info(ctx.Request.Context(), "report text requested", "user_id", u.ID)
	}

	text, err := h.text.Generate(ctx.Request.Context(), req.toReport())
	if err != nil {
		_ = ctx.Error(errs.Wrap(op, err))
		return
	}

	ctx.JSON(http.StatusOK, generation.TextResponse{Text: text})
}

// Images accepts any JSON body. Anything that is not JSON gets the fixed failure body.
func (h *Generate) Images(ctx *gin.Context) {
	raw, err := ctx.GetRawData()
	if err != nil {
		h.imageFailure(ctx, err)
		return
	}

	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		h.imageFailure(ctx, err)
		return
	}

	h.log.Info(ctx.Request.Context(), "image generation requested", "bytes", len(raw))
	h.log.Debug(ctx.Request.Context(), "image generation input", "input", input)
	ctx.JSON(http.StatusOK, generation.ImageResponse{Images: h.images.Generate(ctx.Request.Context(), input)})
}

func (h *Generate) imageFailure(ctx *gin.Context, err error) {
	h.log.Error(ctx.Request.Context(), "image generation failed", "error", err)
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, generation.ErrorResponse{Error: generation.ImageFailureMessage})
}

// bindError reports binding failures with the same per-field messages the form shows.
func bindError(op string, err error, r report.IncidentReport) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.E(errs.KindInvalid, "BAD_JSON", op, "malformed request body", nil, err)
	}

	checked := report.Check(r)
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := jsonName(fe.Field())
		if msg := checked[name]; msg != "" {
			fields[name] = msg
		} else if _, seen := fields[name]; !seen {
			fields[name] = "is invalid"
		}
	}
	return errs.Invalid("REPORT_INVALID", op, fields)
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return string(field[0]|0x20) + field[1:]
}

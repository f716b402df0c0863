// Package generation holds the mocked text and image generators behind the API and the
// wire types shared with the API client.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

const ImageFailureMessage = "Failed to generate images"

type TextResponse struct {
	Text string `json:"text"`
}

type ImageRequest struct {
	GeneratedText string `json:"generatedText"`
	ImagePrompt   string `json:"imagePrompt"`
}

type ImageResponse struct {
	Images []string `json:"images"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const helpRequest = "I am reaching out because I need help. The details above describe what is " +
	"happening to me. Please contact me using my preferred contact method as soon as it is safe to do so."

type TextService struct{}

func NewTextService() *TextService { return &TextService{} }

// Generate renders the report as a labelled block followed by a fixed help request.
func (s *TextService) Generate(ctx context.Context, r report.IncidentReport) (string, error) {
	const op = "generation.text.generate"

	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(op, err)
	}
	if err := r.Validate(); err != nil {
		return "", errs.Wrap(op, err)
	}

	contacts := r.PreferredContact.Canonical().Strings()

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	fmt.Fprintf(&b, "Phone: %s\n", r.Phone)
	fmt.Fprintf(&b, "Location: %s\n", r.Location)
	fmt.Fprintf(&b, "Duration of Abuse: %s\n", r.OccurrenceDuration)
	fmt.Fprintf(&b, "Frequency of Incidents: %s\n", r.Frequency)
	fmt.Fprintf(&b, "Visible Injuries: %s\n", r.VisibleInjuries)
	fmt.Fprintf(&b, "Preferred Contact Method: %s\n", strings.Join(contacts, ", "))
	fmt.Fprintf(&b, "Current Situation: %s\n", r.CurrentSituation)
	fmt.Fprintf(&b, "Culprit Description: %s\n", r.Culprit)
	b.WriteString("\n")
	b.WriteString(helpRequest)

	return b.String(), nil
}

// Local serves the report form from the text service in the same process. It has the
// same shape as the API client, so the form does not care which one it talks to.
type Local struct {
	svc *TextService
}

func NewLocal(svc *TextService) *Local { return &Local{svc: svc} }

// GenerateText ignores bearer: the caller is already past the server's auth middleware.
func (l *Local) GenerateText(ctx context.Context, r report.IncidentReport, _ string) (string, error) {
	return l.svc.Generate(ctx, r)
}

type ImageService struct {
	urls []string
}

func NewImageService(urls []string) *ImageService {
	return &ImageService{urls: append([]string(nil), urls...)}
}

// Generate ignores its input and returns the configured URLs.
func (s *ImageService) Generate(context.Context, any) []string {
	return append([]string(nil), s.urls...)
}

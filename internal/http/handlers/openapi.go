package handlers

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/generation"
)

// OpenAPI describes the generation and image text endpoints.
func OpenAPI(version string) *openapi3.T {
	contacts := make([]any, 0, len(report.ContactMethods()))
	for _, m := range report.ContactMethods() {
		contacts = append(contacts, string(m))
	}

	reportSchema := openapi3.NewObjectSchema().
		WithProperty(report.FieldName, openapi3.NewStringSchema().WithMinLength(2)).
		WithProperty(report.FieldPhone, openapi3.NewStringSchema().WithMinLength(10)).
		WithProperty(report.FieldLocation, openapi3.NewArraySchema().
			WithItems(openapi3.NewFloat64Schema()).
			WithMinItems(2).
			WithMaxItems(2)).
		WithProperty(report.FieldOccurrenceDuration, openapi3.NewStringSchema()).
		WithProperty(report.FieldFrequency, openapi3.NewStringSchema()).
		WithProperty(report.FieldVisibleInjuries, openapi3.NewStringSchema().WithEnum(string(report.InjuriesYes), string(report.InjuriesNo))).
		WithProperty(report.FieldPreferredContact, openapi3.NewArraySchema().
			WithItems(openapi3.NewStringSchema().WithEnum(contacts...)).
			WithMinItems(1)).
		WithProperty(report.FieldCurrentSituation, openapi3.NewStringSchema().WithMinLength(5)).
		WithProperty(report.FieldCulprit, openapi3.NewStringSchema().WithMinLength(5))
	reportSchema.Required = report.Fields()

	textResponse := openapi3.NewObjectSchema().WithProperty("text", openapi3.NewStringSchema())
	textResponse.Required = []string{"text"}

	imageRequest := openapi3.NewObjectSchema().
		WithProperty("generatedText", openapi3.NewStringSchema()).
		WithProperty("imagePrompt", openapi3.NewStringSchema())
	imageRequest.AdditionalProperties = openapi3.AdditionalProperties{Has: boolPtr(true)}

	imageResponse := openapi3.NewObjectSchema().WithProperty("images", openapi3.NewArraySchema().
		WithItems(openapi3.NewStringSchema()).
		WithMinItems(3).
		WithMaxItems(3))
	imageResponse.Required = []string{"images"}

	errorResponse := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())
	errorResponse.Required = []string{"error"}

	apiError := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("kind", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("request_id", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Incident report generation API",
			Version: version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"IncidentReport": openapi3.NewSchemaRef("", reportSchema),
				"TextResponse":   openapi3.NewSchemaRef("", textResponse),
				"ImageRequest":   openapi3.NewSchemaRef("", imageRequest),
				"ImageResponse":  openapi3.NewSchemaRef("", imageResponse),
				"ErrorResponse":  openapi3.NewSchemaRef("", errorResponse),
				"APIError":       openapi3.NewSchemaRef("", apiError),
			},
		},
	}

	textOp := openapi3.NewOperation()
	textOp.OperationID = "generateText"
	textOp.Summary = "Render an incident report as a help request"
	textOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(ref("IncidentReport"))}
	textOp.AddResponse(200, openapi3.NewResponse().WithDescription("generated text").WithJSONSchemaRef(ref("TextResponse")))
	textOp.AddResponse(400, openapi3.NewResponse().WithDescription("invalid report").WithJSONSchemaRef(ref("APIError")))
	textOp.AddResponse(429, openapi3.NewResponse().WithDescription("rate limited").WithJSONSchemaRef(ref("APIError")))

	imageOp := openapi3.NewOperation()
	imageOp.OperationID = "generateImages"
	imageOp.Summary = "Return three illustrative image URLs"
	imageOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(ref("ImageRequest"))}
	imageOp.AddResponse(200, openapi3.NewResponse().WithDescription("image URLs").WithJSONSchemaRef(ref("ImageResponse")))
	imageOp.AddResponse(500, openapi3.NewResponse().
		WithDescription(generation.ImageFailureMessage).
		WithJSONSchemaRef(ref("ErrorResponse")))

	encodeForm := openapi3.NewObjectSchema().
		WithProperty("text", openapi3.NewStringSchema()).
		WithProperty("file", openapi3.NewStringSchema().WithFormat("binary"))
	encodeForm.Required = []string{"text", "file"}

	decodeForm := openapi3.NewObjectSchema().
		WithProperty("file", openapi3.NewStringSchema().WithFormat("binary"))
	decodeForm.Required = []string{"file"}

	decodeResponse := openapi3.NewObjectSchema().WithProperty("decoded_text", openapi3.NewStringSchema())
	decodeResponse.Required = []string{"decoded_text"}
	doc.Components.Schemas["DecodeResponse"] = openapi3.NewSchemaRef("", decodeResponse)

	encodeOp := openapi3.NewOperation()
	encodeOp.OperationID = "encodeText"
	encodeOp.Summary = "Hide text in the pixels of an uploaded image"
	encodeOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithFormDataSchema(encodeForm)}
	encodeOp.AddResponse(200, openapi3.NewResponse().
		WithDescription("PNG carrying the text").
		WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema().WithFormat("binary"), []string{"image/png"})))
	encodeOp.AddResponse(400, openapi3.NewResponse().WithDescription("missing or unusable input").WithJSONSchemaRef(ref("APIError")))

	decodeOp := openapi3.NewOperation()
	decodeOp.OperationID = "decodeText"
	decodeOp.Summary = "Read text hidden in an uploaded image"
	decodeOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithFormDataSchema(decodeForm)}
	decodeOp.AddResponse(200, openapi3.NewResponse().WithDescription("hidden text").WithJSONSchemaRef(ref("DecodeResponse")))
	decodeOp.AddResponse(400, openapi3.NewResponse().WithDescription("missing image or no hidden text").WithJSONSchemaRef(ref("APIError")))

	doc.AddOperation("/api/encode", "POST", encodeOp)
	doc.AddOperation("/api/decode", "POST", decodeOp)
	doc.AddOperation("/api/generate-text", "POST", textOp)
	doc.AddOperation("/api/generate-image", "POST", imageOp)
	return doc
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func boolPtr(b bool) *bool { return &b }

package handlers

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/stego"
)

const (
	maxImageUpload  = 10 << 20
	encodedFilename = "encoded_image.png"
)

type decodeResponse struct {
	DecodedText string `json:"decoded_text"`
}

// Stego hides report text inside an uploaded image and reads it back.
type Stego struct {
	log Logger
}

func NewStego(log Logger) *Stego {
	return &Stego{log: log}
}

// Encode takes a multipart form with a text field and a file field and answers with the
// PNG carrying the text.
func (h *Stego) Encode(ctx *gin.Context) {
	const op = "stego.http.encode"

	img, err := h.readImage(ctx, op)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	text, ok := ctx.GetPostForm("text")
	if !ok {
		_ = ctx.Error(errs.Invalid("TEXT_REQUIRED", op, map[string]string{"text": "is required"}))
		return
	}

	encoded, err := stego.Encode(img, text)
	if err != nil {
		_ = ctx.Error(errs.Wrap(op, err))
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, encoded); err != nil {
		_ = ctx.Error(errs.E(errs.KindInternal, "PNG_ENCODE_FAILED", op, "encode png", nil, err))
		return
	}

	h.log.Info(ctx.Request.Context(), "text hidden in image", "text_bytes", len(text), "png_bytes", buf.Len())
	ctx.Header("Content-Disposition", `attachment; filename="`+encodedFilename+`"`)
	ctx.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Decode takes a multipart form with a file field and returns the text hidden in it.
func (h *Stego) Decode(ctx *gin.Context) {
	const op = "stego.http.decode"

	img, err := h.readImage(ctx, op)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	text, err := stego.Decode(img)
	if err != nil {
		_ = ctx.Error(errs.Wrap(op, err))
		return
	}

	h.log.Info(ctx.Request.Context(), "text read from image", "text_bytes", len(text))
	ctx.JSON(http.StatusOK, decodeResponse{DecodedText: text})
}

func (h *Stego) readImage(ctx *gin.Context, op string) (image.Image, error) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxImageUpload)

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, errs.E(errs.KindInvalid, "IMAGE_TOO_LARGE", op, "upload too large",
				map[string]string{"file": "must be at most 10 MB"}, err)
		}
		return nil, errs.E(errs.KindInvalid, "IMAGE_REQUIRED", op, "missing image",
			map[string]string{"file": "is required"}, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errs.E(errs.KindInternal, "UPLOAD_UNREADABLE", op, "open upload", nil, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errs.E(errs.KindInvalid, "IMAGE_INVALID", op, "not an image",
			map[string]string{"file": "must be a PNG or JPEG image"}, err)
	}
	return img, nil
}

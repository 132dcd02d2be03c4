// Package request turns HTTP submissions into dispatch requests.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
)

const (
	TextField  = "text"
	ImageField = "image"

	// multipart overhead allowed on top of the image limit
	formSlack = 1 << 20
)

var ErrInvalidBody = errors.New("invalid request body")

// AskPayload is the JSON form of an ask request. Image is base64, optionally a data: URL.
type AskPayload struct {
	Text      string `json:"text"`
	Image     string `json:"image,omitempty"`
	ImageName string `json:"imageName,omitempty"`
}

// ReadAsk parses a multipart form, urlencoded form or JSON body.
func ReadAsk(w http.ResponseWriter, r *http.Request, images *imagesvc.Processor, maxImageBytes int64) (dispatch.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, BodyLimit(mediaType, maxImageBytes))

	switch mediaType {
	case "application/json":
		var payload AskPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return dispatch.Request{}, fmt.Errorf("%w: %w", ErrInvalidBody, err)
		}
		return FromPayload(payload, images)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxImageBytes + formSlack); err != nil {
			return dispatch.Request{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return readMultipart(r, images)
	default:
		if err := r.ParseForm(); err != nil {
			return dispatch.Request{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return dispatch.Request{Text: strings.TrimSpace(r.PostFormValue(TextField))}, nil
	}
}

// BodyLimit is the largest body accepted for mediaType. JSON carries the image
// as base64, which is a third larger than the raw bytes.
func BodyLimit(mediaType string, maxImageBytes int64) int64 {
	if mediaType == "application/json" {
		return maxImageBytes*4/3 + 4 + formSlack
	}
	return maxImageBytes + formSlack
}

// FromPayload decodes the optional image of a JSON payload.
func FromPayload(payload AskPayload, images *imagesvc.Processor) (dispatch.Request, error) {
	req := dispatch.Request{Text: strings.TrimSpace(payload.Text)}
	if payload.Image == "" {
		return req, nil
	}

	img, err := images.DecodeBase64(payload.ImageName, payload.Image)
	if err != nil {
		return dispatch.Request{}, err
	}
	req.Image = img
	return req, nil
}

func readMultipart(r *http.Request, images *imagesvc.Processor) (dispatch.Request, error) {
	req := dispatch.Request{Text: strings.TrimSpace(r.FormValue(TextField))}

	file, header, err := r.FormFile(ImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return dispatch.Request{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	defer file.Close()

	// An empty file input still arrives as a zero-length part in some browsers.
	if header.Size == 0 {
		return req, nil
	}

	img, err := images.Decode(header.Filename, file)
	if err != nil {
		return dispatch.Request{}, err
	}
	req.Image = img
	return req, nil
}

// IsUserError reports errors the user caused: empty input, bad body or a rejected image.
func IsUserError(err error) bool {
	return errors.Is(err, dispatch.ErrNoInput) ||
		errors.Is(err, ErrInvalidBody) ||
		errors.Is(err, imagesvc.ErrEmpty) ||
		errors.Is(err, imagesvc.ErrTooLarge) ||
		errors.Is(err, imagesvc.ErrUnsupportedFormat) ||
		errors.Is(err, imagesvc.ErrCorrupt)
}

// StatusFor maps a dispatch or intake error to an HTTP status.
func StatusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxBytesErr), errors.Is(err, imagesvc.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// UserMessage is the text shown to the user for err.
func UserMessage(err error) string {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return imagesvc.ErrTooLarge.Error()
	case errors.Is(err, dispatch.ErrNoInput):
		return "Please enter a question or upload an image."
	case errors.Is(err, ErrInvalidBody):
		return ErrInvalidBody.Error()
	case IsUserError(err):
		return err.Error()
	default:
		return fmt.Sprintf("Failed to get a response from the chatbot: %v", err)
	}
}

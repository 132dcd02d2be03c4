package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"github.com/zhouzirui/lumen-chat/backend/internal/config"
)

const (
	defaultMaxWidth     = 1280
	defaultMaxSizeBytes = 10 << 20
	defaultMaxPixels    = 40_000_000
	defaultQuality      = 85
)

var (
	ErrEmpty             = errors.New("image is empty")
	ErrTooLarge          = errors.New("image exceeds the upload size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format, use jpg, jpeg or png")
	ErrCorrupt           = errors.New("image data is corrupt")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// decoded format names as reported by image.Decode
var allowedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// Image is a decoded upload ready to be sent to a vision model.
type Image struct {
	Name     string
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Base64 returns the encoded payload without any prefix.
func (img *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL returns the payload as a data: URL.
func (img *Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + img.Base64()
}

// Processor validates uploads and shrinks wide images before they are forwarded.
type Processor struct {
	maxBytes  int64
	maxWidth  int
	maxPixels int
	quality   int
}

func NewProcessor(cfg config.ImageConfig) *Processor {
	p := &Processor{
		maxBytes:  cfg.MaxBytes,
		maxWidth:  cfg.MaxWidth,
		maxPixels: cfg.MaxPixels,
		quality:   defaultQuality,
	}
	if p.maxBytes <= 0 {
		p.maxBytes = defaultMaxSizeBytes
	}
	if p.maxWidth <= 0 {
		p.maxWidth = defaultMaxWidth
	}
	if p.maxPixels <= 0 {
		p.maxPixels = defaultMaxPixels
	}
	return p
}

// Decode reads an upload named name. The name may be empty when the client
// did not supply one, in which case only the decoded format is checked.
func (p *Processor) Decode(name string, r io.Reader) (*Image, error) {
	if name != "" && !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, ErrUnsupportedFormat
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	return p.decodeBytes(name, data)
}

// DecodeBase64 accepts a raw or data: URL base64 payload.
func (p *Processor) DecodeBase64(name, encoded string) (*Image, error) {
	encoded = strings.TrimSpace(encoded)
	if idx := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && idx > 0 {
		encoded = encoded[idx+1:]
	}
	if encoded == "" {
		return nil, ErrEmpty
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload", ErrUnsupportedFormat)
	}
	return p.Decode(name, bytes.NewReader(data))
}

func (p *Processor) decodeBytes(name string, data []byte) (*Image, error) {
	// Only jpeg and png with a bounded canvas reach the pixel decoder.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !allowedFormats[format] {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedFormat, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrCorrupt, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(p.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("invalid image size: %dx%d", width, height)
	}

	result := &Image{
		Name:     name,
		Data:     data,
		MIMEType: "image/" + format,
		Width:    width,
		Height:   height,
	}

	if width <= p.maxWidth {
		return result, nil
	}

	resizedWidth := p.maxWidth
	resizedHeight := max(1, height*resizedWidth/width)
	resized := transform.Resize(img, resizedWidth, resizedHeight, transform.Linear)

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(p.quality)(&buf, resized); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}

	result.Data = buf.Bytes()
	result.MIMEType = "image/jpeg"
	result.Width = resizedWidth
	result.Height = resizedHeight
	return result, nil
}

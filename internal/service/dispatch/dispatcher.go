package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/lumen-chat/backend/internal/service/ai"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

var (
	// ErrNoInput means neither text nor image was provided. It is a user error, not an API failure.
	ErrNoInput       = errors.New("please enter a question or upload an image")
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Variant names the call path a request took.
type Variant string

const (
	VariantNone       Variant = "none"
	VariantText       Variant = "text"
	VariantImage      Variant = "image"
	VariantMultimodal Variant = "multimodal"
)

// Request is what the user submitted. Either field may be absent.
type Request struct {
	Text  string
	Image *imagesvc.Image
}

// Result is success-with-text or failure-with-reason.
type Result struct {
	Text    string
	Variant Variant
	Err     error
}

// OK reports whether a reply was produced.
func (r Result) OK() bool {
	return r.Err == nil
}

// Dispatcher selects the call variant for a request and forwards it.
type Dispatcher struct {
	generator ai.Generator
}

func New(generator ai.Generator) *Dispatcher {
	return &Dispatcher{generator: generator}
}

// Select picks the variant without calling anything. Text that is empty after
// trimming whitespace counts as absent, so "   " alone selects VariantNone.
func Select(req Request) Variant {
	hasText := strings.TrimSpace(req.Text) != ""
	hasImage := req.Image != nil

	switch {
	case hasText && hasImage:
		return VariantMultimodal
	case hasText:
		return VariantText
	case hasImage:
		return VariantImage
	default:
		return VariantNone
	}
}

// Dispatch invokes exactly one generator variant, or none when the request is empty.
// Failures are returned in the Result and never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	variant := Select(req)
	text := strings.TrimSpace(req.Text)

	var (
		reply string
		err   error
	)
	switch variant {
	case VariantMultimodal:
		reply, err = d.generator.GenerateMultimodal(ctx, text, req.Image)
	case VariantText:
		reply, err = d.generator.GenerateText(ctx, text)
	case VariantImage:
		reply, err = d.generator.GenerateImage(ctx, req.Image)
	default:
		return Result{Variant: VariantNone, Err: ErrNoInput}
	}

	entry := logger.WithFields(logrus.Fields{"variant": variant})
	if err != nil {
		entry.Errorf("[dispatch] generator failed: %v", err)
		return Result{Variant: variant, Err: fmt.Errorf("failed to get a response: %w", err)}
	}
	if strings.TrimSpace(reply) == "" {
		entry.Warnf("[dispatch] generator returned empty text")
		return Result{Variant: variant, Err: ErrEmptyResponse}
	}

	entry.Infof("[dispatch] reply received, length=%d", len(reply))
	return Result{Text: reply, Variant: variant}
}

// Recorder receives the exchange after a successful dispatch.
type Recorder interface {
	RecordExchange(text string, hasImage bool, reply string)
}

// Ask dispatches req and, on success only, records the exchange.
func (d *Dispatcher) Ask(ctx context.Context, rec Recorder, req Request) Result {
	result := d.Dispatch(ctx, req)
	if result.OK() {
		rec.RecordExchange(req.Text, req.Image != nil, result.Text)
	}
	return result
}

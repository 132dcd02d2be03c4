package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/zhouzirui/lumen-chat/backend/internal/config"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

// OpenAIGenerator talks to the OpenAI Responses API.
type OpenAIGenerator struct {
	client      *openai.Client
	cfg         config.AIConfig
	model       string
	visionModel string
}

// NewOpenAIGenerator builds a Responses API client. opts are applied after the
// configured key, base URL and timeout, so they can override them.
func NewOpenAIGenerator(cfg config.AIConfig, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingCredential
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	clientOpts = append(clientOpts, opts...)

	client := openai.NewClient(clientOpts...)

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	return &OpenAIGenerator{
		client:      &client,
		cfg:         cfg,
		model:       cfg.Model,
		visionModel: visionModel,
	}, nil
}

// GenerateText sends a plain prompt to the text model.
func (c *OpenAIGenerator) GenerateText(ctx context.Context, text string) (string, error) {
	return c.send(ctx, c.model, buildInput(text, nil))
}

// GenerateImage sends only the image to the vision model.
func (c *OpenAIGenerator) GenerateImage(ctx context.Context, img *imagesvc.Image) (string, error) {
	return c.send(ctx, c.visionModel, buildInput("", img))
}

// GenerateMultimodal sends the prompt followed by the image to the vision model.
func (c *OpenAIGenerator) GenerateMultimodal(ctx context.Context, text string, img *imagesvc.Image) (string, error) {
	return c.send(ctx, c.visionModel, buildInput(text, img))
}

func (c *OpenAIGenerator) send(ctx context.Context, modelName string, content responses.ResponseInputMessageContentListParam) (string, error) {
	resp, err := c.client.Responses.New(ctx, c.params(modelName, content))
	if err != nil {
		return "", fmt.Errorf("openai responses request failed: %w", err)
	}

	text := resp.OutputText()
	logger.Debugf("[ai] openai response model=%s length=%d", modelName, len(text))
	return text, nil
}

func (c *OpenAIGenerator) params(modelName string, content responses.ResponseInputMessageContentListParam) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(modelName),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if c.cfg.SystemPrompt != "" {
		params.Instructions = openai.String(c.cfg.SystemPrompt)
	}
	if c.cfg.Temperature != nil {
		params.Temperature = openai.Float(*c.cfg.Temperature)
	}
	if c.cfg.TopP != nil {
		params.TopP = openai.Float(*c.cfg.TopP)
	}
	if c.cfg.MaxTokens != nil {
		params.MaxOutputTokens = openai.Int(int64(*c.cfg.MaxTokens))
	}
	return params
}

// buildInput lays out the user message: text first, then the image.
func buildInput(text string, img *imagesvc.Image) responses.ResponseInputMessageContentListParam {
	content := make(responses.ResponseInputMessageContentListParam, 0, 2)
	if text != "" {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputText: &responses.ResponseInputTextParam{Text: text},
		})
	}
	if img != nil {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				Detail:   responses.ResponseInputImageDetailAuto,
				ImageURL: openai.String(img.DataURL()),
			},
		})
	}
	return content
}

package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

// EinoGenerator runs prompts through eino chains, one over the text model and
// one over the vision model.
type EinoGenerator struct {
	systemPrompt string
	textChain    compose.Runnable[map[string]any, *schema.Message]
	visionChain  compose.Runnable[map[string]any, *schema.Message]
}

// NewEinoGenerator compiles both chains. textModel and visionModel may be the same model.
func NewEinoGenerator(ctx context.Context, textModel, visionModel model.BaseChatModel, systemPrompt string) (*EinoGenerator, error) {
	textChain, err := compileChain(ctx, textModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compile text chain: %w", err)
	}

	visionChain, err := compileChain(ctx, visionModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compile vision chain: %w", err)
	}

	return &EinoGenerator{
		systemPrompt: systemPrompt,
		textChain:    textChain,
		visionChain:  visionChain,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.BaseChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("input", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// GenerateText sends a plain prompt to the text model.
func (g *EinoGenerator) GenerateText(ctx context.Context, text string) (string, error) {
	return g.invoke(ctx, g.textChain, "text", schema.UserMessage(text))
}

// GenerateImage sends only the image to the vision model.
func (g *EinoGenerator) GenerateImage(ctx context.Context, img *imagesvc.Image) (string, error) {
	return g.invoke(ctx, g.visionChain, "image", userMessageWithImage("", img))
}

// GenerateMultimodal sends the prompt and the image together to the vision model.
func (g *EinoGenerator) GenerateMultimodal(ctx context.Context, text string, img *imagesvc.Image) (string, error) {
	return g.invoke(ctx, g.visionChain, "multimodal", userMessageWithImage(text, img))
}

func (g *EinoGenerator) invoke(ctx context.Context, chain compose.Runnable[map[string]any, *schema.Message], variant string, input *schema.Message) (string, error) {
	response, err := chain.Invoke(ctx, map[string]any{
		"system": g.systemPrompt,
		"input":  []*schema.Message{input},
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	logger.Debugf("[ai] generated %s response, length=%d", variant, len(response.Content))
	return response.Content, nil
}

func userMessageWithImage(text string, img *imagesvc.Image) *schema.Message {
	parts := make([]schema.ChatMessagePart, 0, 2)
	if text != "" {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: text,
		})
	}
	parts = append(parts, schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeImageURL,
		ImageURL: &schema.ChatMessageImageURL{
			URL:    img.DataURL(),
			Detail: schema.ImageURLDetailAuto,
		},
	})

	return &schema.Message{
		Role:         schema.User,
		MultiContent: parts,
	}
}

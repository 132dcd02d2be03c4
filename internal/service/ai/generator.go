package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/lumen-chat/backend/internal/config"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
)

// Generator is the hosted model seen through its three call variants.
type Generator interface {
	GenerateText(ctx context.Context, text string) (string, error)
	GenerateImage(ctx context.Context, img *imagesvc.Image) (string, error)
	GenerateMultimodal(ctx context.Context, text string, img *imagesvc.Image) (string, error)
}

// New builds the generator for the configured provider.
func New(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderArk, config.ProviderQwen:
		textModel, err := cfg.NewChatModel(ctx, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create text model: %w", err)
		}

		visionModel := textModel
		if cfg.VisionModel != "" && cfg.VisionModel != cfg.Model {
			visionModel, err = cfg.NewChatModel(ctx, cfg.VisionModel)
			if err != nil {
				return nil, fmt.Errorf("failed to create vision model: %w", err)
			}
		}

		return NewEinoGenerator(ctx, textModel, visionModel, cfg.SystemPrompt)
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

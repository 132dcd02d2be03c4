package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/cloudwego/eino/components/model"
)

// 支持的模型提供方。
const (
	ProviderArk    = "ark"
	ProviderQwen   = "qwen"
	ProviderOpenAI = "openai"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer the user's question, and when an image is provided describe or analyse it as asked."

// ErrMissingCredential 表示当前提供方的 API 凭证未设置，属于启动期致命错误。
var ErrMissingCredential = errors.New("api credential is not set")

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Session SessionConfig
	Image   ImageConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	image, err := loadImageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Session: session,
		Image:   image,
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("CORS_ALLOWED_ORIGINS")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string
	APIKey       string
	Model        string
	VisionModel  string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	SystemPrompt string
	Timeout      time.Duration
}

// SessionConfig 描述会话生命周期。
type SessionConfig struct {
	TTL time.Duration
}

// ImageConfig 限制上传图片的大小与宽度。
type ImageConfig struct {
	MaxBytes  int64
	MaxWidth  int
	MaxPixels int
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

// NewChatModel 使用配置为指定模型名创建 eino 聊天模型，仅适用于 ark 与 qwen。
func (c AIConfig) NewChatModel(ctx context.Context, modelName string) (model.ChatModel, error) {
	if c.APIKey == "" {
		return nil, ErrMissingCredential
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required for provider %s", c.Provider)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	switch c.Provider {
	case ProviderArk:
		var timeout *time.Duration
		if c.Timeout > 0 {
			val := c.Timeout
			timeout = &val
		}
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			Model:       modelName,
			MaxTokens:   c.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
			Timeout:     timeout,
		})
	case ProviderQwen:
		return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
			BaseURL:     c.BaseURL,
			APIKey:      c.APIKey,
			Model:       modelName,
			MaxTokens:   c.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
			Timeout:     c.Timeout,
		})
	default:
		return nil, fmt.Errorf("provider %q does not use eino chat models", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:     strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderArk)),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		SystemPrompt: getEnvOrDefault("AI_SYSTEM_PROMPT", defaultSystemPrompt),
		Timeout:      timeout,
	}

	var keyName string
	switch cfg.Provider {
	case ProviderArk:
		keyName = "ARK_API_KEY"
		cfg.Model = getEnvOrDefault("ARK_MODEL", "doubao-1-5-pro-32k-250115")
		cfg.VisionModel = getEnvOrDefault("ARK_VISION_MODEL", "doubao-1-5-vision-pro-32k-250115")
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	case ProviderQwen:
		keyName = "QWEN_API_KEY"
		cfg.Model = getEnvOrDefault("QWEN_MODEL", "qwen-plus")
		cfg.VisionModel = getEnvOrDefault("QWEN_VISION_MODEL", "qwen-vl-plus")
		cfg.BaseURL = getEnvOrDefault("QWEN_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	case ProviderOpenAI:
		keyName = "OPENAI_API_KEY"
		cfg.Model = getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
		cfg.VisionModel = getEnvOrDefault("OPENAI_VISION_MODEL", cfg.Model)
		cfg.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", "")
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", cfg.Provider)
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv(keyName))
	if cfg.APIKey == "" {
		return AIConfig{}, fmt.Errorf("%s: %w", keyName, ErrMissingCredential)
	}

	return cfg, nil
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseDurationEnv("SESSION_TTL", 2*time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{TTL: ttl}, nil
}

func loadImageConfig() (ImageConfig, error) {
	cfg := ImageConfig{MaxBytes: 10 << 20, MaxWidth: 1280, MaxPixels: 40_000_000}

	maxBytes, err := parseOptionalIntEnv("IMAGE_MAX_BYTES")
	if err != nil {
		return ImageConfig{}, err
	}
	if maxBytes != nil && *maxBytes > 0 {
		cfg.MaxBytes = int64(*maxBytes)
	}

	maxWidth, err := parseOptionalIntEnv("IMAGE_MAX_WIDTH")
	if err != nil {
		return ImageConfig{}, err
	}
	if maxWidth != nil && *maxWidth > 0 {
		cfg.MaxWidth = *maxWidth
	}

	maxPixels, err := parseOptionalIntEnv("IMAGE_MAX_PIXELS")
	if err != nil {
		return ImageConfig{}, err
	}
	if maxPixels != nil && *maxPixels > 0 {
		cfg.MaxPixels = *maxPixels
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseListEnv 解析逗号分隔的列表，忽略空项。
func parseListEnv(key string) []string {
	var values []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

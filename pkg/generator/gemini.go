package generator

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultTextModel   = "gemini-2.0-flash"
	DefaultImageModel  = "gemini-2.0-flash-preview-image-generation"
	defaultImageMIME   = "image/png"
	defaultTemperature = float32(0.7)
)

// GeminiClient は genai クライアントをラップし、TextGenerator と ImageGenerator を実装します。
type GeminiClient struct {
	client      *genai.Client
	textModel   string
	imageModel  string
	temperature *float32
}

// GeminiConfig は GeminiClient の初期化パラメータです。
type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Temperature *float32
}

// NewGeminiClient は Gemini API 用のクライアントを初期化します。
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini APIキーは必須です")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	gc := &GeminiClient{
		client:      client,
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		temperature: cfg.Temperature,
	}
	if gc.textModel == "" {
		gc.textModel = DefaultTextModel
	}
	if gc.imageModel == "" {
		gc.imageModel = DefaultImageModel
	}
	if gc.temperature == nil {
		gc.temperature = genai.Ptr(defaultTemperature)
	}
	return gc, nil
}

// GenerateText はテキストモデルを呼び出し、最初の候補のテキストを返します。
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("テキスト生成に失敗しました (model: %s): %w", c.textModel, err)
	}
	return resp.Text(), nil
}

// GenerateImage は画像モデルを TEXT+IMAGE モダリティで呼び出し、最初のインライン画像を返します。
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*ImageData, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	})
	if err != nil {
		return nil, fmt.Errorf("画像生成に失敗しました (model: %s): %w", c.imageModel, err)
	}
	return extractInlineImage(resp), nil
}

// extractInlineImage はレスポンスの最初の候補からインライン画像を取り出します。
func extractInlineImage(resp *genai.GenerateContentResponse) *ImageData {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil
	}
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = defaultImageMIME
		}
		return &ImageData{Data: part.InlineData.Data, MIMEType: mime}
	}
	return nil
}

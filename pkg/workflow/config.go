package workflow

import (
	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/generator"
)

// デフォルト値の定義
const (
	DefaultLibraryDir        = "library"
	DefaultGeminiTemperature = float32(0.7)
)

// Config は Manager の各工程を動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey string
	TextModel    string
	ImageModel   string
	Temperature  float32

	// --- Storage Settings ---
	ImagesDir  string
	LibraryDir string

	// --- Generation Settings ---
	Pacing generator.Pacing
}

// NewConfig はデフォルト値で初期化された Config に API キーをセットして返します。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		TextModel:   generator.DefaultTextModel,
		ImageModel:  generator.DefaultImageModel,
		Temperature: DefaultGeminiTemperature,
		ImagesDir:   asset.DefaultImageDir,
		LibraryDir:  DefaultLibraryDir,
		Pacing:      generator.DefaultPacing(),
	}
}

package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/server"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/store"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/httpkit"
	"google.golang.org/genai"
)

// BuildApp は、設定から各ストアと Manager を組み立て、HTTP サーバーまで配線するのだ。
func BuildApp(ctx context.Context, cfg config.Config) (*App, error) {
	// 1. ストア
	sessions := store.NewMemorySessionStore(cfg.SessionTTL)
	library, err := store.NewLibraryStore(cfg.LibraryDir)
	if err != nil {
		return nil, fmt.Errorf("ライブラリストアの初期化に失敗しました: %w", err)
	}
	settings, err := store.NewSettingsStore(cfg.SettingsDir)
	if err != nil {
		return nil, fmt.Errorf("設定ストアの初期化に失敗しました: %w", err)
	}

	// 2. Manager (API キーがあれば Gemini クライアントも生成される)
	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg.Workflow(),
		Sessions:   sessions,
		Library:    library,
		HTTPClient: httpkit.New(publisher.DefaultFetchTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("Manager の初期化に失敗しました: %w", err)
	}
	if !manager.GeminiConfigured() {
		slog.WarnContext(ctx, "GEMINI_API_KEY が未設定のため、生成系のエンドポイントは 500 を返すのだ")
	}

	// 3. HTTP サーバー
	srv, err := server.New(server.Options{
		Addr:           cfg.Addr(),
		AllowedOrigins: []string{cfg.FrontendURL},
		Limits:         server.DefaultLimits(),
	}, server.Deps{
		Manager:  manager,
		Library:  library,
		Settings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP サーバーの初期化に失敗しました: %w", err)
	}

	return &App{
		Config:   cfg,
		Manager:  manager,
		Sessions: sessions,
		Library:  library,
		Settings: settings,
		Server:   srv,
	}, nil
}

// BuildPipeline は、CLI で一気通貫の生成を行う Pipeline を構築するのだ。
func BuildPipeline(ctx context.Context, cfg config.Config, outputDir string) (*pipeline.Pipeline, error) {
	composer, err := BuildComposer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(composer, outputDir)
}

// BuildComposer は Gemini クライアントとプロンプトビルダーを束ねた ComicComposer を構築するのだ。
func BuildComposer(ctx context.Context, cfg config.Config) (*generator.ComicComposer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, workflow.ErrAPIKeyMissing
	}

	client, err := generator.NewGeminiClient(ctx, generator.GeminiConfig{
		APIKey:      cfg.GeminiAPIKey,
		TextModel:   cfg.GeminiModel,
		ImageModel:  cfg.ImageModel,
		Temperature: genai.Ptr(workflow.DefaultGeminiTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini クライアントの初期化に失敗しました: %w", err)
	}

	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	return generator.NewComicComposer(client, client, pb, generator.DefaultPacing()), nil
}

package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/store"

	"github.com/shouni/go-http-kit/httpkit"
	"google.golang.org/genai"
)

// ErrAPIKeyMissing は、オラクルを必要とする工程で API キーが設定されていないことを示します。
var ErrAPIKeyMissing = errors.New("Gemini API key not configured")

// ManagerArgs は Manager の依存関係です。
// TextGenerator と ImageGenerator が nil で API キーがある場合は Gemini クライアントを生成します。
type ManagerArgs struct {
	Config         Config
	Sessions       store.SessionStore
	Library        *store.LibraryStore
	TextGenerator  generator.TextGenerator
	ImageGenerator generator.ImageGenerator
	PromptBuilder  prompts.PromptBuilder
	HTTPClient     httpkit.Requester // 外部 URL の画像取得に使うクライアント
}

// Manager は、ストーリーからコミックを作る各工程をセッション単位で実行するサービス層です。
type Manager struct {
	cfg       Config
	sessions  store.SessionStore
	library   *store.LibraryStore
	composer  *generator.ComicComposer
	prompts   *generator.PromptGenerator
	panels    *generator.PanelGenerator
	titles    *publisher.TitleGenerator
	assembler *publisher.PDFAssembler
	oracle    bool
}

// New は、設定と依存関係を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Sessions == nil {
		return nil, fmt.Errorf("SessionStore は必須です")
	}
	if args.Library == nil {
		return nil, fmt.Errorf("LibraryStore は必須です")
	}

	pb, err := initializePromptBuilder(args.PromptBuilder)
	if err != nil {
		return nil, err
	}

	textGen, imgGen := args.TextGenerator, args.ImageGenerator
	if (textGen == nil || imgGen == nil) && args.Config.GeminiAPIKey != "" {
		client, err := initializeAIClient(ctx, args.Config)
		if err != nil {
			return nil, err
		}
		if textGen == nil {
			textGen = client
		}
		if imgGen == nil {
			imgGen = client
		}
	}

	composer := generator.NewComicComposer(textGen, imgGen, pb, args.Config.Pacing)
	oracle := textGen != nil && imgGen != nil

	var titleText generator.TextGenerator
	if oracle {
		titleText = textGen
	}

	return &Manager{
		cfg:       args.Config,
		sessions:  args.Sessions,
		library:   args.Library,
		composer:  composer,
		prompts:   generator.NewPromptGenerator(composer),
		panels:    generator.NewPanelGenerator(composer, args.Config.ImagesDir),
		titles:    publisher.NewTitleGenerator(titleText, pb),
		assembler: publisher.NewPDFAssembler(publisher.NewImageFetcher(args.HTTPClient)),
		oracle:    oracle,
	}, nil
}

// GeminiConfigured はオラクルが利用可能かを返します。
func (m *Manager) GeminiConfigured() bool {
	return m.oracle
}

// Config は Manager の設定を返します。
func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) requireOracle() error {
	if !m.oracle {
		return ErrAPIKeyMissing
	}
	return nil
}

// initializeAIClient は Gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, cfg Config) (*generator.GeminiClient, error) {
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultGeminiTemperature
	}
	client, err := generator.NewGeminiClient(ctx, generator.GeminiConfig{
		APIKey:      cfg.GeminiAPIKey,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		Temperature: genai.Ptr(temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// initializePromptBuilder は PromptBuilder を初期化します。
// 引数として既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializePromptBuilder(pb prompts.PromptBuilder) (prompts.PromptBuilder, error) {
	if pb != nil {
		return pb, nil
	}

	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return builder, nil
}

package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"

	"golang.org/x/sync/errgroup"
)

// PromptGenerator は、スタイルガイドと各シーンのパネルプロンプトをテキストオラクルで生成します。
type PromptGenerator struct {
	composer *ComicComposer
}

// NewPromptGenerator は PromptGenerator の新しいインスタンスを初期化します。
func NewPromptGenerator(composer *ComicComposer) *PromptGenerator {
	return &PromptGenerator{composer: composer}
}

// StyleGuide はストーリーと画風からビジュアル専用のスタイルガイドを生成します。
// オラクルの失敗時は空文字列を返し、呼び出し元の処理は継続させます。
func (g *PromptGenerator) StyleGuide(ctx context.Context, story, style string) (string, error) {
	data := prompts.TemplateData{Story: story, Style: style}
	if s, ok := domain.FindStyle(style); ok {
		data.StyleDescription = s.Description
	}

	prompt, err := g.composer.PromptBuilder.Build(prompts.ModeStyleGuide, data)
	if err != nil {
		return "", fmt.Errorf("スタイルガイドのプロンプト生成に失敗しました: %w", err)
	}

	startTime := time.Now()
	guide, err := g.composer.TextGenerator.GenerateText(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		slog.WarnContext(ctx, "スタイルガイドの生成に失敗したため空で続行します", "error", err)
		return "", nil
	}

	guide = strings.TrimSpace(guide)
	slog.InfoContext(ctx, "スタイルガイドを生成しました",
		"style", style,
		"length", len(guide),
		"duration", time.Since(startTime).Round(time.Millisecond))
	return guide, nil
}

// PanelPrompts は各シーンのパネルプロンプトを並行数を制限して生成します。
// 結果はシーンと同じ順序・同じ長さで、失敗したスロットは空文字列になります。
func (g *PromptGenerator) PanelPrompts(ctx context.Context, scenes []string, styleGuide, style string) ([]string, error) {
	results := make([]string, len(scenes))
	if len(scenes) == 0 {
		return results, nil
	}

	limit := g.composer.Pacing.PromptConcurrency
	if limit <= 0 {
		limit = DefaultPacing().PromptConcurrency
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i, scene := range scenes {
		prevScene := ""
		if i > 0 {
			prevScene = scenes[i-1]
		}

		eg.Go(func() error {
			// 個々の失敗はスロットを空にするだけで、バッチ全体は止めない
			results[i] = g.panelPrompt(egCtx, i, scene, prevScene, styleGuide, style)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, p := range results {
		if p == "" {
			failed++
		}
	}
	slog.InfoContext(ctx, "パネルプロンプトの生成が完了しました", "total", len(results), "failed", failed)
	return results, nil
}

// panelPrompt は 1 シーン分のプロンプトを生成します。失敗時は空文字列を返します。
func (g *PromptGenerator) panelPrompt(ctx context.Context, index int, scene, prevScene, styleGuide, style string) string {
	logger := slog.With("panel_index", index)

	prompt, err := g.composer.PromptBuilder.Build(prompts.ModePanel, prompts.TemplateData{
		Style:       style,
		StyleGuide:  styleGuide,
		Scene:       scene,
		PrevScene:   prevScene,
		PanelNumber: index + 1,
	})
	if err != nil {
		logger.Error("パネルプロンプトのテンプレート実行に失敗しました", "error", err)
		return ""
	}

	startTime := time.Now()
	text, err := g.composer.TextGenerator.GenerateText(ctx, prompt)
	if err != nil {
		logger.Warn("パネルプロンプトの生成に失敗しました", "error", err)
		return ""
	}

	logger.Info("パネルプロンプトを生成しました", "duration", time.Since(startTime).Round(time.Millisecond))
	return strings.TrimSpace(text)
}

package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/prompts"

	"github.com/cenkalti/backoff/v4"
)

var (
	// errNoImage はオラクルの応答に画像が含まれていなかったことを示します。
	errNoImage = errors.New("応答に画像データが含まれていません")
	// errImageTooSmall は画像データが小さすぎて破損が疑われることを示します。
	errImageTooSmall = errors.New("画像データが小さすぎます")
)

// PanelGenerator は、プロンプトを 1 件ずつ順番に画像化し、パネル番号付きのファイルとして保存します。
type PanelGenerator struct {
	composer  *ComicComposer
	outputDir string
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPanelGenerator は PanelGenerator の新しいインスタンスを初期化します。
func NewPanelGenerator(composer *ComicComposer, outputDir string) *PanelGenerator {
	return &PanelGenerator{
		composer:  composer,
		outputDir: outputDir,
		sleep:     sleepContext,
	}
}

// PanelResult は 1 パネル分の生成結果です。
type PanelResult struct {
	Index       int
	Path        string
	Placeholder bool
	Bytes       int
}

// Execute は、古いパネルを削除した後にプロンプトを逐次処理し、パネル番号順のファイルパスを返します。
// 個々のパネルの失敗はプレースホルダー画像で補うため、エラーになるのは設定不備とキャンセルのみです。
func (pg *PanelGenerator) Execute(ctx context.Context, panelPrompts []string) ([]string, error) {
	results, err := pg.Generate(ctx, panelPrompts)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(results))
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	return asset.SortPanelPaths(paths), nil
}

// Generate は Execute と同じ処理を行い、パネルごとの詳細な結果を返します。
func (pg *PanelGenerator) Generate(ctx context.Context, panelPrompts []string) ([]PanelResult, error) {
	if pg.composer == nil || pg.composer.ImageGenerator == nil {
		return nil, fmt.Errorf("ImageGenerator は必須です")
	}

	// 1. 出力ディレクトリの準備と前回のパネルの掃除
	if err := os.MkdirAll(pg.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("画像ディレクトリの作成に失敗しました (%s): %w", pg.outputDir, err)
	}
	if removed, err := asset.CleanupPanels(pg.outputDir); err != nil {
		slog.WarnContext(ctx, "古いパネル画像の掃除に失敗しました", "error", err)
	} else if removed > 0 {
		slog.InfoContext(ctx, "古いパネル画像を削除しました", "count", removed)
	}

	slog.InfoContext(ctx, "パネル画像の生成を開始します", "panels", len(panelPrompts))
	startTime := time.Now()

	// 2. レート制限を避けるため 1 件ずつ順番に処理する
	results := make([]PanelResult, 0, len(panelPrompts))
	for i, prompt := range panelPrompts {
		if delay := pg.composer.Pacing.PanelDelay(i); delay > 0 {
			slog.DebugContext(ctx, "レート制限回避のため待機します", "panel_index", i, "delay", delay)
			if err := pg.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, err := pg.generatePanel(ctx, i, prompt)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	placeholders := 0
	for _, r := range results {
		if r.Placeholder {
			placeholders++
		}
	}
	slog.InfoContext(ctx, "パネル画像の生成が完了しました",
		"generated", len(results),
		"requested", len(panelPrompts),
		"placeholders", placeholders,
		"duration", time.Since(startTime).Round(time.Millisecond))
	return results, nil
}

// generatePanel は 1 パネルを生成して保存します。リトライを使い切った場合はプレースホルダーを保存します。
func (pg *PanelGenerator) generatePanel(ctx context.Context, index int, prompt string) (PanelResult, error) {
	logger := slog.With("panel_index", index)
	path := asset.PanelPath(pg.outputDir, index)
	startTime := time.Now()

	data, err := pg.requestWithRetry(ctx, logger, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PanelResult{}, ctxErr
		}

		logger.Warn("すべての試行に失敗したためプレースホルダー画像を使用します", "error", err)
		placeholder, renderErr := RenderPlaceholder(prompt)
		if renderErr != nil {
			return PanelResult{}, fmt.Errorf("panel %d のプレースホルダー生成に失敗しました: %w", index, renderErr)
		}
		if err := os.WriteFile(path, placeholder, 0o644); err != nil {
			return PanelResult{}, fmt.Errorf("panel %d の保存に失敗しました: %w", index, err)
		}
		return PanelResult{Index: index, Path: path, Placeholder: true, Bytes: len(placeholder)}, nil
	}

	if err := os.WriteFile(path, data.Data, 0o644); err != nil {
		return PanelResult{}, fmt.Errorf("panel %d の保存に失敗しました: %w", index, err)
	}
	logger.Info("パネル画像を保存しました",
		"path", path,
		"size_kb", len(data.Data)/1024,
		"duration", time.Since(startTime).Round(time.Millisecond))
	return PanelResult{Index: index, Path: path, Bytes: len(data.Data)}, nil
}

// requestWithRetry は、画像オラクルを最大 MaxRetries+1 回呼び出します。
// 最後の試行で得られた小さすぎる画像は警告付きで受け入れます。
func (pg *PanelGenerator) requestWithRetry(ctx context.Context, logger *slog.Logger, prompt string) (*ImageData, error) {
	pacing := pg.composer.Pacing

	imagePrompt, err := pg.composer.PromptBuilder.Build(prompts.ModeImage, prompts.TemplateData{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("画像プロンプトの生成に失敗しました: %w", err)
	}

	policy := &panelBackOff{pacing: pacing}
	attempt := 0

	operation := func() (*ImageData, error) {
		current := attempt
		attempt++
		isLast := uint64(current) >= pacing.MaxRetries

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if pacing.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, pacing.CallTimeout)
		}
		defer cancel()

		data, err := pg.composer.ImageGenerator.GenerateImage(callCtx, imagePrompt)
		if err != nil {
			policy.lastErr = err
			return nil, err
		}
		if data == nil || len(data.Data) == 0 {
			policy.lastErr = errNoImage
			return nil, errNoImage
		}
		if len(data.Data) < pacing.MinImageBytes {
			if !isLast {
				policy.lastErr = errImageTooSmall
				return nil, fmt.Errorf("%w (%d bytes)", errImageTooSmall, len(data.Data))
			}
			logger.Warn("最後の試行のため小さい画像をそのまま採用します", "bytes", len(data.Data))
		}
		return data, nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("画像生成をリトライします",
			"attempt", attempt,
			"max_retries", pacing.MaxRetries,
			"wait", wait,
			"rate_limited", IsRateLimitError(err),
			"error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, pacing.MaxRetries), ctx)
	return backoff.RetryNotifyWithData[*ImageData](operation, b, notify)
}

// panelBackOff は直前の失敗の種類に応じて待ち時間を決める backoff.BackOff です。
// 応答が空・小さすぎる場合は即座に、API エラーの場合は段階的に、レート制限の場合はさらに長く待ちます。
type panelBackOff struct {
	pacing  Pacing
	attempt int
	lastErr error
}

func (b *panelBackOff) Reset() {
	b.attempt = 0
	b.lastErr = nil
}

func (b *panelBackOff) NextBackOff() time.Duration {
	attempt := b.attempt
	b.attempt++

	if errors.Is(b.lastErr, errNoImage) || errors.Is(b.lastErr, errImageTooSmall) {
		return 0
	}
	return b.pacing.RetryDelay(attempt, IsRateLimitError(b.lastErr))
}

// sleepContext は ctx がキャンセルされるまで最大 d 待機します。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

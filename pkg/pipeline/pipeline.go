package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/publisher"
)

const defaultScriptFileName = "comic_script.md"

// Input はパイプラインへの入力です。
type Input struct {
	Story            string
	Style            string
	Title            string // 空の場合はオラクルで生成します
	MaxWordsPerScene int
}

// Result はパイプラインの実行結果です。
type Result struct {
	Title      string
	Scenes     []string
	StyleGuide string
	Prompts    []string
	ImagePaths []string
	PDFPath    string
	ScriptPath string
	Pages      int
}

// Pipeline は、ストーリーから PDF までの全工程を一気通貫で実行します。
type Pipeline struct {
	prompts   *generator.PromptGenerator
	panels    *generator.PanelGenerator
	titles    *publisher.TitleGenerator
	assembler *publisher.PDFAssembler
	script    *publisher.ScriptPublisher
	outputDir string
}

// NewPipeline は、ComicComposer と出力先ディレクトリから Pipeline を生成します。
// パネル画像は <outputDir>/images に、PDF と台本は outputDir に保存されます。
func NewPipeline(composer *generator.ComicComposer, outputDir string) (*Pipeline, error) {
	if composer == nil || composer.TextGenerator == nil || composer.ImageGenerator == nil {
		return nil, fmt.Errorf("TextGenerator と ImageGenerator は必須です")
	}
	script, err := publisher.NewScriptPublisher()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		prompts:   generator.NewPromptGenerator(composer),
		panels:    generator.NewPanelGenerator(composer, filepath.Join(outputDir, "images")),
		titles:    publisher.NewTitleGenerator(composer.TextGenerator, composer.PromptBuilder),
		assembler: publisher.NewPDFAssembler(nil),
		script:    script,
		outputDir: outputDir,
	}, nil
}

// Execute はシーン分割からPDF生成までを実行します。
func (pl *Pipeline) Execute(ctx context.Context, in Input) (Result, error) {
	startTime := time.Now()

	// 1. シーン分割
	scenes := parser.SplitScenes(in.Story, in.MaxWordsPerScene)
	if len(scenes) == 0 {
		return Result{}, fmt.Errorf("ストーリーが空です")
	}
	slog.InfoContext(ctx, "Phase 1: シーンを分割しました", "scenes", len(scenes))

	// 2. スタイルガイドとパネルプロンプト
	styleGuide, err := pl.prompts.StyleGuide(ctx, in.Story, in.Style)
	if err != nil {
		return Result{}, fmt.Errorf("スタイルガイドの生成に失敗しました: %w", err)
	}
	panelPrompts, err := pl.prompts.PanelPrompts(ctx, scenes, styleGuide, in.Style)
	if err != nil {
		return Result{}, fmt.Errorf("パネルプロンプトの生成に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "Phase 2: プロンプトを生成しました", "prompts", len(panelPrompts))

	// 3. パネル画像
	imagePaths, err := pl.panels.Execute(ctx, panelPrompts)
	if err != nil {
		return Result{}, fmt.Errorf("パネル画像の生成に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "Phase 3: パネル画像を生成しました", "images", len(imagePaths))

	// 4. タイトルと PDF
	title := in.Title
	if title == "" {
		title = pl.titles.Generate(ctx, in.Story, in.Style)
	}
	sources := make([]publisher.ImageSource, 0, len(imagePaths))
	for _, p := range imagePaths {
		sources = append(sources, publisher.ImageSource{Path: p})
	}
	pdfPath := filepath.Join(pl.outputDir, publisher.BuildPDFFileName(title))
	pages, err := pl.assembler.WithTitle(title).AssembleFile(ctx, sources, pdfPath)
	if err != nil {
		return Result{}, fmt.Errorf("PDF の生成に失敗しました: %w", err)
	}

	// 5. 台本の保存
	scriptPath := filepath.Join(pl.outputDir, defaultScriptFileName)
	script := pl.script.Build(domain.LibraryItem{
		Title:      title,
		Style:      in.Style,
		Scenes:     scenes,
		StyleGuide: styleGuide,
		Prompts:    panelPrompts,
		Images:     relativeImagePaths(pl.outputDir, imagePaths),
		PDFPath:    filepath.Base(pdfPath),
		CreatedAt:  startTime,
	})
	if err := asset.WriteFileAtomic(scriptPath, []byte(script)); err != nil {
		return Result{}, fmt.Errorf("台本の保存に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "Phase 4: PDF を生成しました",
		"title", title,
		"pdf", pdfPath,
		"pages", pages,
		"duration", time.Since(startTime).Round(time.Millisecond))

	return Result{
		Title:      title,
		Scenes:     scenes,
		StyleGuide: styleGuide,
		Prompts:    panelPrompts,
		ImagePaths: imagePaths,
		PDFPath:    pdfPath,
		ScriptPath: scriptPath,
		Pages:      pages,
	}, nil
}

func relativeImagePaths(base string, paths []string) []string {
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(base, p)
		if err != nil {
			r = p
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel
}

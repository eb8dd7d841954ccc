package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/pipeline"

	"github.com/spf13/cobra"
)

// generateOptions は generate サブコマンドのフラグなのだ。
type generateOptions struct {
	StoryFile string
	Style     string
	Title     string
	OutputDir string
	MaxWords  int
	Sample    bool
}

var genOpts generateOptions

// generateCmd は、ストーリーからパネル画像と PDF までを一気通貫で生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "ストーリーからコミックの PDF を一気に生成するのだ。",
	Long: `ストーリーをシーンに分割し、スタイルガイド、パネルプロンプト、パネル画像を順に生成して
PDF と Markdown の台本を出力ディレクトリに保存するのだ。`,
	Example: "  go-comic-kit generate -f story.txt --style manga -o output",
	RunE:    generateCommand,
}

func init() {
	flags := generateCmd.Flags()
	flags.StringVarP(&genOpts.StoryFile, "story-file", "f", "", "ストーリーのファイルパス（'-'で標準入力なのだ）。")
	flags.StringVarP(&genOpts.Style, "style", "s", config.DefaultStyle, "コミックの画風なのだ。")
	flags.StringVarP(&genOpts.Title, "title", "t", "", "コミックのタイトル（省略時は AI が考えるのだ）。")
	flags.StringVarP(&genOpts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "PDF と画像の出力先ディレクトリなのだ。")
	flags.IntVar(&genOpts.MaxWords, "max-words", 0, "1 シーンあたりの最大単語数なのだ。")
	flags.BoolVar(&genOpts.Sample, "sample", false, "組み込みのサンプルストーリーを使うのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 入力の読み込み
	story, err := loadStory(cmd.InOrStdin(), genOpts.StoryFile, genOpts.Sample)
	if err != nil {
		return err
	}

	// 2. 設定のロードと必須チェック
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"style", genOpts.Style,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.ImageModel,
		"output", genOpts.OutputDir)

	// 3. パイプラインの実行
	pl, err := builder.BuildPipeline(ctx, cfg, genOpts.OutputDir)
	if err != nil {
		return err
	}
	result, err := pl.Execute(ctx, pipeline.Input{
		Story:            story,
		Style:            genOpts.Style,
		Title:            genOpts.Title,
		MaxWordsPerScene: genOpts.MaxWords,
	})
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！",
		"title", result.Title,
		"pages", result.Pages,
		"script", result.ScriptPath)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.PDFPath)
	return err
}

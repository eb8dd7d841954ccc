package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-comic-kit/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const appName = "go-comic-kit"

var (
	// v はフラグと環境変数を束ねる設定のソースなのだ。
	v        = viper.New()
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "ストーリーからコミックのパネル画像と PDF を生成するのだ。",
	Long: `ストーリーをシーンに分割し、Gemini でスタイルガイドとパネル画像を生成して、
1 パネル 1 ページの PDF にまとめるのだ。HTTP サーバーとしても CLI としても動くのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, generateCmd, scenesCmd)
}

// addAppFlags は、すべてのサブコマンドに共通するフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "ログレベル (debug, info, warn, error) なのだ。")

	// --- AIモデル設定 ---
	flags.String("model", "", "テキスト生成に使う Gemini モデル名なのだ。")
	flags.String("image-model", "", "画像生成に使う Gemini モデル名なのだ。")

	// --- 保存先 ---
	flags.String("images-dir", "", "生成したパネル画像を保存するディレクトリなのだ。")
	flags.String("library-dir", "", "ライブラリと PDF を保存するディレクトリなのだ。")
	flags.String("settings-dir", "", "アプリケーション設定を保存するディレクトリなのだ。")

	bindFlags(flags, map[string]string{
		config.KeyGeminiModel: "model",
		config.KeyImageModel:  "image-model",
		config.KeyImagesDir:   "images-dir",
		config.KeyLibraryDir:  "library-dir",
		config.KeySettingsDir: "settings-dir",
	})
}

// bindFlags は、設定キーとフラグ名の対応を viper に登録するのだ。
// 未指定のフラグは環境変数やデフォルト値より優先されないのだ。
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("フラグ %s のバインドに失敗しました: %v", name, err))
		}
	}
}

// preRunAppE は、コマンド実行前にログの出力レベルを設定するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("ログレベルが不正です: %q", logLevel)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// SIGINT / SIGTERM を受け取ると、コマンドのコンテキストがキャンセルされるのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"

	"github.com/spf13/cobra"
)

// serveCmd は、コミック生成 API の HTTP サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "コミック生成 API の HTTP サーバーを起動するのだ。",
	Long: `生成工程・ライブラリ・設定の各 API と、生成画像と PDF の静的配信を提供するのだ。
SIGINT / SIGTERM を受け取ると、処理中のリクエストを待ってから停止するのだよ。`,
	Example: "  GEMINI_API_KEY=... go-comic-kit serve --port 3001",
	RunE:    serveCommand,
}

func init() {
	flags := serveCmd.Flags()
	flags.Int("port", config.DefaultPort, "待ち受けるポート番号なのだ。")
	flags.String("frontend-url", config.DefaultFrontendURL, "CORS で許可するフロントエンドのオリジンなのだ。")
	flags.Duration("session-ttl", 0, "セッションの有効期限なのだ。")
	bindFlags(flags, map[string]string{
		config.KeyPort:        "port",
		config.KeyFrontendURL: "frontend-url",
		config.KeySessionTTL:  "session-ttl",
	})
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 設定の読み込み
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	// 2. 依存関係の組み立て
	app, err := builder.BuildApp(ctx, cfg)
	if err != nil {
		return err
	}

	// 3. 起動。シグナルで ctx がキャンセルされても処理中のリクエストは止めない
	if err := app.Server.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	<-ctx.Done()

	// 4. グレースフルシャットダウン
	slog.Info("シャットダウンを開始するのだ", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return app.Server.Shutdown(shutdownCtx)
}

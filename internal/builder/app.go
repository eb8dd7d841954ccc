package builder

import (
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/server"
	"github.com/shouni/go-comic-kit/pkg/store"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// App は、HTTP サーバーの実行に必要な依存関係をまとめて保持するのだ。
type App struct {
	Config   config.Config        // 環境変数とフラグから読み込まれた設定
	Manager  *workflow.Manager    // 生成工程をセッション単位で実行するサービス層
	Sessions store.SessionStore   // 工程をまたぐセッションの保存先
	Library  *store.LibraryStore  // 完成したコミックの保存先
	Settings *store.SettingsStore // アプリケーション設定の保存先
	Server   *server.Server
}

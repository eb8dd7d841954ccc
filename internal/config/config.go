package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/store"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/spf13/viper"
)

// デフォルト値の定義なのだ
const (
	DefaultPort            = 3001
	DefaultSettingsDir     = "data"
	DefaultFrontendURL     = "http://localhost:3000"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultOutputDir       = "output"
	DefaultStyle           = "manga"
)

// 設定キー。環境変数名はキーを大文字にしたものになるのだ。
const (
	KeyGeminiAPIKey    = "gemini_api_key"
	KeyGeminiModel     = "gemini_model"
	KeyImageModel      = "image_gemini_model"
	KeyPort            = "port"
	KeyImagesDir       = "images_dir"
	KeyLibraryDir      = "library_dir"
	KeySettingsDir     = "settings_dir"
	KeySessionTTL      = "session_ttl"
	KeyFrontendURL     = "frontend_url"
	KeyShutdownTimeout = "shutdown_timeout"
)

// Config はアプリケーション全体の環境設定を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	ImageModel   string

	Port            int
	FrontendURL     string
	ShutdownTimeout time.Duration

	ImagesDir   string
	LibraryDir  string
	SettingsDir string
	SessionTTL  time.Duration
}

// SetDefaults は viper にデフォルト値を登録するのだ。
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyGeminiModel, generator.DefaultTextModel)
	v.SetDefault(KeyImageModel, generator.DefaultImageModel)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyImagesDir, asset.DefaultImageDir)
	v.SetDefault(KeyLibraryDir, workflow.DefaultLibraryDir)
	v.SetDefault(KeySettingsDir, DefaultSettingsDir)
	v.SetDefault(KeySessionTTL, store.DefaultSessionTTL)
	v.SetDefault(KeyFrontendURL, DefaultFrontendURL)
	v.SetDefault(KeyShutdownTimeout, DefaultShutdownTimeout)
}

// Load は、デフォルト値、環境変数、バインド済みのフラグから設定を読み込むのだ。
// v が nil の場合は新しい viper インスタンスを使うのだ。
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		GeminiAPIKey:    strings.TrimSpace(v.GetString(KeyGeminiAPIKey)),
		GeminiModel:     v.GetString(KeyGeminiModel),
		ImageModel:      v.GetString(KeyImageModel),
		Port:            v.GetInt(KeyPort),
		FrontendURL:     v.GetString(KeyFrontendURL),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		ImagesDir:       v.GetString(KeyImagesDir),
		LibraryDir:      v.GetString(KeyLibraryDir),
		SettingsDir:     v.GetString(KeySettingsDir),
		SessionTTL:      v.GetDuration(KeySessionTTL),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は設定値の整合性をチェックするのだ。
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("ポート番号が不正です: %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("セッションの有効期限は正の値である必要があります: %s", c.SessionTTL)
	}
	if c.ImagesDir == "" || c.LibraryDir == "" || c.SettingsDir == "" {
		return fmt.Errorf("保存先ディレクトリが空です")
	}
	return nil
}

// Addr は HTTP サーバーの待ち受けアドレスを返すのだ。
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Workflow は workflow.Manager 向けの設定に変換するのだ。
func (c Config) Workflow() workflow.Config {
	wc := workflow.NewConfig(c.GeminiAPIKey)
	wc.TextModel = c.GeminiModel
	wc.ImageModel = c.ImageModel
	wc.ImagesDir = c.ImagesDir
	wc.LibraryDir = c.LibraryDir
	return wc
}

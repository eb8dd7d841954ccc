package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/store"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// デフォルト値の定義
const (
	Version             = "1.0.0"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Minute // 画像生成の往復を待つため長めに取る
	DefaultIdleTimeout  = 2 * time.Minute
)

// Options は HTTP サーバーの動作設定です。
type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxBodyBytes   int64
	Limits         Limits
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// Deps はハンドラーが利用するサービスです。
type Deps struct {
	Manager  *workflow.Manager
	Library  *store.LibraryStore
	Settings *store.SettingsStore
}

type limiters struct {
	api, generation, image, library *rateLimiter
}

// Server は、コミック生成 API と生成物の静的配信を提供する HTTP サーバーです。
type Server struct {
	opts     Options
	manager  *workflow.Manager
	library  *store.LibraryStore
	settings *store.SettingsStore
	script   *publisher.ScriptPublisher
	limiters limiters
	handler  http.Handler
	now      func() time.Time

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	startTime time.Time
}

// New は、依存関係を検証してルーティング済みの Server を生成します。
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Manager == nil {
		return nil, fmt.Errorf("Manager は必須です")
	}
	if deps.Library == nil {
		return nil, fmt.Errorf("LibraryStore は必須です")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("SettingsStore は必須です")
	}
	script, err := publisher.NewScriptPublisher()
	if err != nil {
		return nil, fmt.Errorf("台本パブリッシャーの初期化に失敗しました: %w", err)
	}

	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	s := &Server{
		opts:     opts,
		manager:  deps.Manager,
		library:  deps.Library,
		settings: deps.Settings,
		script:   script,
		limiters: limiters{
			api:        newRateLimiter("api", opts.Limits.API),
			generation: newRateLimiter("generation", opts.Limits.Generation),
			image:      newRateLimiter("image", opts.Limits.Image),
			library:    newRateLimiter("library", opts.Limits.Library),
		},
		now:       func() time.Time { return time.Now().UTC() },
		startTime: time.Now(),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler はミドルウェア込みのルートハンドラーを返します。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start はリスナーをバインドし、バックグラウンドで HTTP の処理を開始します。
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("サーバーはすでに起動しています")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("%s での待ち受けに失敗しました: %w", s.opts.Addr, err)
	}
	s.listener = listener
	s.startTime = time.Now()
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP サーバーが異常終了しました", "error", err)
		}
	}()

	slog.InfoContext(ctx, "HTTP サーバーを起動しました",
		"addr", listener.Addr().String(),
		"gemini_configured", s.manager.GeminiConfigured())
	return nil
}

// Addr は待ち受け中のアドレスを返します。起動前は空文字列です。
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown は新規接続の受け付けを止め、処理中のリクエストの完了を待ちます。
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	// 処理中のハンドラーが s.mu を取れるよう、ロックを外してから待つ
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP サーバーの停止に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "HTTP サーバーを停止しました")
	return nil
}

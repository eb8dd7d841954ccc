package server

import (
	"net/http"

	"github.com/shouni/go-comic-kit/pkg/publisher"
)

// routes はルーティングを登録し、共通ミドルウェアで包んだハンドラーを返します。
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	l := s.limiters

	// --- 生成工程 ---
	mux.Handle("POST /api/generate", s.limit(s.handleGenerate, l.api, l.generation))
	mux.Handle("GET /api/generate/session/{id}", s.limit(s.handleGetSession, l.api, l.generation))
	mux.Handle("POST /api/scenes", s.limit(s.handleScenes, l.api))
	mux.Handle("POST /api/style-guide", s.limit(s.handleStyleGuide, l.api, l.generation))
	mux.Handle("POST /api/prompts", s.limit(s.handlePrompts, l.api, l.generation))
	mux.Handle("POST /api/images", s.limit(s.handleImages, l.api, l.image))
	mux.Handle("GET /api/images/generated", s.limit(s.handleGeneratedImages, l.api, l.image))

	// --- エクスポート ---
	mux.Handle("POST /api/export", s.limit(s.handleExport, l.api))
	mux.Handle("GET /api/export", s.limit(s.handleLatestExport, l.api))
	mux.Handle("GET /api/export/info", s.limit(s.handleExportInfo, l.api))

	// --- ライブラリ ---
	mux.Handle("GET /api/library", s.limit(s.handleListLibrary, l.api, l.library))
	mux.Handle("POST /api/library", s.limit(s.handleCreateLibrary, l.api, l.library))
	mux.Handle("GET /api/library/{id}", s.limit(s.handleGetLibrary, l.api, l.library))
	mux.Handle("PUT /api/library/{id}", s.limit(s.handleUpdateLibrary, l.api, l.library))
	mux.Handle("DELETE /api/library/{id}", s.limit(s.handleDeleteLibrary, l.api, l.library))
	mux.Handle("GET /api/library/{id}/script", s.limit(s.handleLibraryScript, l.api, l.library))

	// --- 設定 ---
	mux.Handle("GET /api/settings", s.limit(s.handleGetSettings, l.api))
	mux.Handle("POST /api/settings", s.limit(s.handleUpdateSettings, l.api))
	mux.Handle("POST /api/settings/reset", s.limit(s.handleResetSettings, l.api))
	mux.Handle("GET /api/settings/styles", s.limit(s.handleStyles, l.api))

	// --- システム ---
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /api/status", s.limit(s.handleStatus, l.api))

	// --- 静的ファイル ---
	cfg := s.manager.Config()
	mux.Handle("GET /images/", http.StripPrefix("/images/",
		noDirListing(http.FileServer(http.Dir(cfg.ImagesDir)))))
	mux.Handle("GET /library/pdfs/", http.StripPrefix(publisher.LibraryPDFURLPrefix,
		noDirListing(http.FileServer(http.Dir(publisher.LibraryPDFPath(cfg.LibraryDir, ""))))))

	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = limitBody(s.opts.MaxBodyBytes, h)
	h = recoverer(h)
	h = cors(s.allowedOrigins(), h)
	h = accessLog(h)
	return h
}

// limit は、外側から順にレート制限を適用したハンドラーを返します。
func (s *Server) limit(h http.HandlerFunc, ls ...*rateLimiter) http.Handler {
	var next http.Handler = h
	for i := len(ls) - 1; i >= 0; i-- {
		next = ls[i].wrap(next)
	}
	return next
}

func (s *Server) allowedOrigins() []string {
	origins := append([]string{}, DefaultAllowedOrigins...)
	return append(origins, s.opts.AllowedOrigins...)
}

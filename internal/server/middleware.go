package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
)

// DefaultMaxBodyBytes はリクエストボディの上限です。
const DefaultMaxBodyBytes = 50 << 20

// DefaultAllowedOrigins は、設定に関係なく常に許可する開発用のオリジンです。
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:3002",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
	"http://127.0.0.1:3002",
}

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = "Content-Type, Authorization, X-Requested-With, X-Request-Timeout"
)

// accessLog はステータス、書き込みバイト数、処理時間をリクエストごとに記録します。
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		level := slog.LevelInfo
		if m.Code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "HTTP リクエスト",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"client", clientIP(r),
			"duration", m.Duration.Round(time.Millisecond))
	})
}

// recoverer はハンドラー内の panic を 500 レスポンスに変換します。
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.ErrorContext(r.Context(), "ハンドラーで panic が発生しました",
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()))
			writeJSON(w, http.StatusInternalServerError, payload{
				"error":   "Internal Server Error",
				"message": fmt.Sprint(rec),
			})
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody はリクエストボディの大きさを制限します。
func limitBody(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// cors は許可されたオリジンに CORS ヘッダーを付与し、プリフライトに応答します。
// オリジンには "https://preview-*.example.com" のようなワイルドカードを使えます。
func cors(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && originAllowed(origins, origin)
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(origins []string, origin string) bool {
	if slices.Contains(origins, origin) {
		return true
	}
	for _, o := range origins {
		if !strings.Contains(o, "*") {
			continue
		}
		if ok, err := path.Match(o, origin); err == nil && ok {
			return true
		}
	}
	return false
}

// noDirListing は静的ファイル配信でディレクトリの一覧を返さないようにします。
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			writeJSON(w, http.StatusNotFound, payload{"error": "Route not found"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

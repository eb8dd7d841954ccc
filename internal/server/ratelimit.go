package server

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LimitPolicy は、ウィンドウあたりの最大リクエスト数で表したレート制限です。
type LimitPolicy struct {
	Max     int
	Window  time.Duration
	Message string
}

// デフォルトのレート制限
var (
	DefaultAPILimit = LimitPolicy{
		Max: 100, Window: 15 * time.Minute,
		Message: "Too many requests from this IP, please try again later.",
	}
	DefaultGenerationLimit = LimitPolicy{
		Max: 10, Window: time.Minute,
		Message: "Too many generation requests, please wait before trying again.",
	}
	DefaultImageLimit = LimitPolicy{
		Max: 5, Window: 5 * time.Minute,
		Message: "Image generation rate limit exceeded. Please wait before generating more images.",
	}
	DefaultLibraryLimit = LimitPolicy{
		Max: 30, Window: time.Minute,
		Message: "Too many library operations, please wait before trying again.",
	}
)

// Limits はエンドポイント群ごとのレート制限の組です。
type Limits struct {
	API        LimitPolicy
	Generation LimitPolicy
	Image      LimitPolicy
	Library    LimitPolicy
}

// DefaultLimits はデフォルトのレート制限を返します。
func DefaultLimits() Limits {
	return Limits{
		API:        DefaultAPILimit,
		Generation: DefaultGenerationLimit,
		Image:      DefaultImageLimit,
		Library:    DefaultLibraryLimit,
	}
}

// rateLimiter はクライアント IP ごとのトークンバケットを保持します。
// 一定時間アクセスのないバケットは満杯と同じなので、キャッシュから期限切れで削除します。
type rateLimiter struct {
	name    string
	policy  LimitPolicy
	mu      sync.Mutex
	clients *cache.Cache
}

func newRateLimiter(name string, policy LimitPolicy) *rateLimiter {
	if policy.Max <= 0 || policy.Window <= 0 {
		return nil
	}
	return &rateLimiter{
		name:    name,
		policy:  policy,
		clients: cache.New(policy.Window, policy.Window),
	}
}

// allow はクライアントのリクエストを 1 つ消費できるかを返します。
func (l *rateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.clients.Get(client); ok {
		lim = v.(*rate.Limiter)
	} else {
		every := l.policy.Window / time.Duration(l.policy.Max)
		lim = rate.NewLimiter(rate.Every(every), l.policy.Max)
	}
	// アクセスのたびに有効期限を延長する
	l.clients.SetDefault(client, lim)
	return lim.Allow()
}

// wrap は制限を超えたリクエストに 429 を返すハンドラーで next を包みます。
func (l *rateLimiter) wrap(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !l.allow(client) {
			slog.WarnContext(r.Context(), "レート制限を超過しました",
				"limiter", l.name,
				"client", client,
				"path", r.URL.Path)
			w.Header().Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", l.policy.Max, int(l.policy.Window.Seconds())))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(l.retryAfter().Seconds()))))
			writeFailure(w, http.StatusTooManyRequests, l.policy.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfter はトークンが 1 つ回復するまでの時間です。
func (l *rateLimiter) retryAfter() time.Duration {
	return l.policy.Window / time.Duration(l.policy.Max)
}

// clientIP は RemoteAddr からクライアントの IP アドレスを取り出します。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

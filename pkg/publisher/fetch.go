package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/httpkit"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFetchTimeout  = 30 * time.Second
	defaultCacheTTL      = 10 * time.Minute
	cacheCleanupInterval = 15 * time.Minute
)

// ImageFetcher は、URL で指定された画像を取得し、一定時間キャッシュします。
// 同じ URL への同時リクエストは 1 回の取得にまとめられます。
// 2xx 以外の応答、サイズ超過、5xx のリトライは httpkit に任せます。
type ImageFetcher struct {
	client httpkit.Requester
	cache  *cache.Cache
	group  singleflight.Group
}

// NewImageFetcher は ImageFetcher を初期化します。
// client が nil の場合は SSRF 検証付きの httpkit クライアントを 30 秒タイムアウトで使用します。
func NewImageFetcher(client httpkit.Requester) *ImageFetcher {
	if client == nil {
		client = httpkit.New(DefaultFetchTimeout)
	}
	return &ImageFetcher{
		client: client,
		cache:  cache.New(defaultCacheTTL, cacheCleanupInterval),
	}
}

// Fetch は url の内容を返します。キャッシュにあればネットワークにはアクセスしません。
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := f.cached(url); ok {
		return data, nil
	}

	val, err, _ := f.group.Do(url, func() (interface{}, error) {
		// 待機中に別のゴルーチンが取得を完了している可能性があるため再確認する
		if data, ok := f.cached(url); ok {
			return data, nil
		}

		data, err := f.download(ctx, url)
		if err != nil {
			return nil, err
		}
		f.cache.SetDefault(url, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("singleflight から予期しない型が返されました: %T", val)
	}
	return data, nil
}

func (f *ImageFetcher) cached(url string) ([]byte, bool) {
	v, ok := f.cache.Get(url)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

func (f *ImageFetcher) download(ctx context.Context, url string) ([]byte, error) {
	data, err := f.client.FetchBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("画像の取得に失敗しました (%s): %w", url, err)
	}
	return data, nil
}

package generator

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestPanelGenerator_Execute(t *testing.T) {
	t.Run("成功した画像がパネル番号付きで保存されること", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{{data: bigImage(64)}}}
		pg := NewPanelGenerator(newTestComposer(t, nil, img), dir)

		paths, err := pg.Execute(context.Background(), []string{"p0", "p1", "p2"})
		require.NoError(t, err)
		require.Len(t, paths, 3)
		for i, p := range paths {
			idx, ok := asset.ParsePanelIndex(p)
			require.True(t, ok)
			assert.Equal(t, i, idx)
			assert.FileExists(t, p)
		}
		assert.Equal(t, 3, img.calls)
		assert.Contains(t, img.prompts[0], "NO TEXT OR DIALOGUE: p0")
	})

	t.Run("前回のパネルが削除されること", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"panel_0.png", "panel_7.png"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stale"), 0o644))
		}
		img := &fakeImage{responses: []fakeImageResponse{{data: bigImage(64)}}}
		pg := NewPanelGenerator(newTestComposer(t, nil, img), dir)

		_, err := pg.Execute(context.Background(), []string{"only one"})
		require.NoError(t, err)

		files, err := asset.ListPanelFiles(dir)
		require.NoError(t, err)
		assert.Len(t, files, 1)
		assert.NoFileExists(t, filepath.Join(dir, "panel_7.png"))
	})

	t.Run("リトライを使い切るとプレースホルダーで補完されること", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{{err: errors.New("internal error")}}}
		pg := NewPanelGenerator(newTestComposer(t, nil, img), dir)

		results, err := pg.Generate(context.Background(), []string{"a fox in a dark forest", "a glowing crystal"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 6, img.calls, "パネルごとに 3 回試行すること")

		for i, r := range results {
			assert.True(t, r.Placeholder)
			assert.Equal(t, i, r.Index)

			raw, err := os.ReadFile(r.Path)
			require.NoError(t, err)
			decoded, err := png.Decode(bytes.NewReader(raw))
			require.NoError(t, err)
			assert.Equal(t, 512, decoded.Bounds().Dx())
			assert.Equal(t, 512, decoded.Bounds().Dy())
		}
	})

	t.Run("小さすぎる画像はリトライされること", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{
			{data: bigImage(4)},
			{data: bigImage(64)},
		}}
		pg := NewPanelGenerator(newTestComposer(t, nil, img), dir)

		results, err := pg.Generate(context.Background(), []string{"p"})
		require.NoError(t, err)
		assert.Equal(t, 2, img.calls)
		assert.False(t, results[0].Placeholder)
		assert.Equal(t, 64, results[0].Bytes)
	})

	t.Run("最後の試行では小さい画像も採用されること", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{{data: bigImage(4)}}}
		pg := NewPanelGenerator(newTestComposer(t, nil, img), dir)

		results, err := pg.Generate(context.Background(), []string{"p"})
		require.NoError(t, err)
		assert.Equal(t, 3, img.calls)
		assert.False(t, results[0].Placeholder)
		assert.Equal(t, 4, results[0].Bytes)
	})

	t.Run("画像のない応答が続くとプレースホルダーになること", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{{data: nil}}}
		pg := NewPanelGenerator(newTestComposer(t, nil, img), dir)

		results, err := pg.Generate(context.Background(), []string{"p"})
		require.NoError(t, err)
		assert.True(t, results[0].Placeholder)
	})

	t.Run("パネル間で段階的に待機すること", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{{data: bigImage(64)}}}
		composer := newTestComposer(t, nil, img)
		composer.Pacing = DefaultPacing()
		composer.Pacing.MinImageBytes = 16
		pg := NewPanelGenerator(composer, dir)

		var waits []time.Duration
		pg.sleep = func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}

		_, err := pg.Execute(context.Background(), []string{"a", "b", "c", "d", "e", "f", "g"})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{
			2500 * time.Millisecond,
			3000 * time.Millisecond,
			3500 * time.Millisecond,
			4000 * time.Millisecond,
			4500 * time.Millisecond,
			5000 * time.Millisecond,
		}, waits)
	})

	t.Run("キャンセルされた場合はエラーを返すこと", func(t *testing.T) {
		dir := t.TempDir()
		img := &fakeImage{responses: []fakeImageResponse{{data: bigImage(64)}}}
		composer := newTestComposer(t, nil, img)
		composer.Pacing.PanelDelayBase = time.Hour
		composer.Pacing.PanelDelayMax = time.Hour
		pg := NewPanelGenerator(composer, dir)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := pg.Execute(ctx, []string{"a", "b"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ImageGenerator がない場合は設定エラーになること", func(t *testing.T) {
		pg := NewPanelGenerator(newTestComposer(t, nil, nil), t.TempDir())
		_, err := pg.Execute(context.Background(), []string{"a"})
		assert.Error(t, err)
	})
}

func TestPacing(t *testing.T) {
	p := DefaultPacing()

	assert.Equal(t, time.Duration(0), p.PanelDelay(0))
	assert.Equal(t, 2500*time.Millisecond, p.PanelDelay(1))
	assert.Equal(t, 5*time.Second, p.PanelDelay(20))

	assert.Equal(t, 3*time.Second, p.RetryDelay(0, false))
	assert.Equal(t, 5*time.Second, p.RetryDelay(1, false))
	assert.Equal(t, 8*time.Second, p.RetryDelay(5, false))
	assert.Equal(t, 6*time.Second, p.RetryDelay(0, true))
	assert.Equal(t, 10*time.Second, p.RetryDelay(1, true))
	assert.Equal(t, 15*time.Second, p.RetryDelay(5, true))
}

func TestPanelBackOff(t *testing.T) {
	b := &panelBackOff{pacing: DefaultPacing()}

	b.lastErr = errors.New("server error")
	assert.Equal(t, 3*time.Second, b.NextBackOff())

	b.lastErr = genai.APIError{Code: 429, Message: "Resource has been exhausted"}
	assert.Equal(t, 10*time.Second, b.NextBackOff())

	b.lastErr = errNoImage
	assert.Equal(t, time.Duration(0), b.NextBackOff())

	b.Reset()
	b.lastErr = errors.New("server error")
	assert.Equal(t, 3*time.Second, b.NextBackOff())
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429 の APIError", genai.APIError{Code: 429}, true},
		{"RESOURCE_EXHAUSTED", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"ラップされた APIError", errors.Join(errors.New("wrapped"), genai.APIError{Code: 429}), true},
		{"その他の APIError はメッセージを見ない", genai.APIError{Code: 500, Message: "quota"}, false},
		{"キーワードによる推定", errors.New("Quota exceeded for project"), true},
		{"throttle", errors.New("request throttled"), true},
		{"無関係なエラー", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

// slowImage は最初の block 回の呼び出しで ctx の期限切れまで応答しない ImageGenerator です。
type slowImage struct {
	mu    sync.Mutex
	block int
	calls int
}

func (s *slowImage) GenerateImage(ctx context.Context, _ string) (*ImageData, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if call < s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return bigImage(64), nil
}

func TestPanelGenerator_CallTimeout(t *testing.T) {
	newComposer := func(t *testing.T, img ImageGenerator) *ComicComposer {
		t.Helper()
		c := newTestComposer(t, nil, img)
		c.Pacing.CallTimeout = 5 * time.Millisecond
		return c
	}

	t.Run("呼び出しが期限を超えるとリトライされること", func(t *testing.T) {
		img := &slowImage{block: 1}
		pg := NewPanelGenerator(newComposer(t, img), t.TempDir())

		results, err := pg.Generate(context.Background(), []string{"a fox"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.False(t, results[0].Placeholder)
		assert.Equal(t, 2, img.calls)
	})

	t.Run("毎回期限を超えてもバッチは中断されずプレースホルダーになること", func(t *testing.T) {
		img := &slowImage{block: 100}
		pg := NewPanelGenerator(newComposer(t, img), t.TempDir())

		ctx := context.Background()
		results, err := pg.Generate(ctx, []string{"a fox", "a crystal"})
		require.NoError(t, err)
		require.NoError(t, ctx.Err())
		require.Len(t, results, 2)
		for i, r := range results {
			assert.Equal(t, i, r.Index)
			assert.True(t, r.Placeholder)
			assert.FileExists(t, r.Path)
		}
		assert.Equal(t, 6, img.calls, "パネルごとに 3 回試行すること")
	})
}

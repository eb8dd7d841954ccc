package workflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoText struct {
	mu    sync.Mutex
	calls int
}

func (e *echoText) GenerateText(_ context.Context, prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if strings.Contains(prompt, "catchy title") {
		return `"Fox Quest"`, nil
	}
	return "visual description", nil
}

type pngImage struct {
	data []byte
}

func (p *pngImage) GenerateImage(context.Context, string) (*generator.ImageData, error) {
	return &generator.ImageData{Data: p.data, MIMEType: "image/png"}, nil
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(3, 3, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.ImagesDir = filepath.Join(root, "generated")
	cfg.LibraryDir = filepath.Join(root, "library")
	cfg.Pacing = generator.Pacing{MaxRetries: 2, MinImageBytes: 1, PromptConcurrency: 5}
	return cfg
}

func newTestManager(t *testing.T, withOracle bool) (*Manager, *store.LibraryStore) {
	t.Helper()
	cfg := testConfig(t)
	lib, err := store.NewLibraryStore(cfg.LibraryDir)
	require.NoError(t, err)

	args := ManagerArgs{
		Config:   cfg,
		Sessions: store.NewMemorySessionStore(time.Hour),
		Library:  lib,
	}
	if withOracle {
		args.TextGenerator = &echoText{}
		args.ImageGenerator = &pngImage{data: tinyPNG(t)}
	}

	m, err := New(context.Background(), args)
	require.NoError(t, err)
	return m, lib
}

const story = "Luna the fox wandered into the forest. She found a glowing crystal. The crystal showed her the way home."

func TestNew(t *testing.T) {
	t.Run("必須の依存関係がない場合はエラーになること", func(t *testing.T) {
		_, err := New(context.Background(), ManagerArgs{Config: testConfig(t)})
		assert.Error(t, err)
	})
}

func TestManager_WithoutAPIKey(t *testing.T) {
	m, _ := newTestManager(t, false)
	ctx := context.Background()

	assert.False(t, m.GeminiConfigured())

	_, err := m.StartSession(ctx, story, "manga", 0)
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
	_, err = m.StyleGuide(ctx, story, "manga")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
	_, err = m.Prompts(ctx, []string{"a"}, "guide", "manga", "")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
	_, err = m.Images(ctx, []string{"a"}, "")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)

	assert.NotEmpty(t, m.SplitScenes(story, 10), "シーン分割はオラクルなしで動作すること")
}

func TestManager_FullFlow(t *testing.T) {
	m, lib := newTestManager(t, true)
	ctx := context.Background()

	// 1. セッション開始
	session, err := m.StartSession(ctx, story, "manga", 10)
	require.NoError(t, err)
	require.NotEmpty(t, session.Scenes)
	assert.Equal(t, "visual description", session.StyleGuide)

	// 2. プロンプト
	panelPrompts, err := m.Prompts(ctx, session.Scenes, session.StyleGuide, session.Style, session.ID)
	require.NoError(t, err)
	assert.Len(t, panelPrompts, len(session.Scenes))

	// 3. 画像
	urls, err := m.Images(ctx, panelPrompts, session.ID)
	require.NoError(t, err)
	require.Len(t, urls, len(session.Scenes))
	assert.Equal(t, "/images/panel_0.png", urls[0])

	stored, ok := m.Session(ctx, session.ID)
	require.True(t, ok)
	assert.Equal(t, panelPrompts, stored.Prompts)
	assert.Equal(t, urls, stored.ImagePaths)

	listed, err := m.GeneratedImages()
	require.NoError(t, err)
	assert.Equal(t, urls, listed)

	// 4. エクスポートとライブラリ保存
	result, err := m.Export(ctx, ExportRequest{SessionID: session.ID, SaveToLibrary: true})
	require.NoError(t, err)
	assert.Equal(t, "Fox Quest", result.Title)
	assert.Equal(t, len(urls), result.Pages)
	assert.True(t, strings.HasPrefix(result.FileName, "fox_quest_"))
	assert.FileExists(t, result.Path)
	assert.Equal(t, "/library/pdfs/"+result.FileName, result.URL)

	require.NotNil(t, result.Item)
	assert.Equal(t, result.URL, result.Item.PDFPath)
	assert.Equal(t, urls[0], result.Item.Thumbnail)

	items, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fox Quest", items[0].Title)

	info, err := m.LatestExport()
	require.NoError(t, err)
	assert.Positive(t, info.Size)
}

func TestManager_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("画像がない場合は ErrNoImages を返すこと", func(t *testing.T) {
		m, _ := newTestManager(t, true)
		_, err := m.Export(ctx, ExportRequest{})
		assert.ErrorIs(t, err, publisher.ErrNoImages)

		_, err = m.LatestExport()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("セッションがない場合は画像ディレクトリの一覧を使うこと", func(t *testing.T) {
		m, lib := newTestManager(t, false)
		dir := m.Config().ImagesDir
		require.NoError(t, os.MkdirAll(dir, 0o755))
		data := tinyPNG(t)
		for _, name := range []string{"panel_10.png", "panel_2.png", "notes.txt"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
		}

		result, err := m.Export(ctx, ExportRequest{Title: "My Comic", SaveToLibrary: true})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, "My Comic", result.Title)
		assert.Nil(t, result.Item, "セッションがない場合はライブラリに保存しないこと")

		items, err := lib.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("オラクルがない場合は日時ベースのタイトルになること", func(t *testing.T) {
		m, _ := newTestManager(t, false)
		dir := m.Config().ImagesDir
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "panel_0.png"), tinyPNG(t), 0o644))

		result, err := m.Export(ctx, ExportRequest{})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result.Title, "Comic-"))
	})
}

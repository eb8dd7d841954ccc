package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("作成したセッションを取得・更新できること", func(t *testing.T) {
		st := NewMemorySessionStore(time.Hour)
		created, err := st.Create(ctx, domain.Session{Story: "A fox story.", Style: "manga"})
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^session_\d+_[0-9a-z]{9}$`), created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		guide := "bold lines"
		updated, err := st.Update(ctx, created.ID, domain.SessionPatch{
			Scenes:     []string{"one.", "two."},
			StyleGuide: &guide,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"one.", "two."}, updated.Scenes)
		assert.Equal(t, "bold lines", updated.StyleGuide)
		assert.Equal(t, "A fox story.", updated.Story)

		got, ok := st.Get(ctx, created.ID)
		require.True(t, ok)
		assert.Equal(t, updated, got)
	})

	t.Run("返されたセッションを変更してもストアに影響しないこと", func(t *testing.T) {
		st := NewMemorySessionStore(time.Hour)
		created, err := st.Create(ctx, domain.Session{Scenes: []string{"a"}})
		require.NoError(t, err)

		created.Scenes[0] = "mutated"
		got, _ := st.Get(ctx, created.ID)
		assert.Equal(t, "a", got.Scenes[0])
	})

	t.Run("存在しないセッションの更新は ErrNotFound になること", func(t *testing.T) {
		st := NewMemorySessionStore(time.Hour)
		_, err := st.Update(ctx, "session_0_missing00", domain.SessionPatch{})
		assert.ErrorIs(t, err, ErrNotFound)

		_, ok := st.Get(ctx, "session_0_missing00")
		assert.False(t, ok)
	})

	t.Run("有効期限を過ぎたセッションは見つからないこと", func(t *testing.T) {
		st := NewMemorySessionStore(50 * time.Millisecond)
		created, err := st.Create(ctx, domain.Session{Story: "short lived"})
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			_, ok := st.Get(ctx, created.ID)
			return !ok
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("並行した更新で値が失われないこと", func(t *testing.T) {
		st := NewMemorySessionStore(time.Hour)
		created, err := st.Create(ctx, domain.Session{})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = st.Update(ctx, created.ID, domain.SessionPatch{Prompts: []string{"p"}})
			}()
		}
		wg.Wait()

		got, ok := st.Get(ctx, created.ID)
		require.True(t, ok)
		assert.Equal(t, []string{"p"}, got.Prompts)
	})
}

func TestLibraryStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *LibraryStore {
		t.Helper()
		st, err := NewLibraryStore(t.TempDir())
		require.NoError(t, err)
		return st
	}

	t.Run("空のライブラリは空のリストを返すこと", func(t *testing.T) {
		items, err := newStore(t).List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("作成した項目に ID とサムネイルが付与されること", func(t *testing.T) {
		st := newStore(t)
		item, err := st.Create(ctx, domain.LibraryItem{
			Title:  "Fox",
			Images: []string{"/images/panel_0.png", "/images/panel_1.png"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "/images/panel_0.png", item.Thumbnail)
		assert.Equal(t, domain.LibrarySchemaVersion, item.SchemaVersion)
		assert.Equal(t, item.CreatedAt, item.UpdatedAt)

		assert.FileExists(t, filepath.Join(st.Dir(), item.ID+".json"))
		assert.FileExists(t, filepath.Join(st.Dir(), "index.json"))

		got, err := st.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.Title, got.Title)
	})

	t.Run("一覧は作成日時の新しい順になること", func(t *testing.T) {
		st := newStore(t)
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		tick := 0
		st.now = func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}

		for _, title := range []string{"first", "second", "third"} {
			_, err := st.Create(ctx, domain.LibraryItem{Title: title})
			require.NoError(t, err)
		}

		items, err := st.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "third", items[0].Title)
		assert.Equal(t, "first", items[2].Title)
	})

	t.Run("更新は ID と作成日時を保持し更新日時を進めること", func(t *testing.T) {
		st := newStore(t)
		created, err := st.Create(ctx, domain.LibraryItem{Title: "old", Style: "manga"})
		require.NoError(t, err)

		st.now = func() time.Time { return created.CreatedAt.Add(time.Hour) }
		title := "new"
		updated, err := st.Update(ctx, created.ID, domain.LibraryPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "new", updated.Title)
		assert.Equal(t, "manga", updated.Style)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		items, err := st.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "new", items[0].Title)
	})

	t.Run("削除後は取得も削除も ErrNotFound になること", func(t *testing.T) {
		st := newStore(t)
		created, err := st.Create(ctx, domain.LibraryItem{Title: "gone"})
		require.NoError(t, err)

		require.NoError(t, st.Delete(ctx, created.ID))
		_, err = st.Get(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, st.Delete(ctx, created.ID), ErrNotFound)

		items, err := st.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("不正な ID は ErrNotFound になること", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Get(ctx, "../index")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.Update(ctx, "../index", domain.LibraryPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("壊れたインデックスは空として扱われること", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "index.json"), []byte("{not json"), 0o644))

		items, err := st.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)

		_, err = st.Create(ctx, domain.LibraryItem{Title: "recovered"})
		require.NoError(t, err)
		items, err = st.List(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("壊れた詳細ファイルは ErrNotFound になること", func(t *testing.T) {
		st := newStore(t)
		created, err := st.Create(ctx, domain.LibraryItem{Title: "broken"})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), created.ID+".json"), []byte("{corrupt"), 0o644))

		_, err = st.Get(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		title := "fixed"
		_, err = st.Update(ctx, created.ID, domain.LibraryPatch{Title: &title})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSettingsStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) (*SettingsStore, string) {
		t.Helper()
		dir := t.TempDir()
		st, err := NewSettingsStore(dir)
		require.NoError(t, err)
		return st, dir
	}

	t.Run("ファイルがない場合はデフォルト値を返すこと", func(t *testing.T) {
		st, _ := newStore(t)
		got, err := st.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSettings(), got)
	})

	t.Run("指定した項目だけが更新され永続化されること", func(t *testing.T) {
		st, dir := newStore(t)
		dark := true
		conc := 50
		got, err := st.Update(ctx, domain.SettingsPatch{DarkMode: &dark, MaxConcurrency: &conc})
		require.NoError(t, err)
		assert.True(t, got.DarkMode)
		assert.Equal(t, domain.MaxConcurrency, got.MaxConcurrency)
		assert.Equal(t, "manga", got.DefaultStyle)
		assert.False(t, got.UpdatedAt.IsZero())

		reopened, err := NewSettingsStore(dir)
		require.NoError(t, err)
		again, err := reopened.Get(ctx)
		require.NoError(t, err)
		assert.True(t, again.DarkMode)
		assert.Equal(t, domain.MaxConcurrency, again.MaxConcurrency)
		assert.True(t, again.AutoSave)
	})

	t.Run("リセットでデフォルト値に戻ること", func(t *testing.T) {
		st, _ := newStore(t)
		lang := "ja"
		_, err := st.Update(ctx, domain.SettingsPatch{Language: &lang})
		require.NoError(t, err)

		got, err := st.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, "en", got.Language)

		stored, err := st.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "en", stored.Language)
	})

	t.Run("壊れたファイルはデフォルト値として扱われること", func(t *testing.T) {
		st, dir := newStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "app-settings.json"), []byte("[]"), 0o644))

		got, err := st.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSettings(), got)
	})
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"

	"github.com/google/uuid"
)

const (
	libraryIndexFile = "index.json"
	detailFileExt    = ".json"
)

// LibraryStore は、ライブラリ項目を index.json と <id>.json に保存するファイルストアです。
type LibraryStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewLibraryStore は LibraryStore を初期化し、保存先ディレクトリを作成します。
func NewLibraryStore(dir string) (*LibraryStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("ライブラリディレクトリは必須です")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ライブラリディレクトリの作成に失敗しました (%s): %w", dir, err)
	}
	return &LibraryStore{dir: dir, now: time.Now}, nil
}

// Dir は保存先ディレクトリを返します。
func (s *LibraryStore) Dir() string {
	return s.dir
}

// List は全項目を作成日時の新しい順に返します。
func (s *LibraryStore) List(ctx context.Context) ([]domain.LibraryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.readIndex(ctx)
	slices.SortStableFunc(items, func(a, b domain.LibraryItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items, nil
}

// Create は新しい ID と作成日時を付与して項目を保存します。
func (s *LibraryStore) Create(ctx context.Context, item domain.LibraryItem) (domain.LibraryItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.LibraryItem{}, err
	}

	now := s.now().UTC()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.SchemaVersion = domain.LibrarySchemaVersion
	if item.Thumbnail == "" && len(item.Images) > 0 {
		item.Thumbnail = item.Images[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. 詳細ファイル
	if err := writeJSON(s.detailPath(item.ID), item); err != nil {
		return domain.LibraryItem{}, fmt.Errorf("ライブラリ項目の保存に失敗しました: %w", err)
	}

	// 2. インデックス
	index := append(s.readIndex(ctx), item)
	if err := writeJSON(s.indexPath(), index); err != nil {
		return domain.LibraryItem{}, fmt.Errorf("ライブラリインデックスの更新に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "ライブラリに保存しました", "id", item.ID, "title", item.Title)
	return item, nil
}

// Get は ID で項目を取得します。存在しない場合は ErrNotFound を返します。
func (s *LibraryStore) Get(ctx context.Context, id string) (domain.LibraryItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.LibraryItem{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readDetail(ctx, id)
}

// Update は patch を反映し、更新日時を設定して保存します。ID と作成日時は変更されません。
func (s *LibraryStore) Update(ctx context.Context, id string, patch domain.LibraryPatch) (domain.LibraryItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.LibraryItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readDetail(ctx, id)
	if err != nil {
		return domain.LibraryItem{}, err
	}

	updated := current.Apply(patch)
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.now().UTC()
	updated.SchemaVersion = domain.LibrarySchemaVersion

	if err := writeJSON(s.detailPath(id), updated); err != nil {
		return domain.LibraryItem{}, fmt.Errorf("ライブラリ項目の更新に失敗しました: %w", err)
	}

	index := s.readIndex(ctx)
	replaced := false
	for i := range index {
		if index[i].ID == id {
			index[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, updated)
	}
	if err := writeJSON(s.indexPath(), index); err != nil {
		return domain.LibraryItem{}, fmt.Errorf("ライブラリインデックスの更新に失敗しました: %w", err)
	}
	return updated, nil
}

// Delete は詳細ファイルとインデックスの項目を削除します。詳細ファイルがない場合は ErrNotFound を返します。
func (s *LibraryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validID(id) {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.detailPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("ライブラリ項目の削除に失敗しました: %w", err)
	}

	index := slices.DeleteFunc(s.readIndex(ctx), func(it domain.LibraryItem) bool {
		return it.ID == id
	})
	if err := writeJSON(s.indexPath(), index); err != nil {
		return fmt.Errorf("ライブラリインデックスの更新に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "ライブラリから削除しました", "id", id)
	return nil
}

// readIndex はインデックスを読み込みます。存在しないか壊れている場合は空として扱います。
func (s *LibraryStore) readIndex(ctx context.Context) []domain.LibraryItem {
	var items []domain.LibraryItem
	if _, err := readJSON(s.indexPath(), &items); err != nil {
		slog.WarnContext(ctx, "ライブラリインデックスを読み込めないため空として扱います", "error", err)
		return []domain.LibraryItem{}
	}
	if items == nil {
		items = []domain.LibraryItem{}
	}
	return items
}

// readDetail は詳細ファイルを読み込みます。読めないファイルや壊れたファイルは ErrNotFound として扱います。
func (s *LibraryStore) readDetail(ctx context.Context, id string) (domain.LibraryItem, error) {
	if !validID(id) {
		return domain.LibraryItem{}, ErrNotFound
	}
	var item domain.LibraryItem
	found, err := readJSON(s.detailPath(id), &item)
	if err != nil {
		slog.WarnContext(ctx, "ライブラリ項目を読み込めないため見つからないものとして扱います", "id", id, "error", err)
		return domain.LibraryItem{}, ErrNotFound
	}
	if !found {
		return domain.LibraryItem{}, ErrNotFound
	}
	return item, nil
}

func (s *LibraryStore) indexPath() string {
	return filepath.Join(s.dir, libraryIndexFile)
}

func (s *LibraryStore) detailPath(id string) string {
	return filepath.Join(s.dir, id+detailFileExt)
}

// validID は ID が UUID 形式かを確認し、パスとして安全な値だけを受け付けます。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

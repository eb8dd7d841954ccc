package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

const settingsFileName = "app-settings.json"

// SettingsStore は、アプリケーション設定を 1 つの JSON ファイルに保存します。
type SettingsStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewSettingsStore は SettingsStore を初期化し、保存先ディレクトリを作成します。
func NewSettingsStore(dir string) (*SettingsStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("設定ディレクトリは必須です")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("設定ディレクトリの作成に失敗しました (%s): %w", dir, err)
	}
	return &SettingsStore{
		path: filepath.Join(dir, settingsFileName),
		now:  time.Now,
	}, nil
}

// Get は保存済みの設定を返します。ファイルが存在しないか壊れている場合はデフォルト値を返します。
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx), nil
}

// Update は patch に含まれる項目だけを上書きして保存し、保存後の設定を返します。
func (s *SettingsStore) Update(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.read(ctx).Merge(patch)
	updated.UpdatedAt = s.now().UTC()
	if err := writeJSON(s.path, updated); err != nil {
		return domain.Settings{}, fmt.Errorf("設定の保存に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "設定を更新しました")
	return updated, nil
}

// Reset は設定をデフォルト値に戻して保存します。
func (s *SettingsStore) Reset(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings := domain.DefaultSettings()
	settings.UpdatedAt = s.now().UTC()
	if err := writeJSON(s.path, settings); err != nil {
		return domain.Settings{}, fmt.Errorf("設定のリセットに失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "設定をデフォルトに戻しました")
	return settings, nil
}

func (s *SettingsStore) read(ctx context.Context) domain.Settings {
	settings := domain.DefaultSettings()
	found, err := readJSON(s.path, &settings)
	if err != nil {
		slog.WarnContext(ctx, "設定ファイルを読み込めないためデフォルト値を使用します", "error", err)
		return domain.DefaultSettings()
	}
	if !found {
		return domain.DefaultSettings()
	}
	return settings.Normalize()
}

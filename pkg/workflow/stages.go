package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/parser"
)

// StartSession は、ストーリーをシーンに分割してスタイルガイドを生成し、新しいセッションとして保存します。
func (m *Manager) StartSession(ctx context.Context, story, style string, maxWords int) (domain.Session, error) {
	if err := m.requireOracle(); err != nil {
		return domain.Session{}, err
	}
	startTime := time.Now()

	// 1. シーン分割
	scenes := parser.SplitScenes(story, maxWords)

	// 2. スタイルガイドの生成 (失敗しても空文字列で続行)
	styleGuide, err := m.prompts.StyleGuide(ctx, story, style)
	if err != nil {
		return domain.Session{}, fmt.Errorf("スタイルガイドの生成に失敗しました: %w", err)
	}

	// 3. セッションの保存
	session, err := m.sessions.Create(ctx, domain.Session{
		Story:      story,
		Style:      style,
		Scenes:     scenes,
		StyleGuide: styleGuide,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "セッションを開始しました",
		"session_id", session.ID,
		"scenes", len(scenes),
		"duration", time.Since(startTime).Round(time.Millisecond))
	return session, nil
}

// Session は ID でセッションを取得します。
func (m *Manager) Session(ctx context.Context, id string) (domain.Session, bool) {
	return m.sessions.Get(ctx, id)
}

// SplitScenes はストーリーをシーンに分割します。オラクルは使用しません。
func (m *Manager) SplitScenes(story string, maxWords int) []string {
	return parser.SplitScenes(story, maxWords)
}

// StyleGuide はストーリーとスタイルからスタイルガイドを生成します。
func (m *Manager) StyleGuide(ctx context.Context, story, style string) (string, error) {
	if err := m.requireOracle(); err != nil {
		return "", err
	}
	return m.prompts.StyleGuide(ctx, story, style)
}

// Prompts はシーンごとの画像プロンプトを生成します。sessionID が有効な場合はセッションにも保存します。
func (m *Manager) Prompts(ctx context.Context, scenes []string, styleGuide, style, sessionID string) ([]string, error) {
	if err := m.requireOracle(); err != nil {
		return nil, err
	}

	panelPrompts, err := m.prompts.PanelPrompts(ctx, scenes, styleGuide, style)
	if err != nil {
		return nil, fmt.Errorf("パネルプロンプトの生成に失敗しました: %w", err)
	}

	m.updateSession(ctx, sessionID, domain.SessionPatch{Prompts: panelPrompts})
	return panelPrompts, nil
}

// Images はプロンプトごとにパネル画像を生成し、公開 URL をパネル番号順に返します。
// sessionID が有効な場合はセッションにも保存します。
func (m *Manager) Images(ctx context.Context, panelPrompts []string, sessionID string) ([]string, error) {
	if err := m.requireOracle(); err != nil {
		return nil, err
	}

	paths, err := m.panels.Execute(ctx, panelPrompts)
	if err != nil {
		return nil, fmt.Errorf("パネル画像の生成に失敗しました: %w", err)
	}

	urls := panelURLs(paths)
	m.updateSession(ctx, sessionID, domain.SessionPatch{ImagePaths: urls})
	return urls, nil
}

// GeneratedImages は画像ディレクトリ内のパネル画像の公開 URL をパネル番号順に返します。
func (m *Manager) GeneratedImages() ([]string, error) {
	paths, err := asset.ListPanelFiles(m.cfg.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("画像一覧の取得に失敗しました: %w", err)
	}
	return panelURLs(paths), nil
}

func (m *Manager) updateSession(ctx context.Context, sessionID string, patch domain.SessionPatch) {
	if sessionID == "" {
		return
	}
	if _, err := m.sessions.Update(ctx, sessionID, patch); err != nil {
		slog.WarnContext(ctx, "セッションの更新に失敗しました", "session_id", sessionID, "error", err)
	}
}

func panelURLs(paths []string) []string {
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		if idx, ok := asset.ParsePanelIndex(p); ok {
			urls = append(urls, asset.PanelURL(idx))
		}
	}
	return urls
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/publisher"
)

// ExportRequest は PDF エクスポートの入力です。
type ExportRequest struct {
	SessionID     string
	Title         string
	SaveToLibrary bool
}

// ExportResult は PDF エクスポートの結果です。
type ExportResult struct {
	Title    string
	FileName string
	Path     string // ライブラリ内の PDF のパス
	URL      string // 公開 URL (/library/pdfs/...)
	Pages    int
	Item     *domain.LibraryItem // SaveToLibrary でライブラリに保存した場合のみ
}

// ExportInfo は最新のエクスポート結果のファイル情報です。
type ExportInfo struct {
	Path       string
	Size       int64
	ModifiedAt time.Time
}

// Export は、セッションの画像 (なければ画像ディレクトリの一覧) から PDF を生成して保存します。
// 画像が 1 枚もない場合は publisher.ErrNoImages を返します。
func (m *Manager) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	startTime := time.Now()
	session, hasSession := m.sessions.Get(ctx, req.SessionID)

	// 1. 画像の収集
	sources, err := m.exportSources(session, hasSession)
	if err != nil {
		return ExportResult{}, err
	}
	if len(sources) == 0 {
		return ExportResult{}, publisher.ErrNoImages
	}

	// 2. タイトルとファイル名の決定
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = m.titles.Generate(ctx, session.Story, session.Style)
	}
	fileName := publisher.BuildPDFFileName(title)
	pdfPath := publisher.LibraryPDFPath(m.cfg.LibraryDir, fileName)

	// 3. PDF の生成
	pages, err := m.assembler.WithTitle(title).AssembleFile(ctx, sources, pdfPath)
	if err != nil {
		return ExportResult{}, fmt.Errorf("PDF の生成に失敗しました: %w", err)
	}

	// 4. 最新のエクスポートとして画像ディレクトリにも複製する
	if err := copyFile(pdfPath, m.latestExportPath()); err != nil {
		slog.WarnContext(ctx, "最新エクスポートの複製に失敗しました", "error", err)
	}

	result := ExportResult{
		Title:    title,
		FileName: fileName,
		Path:     pdfPath,
		URL:      publisher.LibraryPDFURL(fileName),
		Pages:    pages,
	}

	// 5. ライブラリへの保存
	if req.SaveToLibrary && hasSession {
		item, err := m.library.Create(ctx, domain.LibraryItem{
			Title:      title,
			Story:      session.Story,
			Style:      session.Style,
			Scenes:     session.Scenes,
			StyleGuide: session.StyleGuide,
			Prompts:    session.Prompts,
			Images:     session.ImagePaths,
			PDFPath:    result.URL,
		})
		if err != nil {
			return ExportResult{}, fmt.Errorf("ライブラリへの保存に失敗しました: %w", err)
		}
		result.Item = &item
	}

	slog.InfoContext(ctx, "PDF をエクスポートしました",
		"title", title,
		"pages", pages,
		"path", pdfPath,
		"saved_to_library", result.Item != nil,
		"duration", time.Since(startTime).Round(time.Millisecond))
	return result, nil
}

// LatestExport は最新のエクスポート結果の情報を返します。存在しない場合は os.ErrNotExist を返します。
func (m *Manager) LatestExport() (ExportInfo, error) {
	path := m.latestExportPath()
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ExportInfo{}, os.ErrNotExist
		}
		return ExportInfo{}, fmt.Errorf("エクスポート結果の確認に失敗しました: %w", err)
	}
	return ExportInfo{Path: path, Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

func (m *Manager) latestExportPath() string {
	return filepath.Join(m.cfg.ImagesDir, asset.DefaultPDFFileName)
}

// exportSources はセッションの画像を優先し、なければ画像ディレクトリの一覧をパネル番号順に返します。
func (m *Manager) exportSources(session domain.Session, hasSession bool) ([]publisher.ImageSource, error) {
	var paths []string
	if hasSession && len(session.ImagePaths) > 0 {
		for _, p := range session.ImagePaths {
			paths = append(paths, publisher.ResolveImagePath(m.cfg.ImagesDir, p, asset.ImageURLPrefix))
		}
		paths = asset.SortPanelPaths(paths)
	} else {
		listed, err := asset.ListPanelFiles(m.cfg.ImagesDir)
		if err != nil {
			return nil, fmt.Errorf("画像一覧の取得に失敗しました: %w", err)
		}
		paths = listed
	}

	sources := make([]publisher.ImageSource, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			sources = append(sources, publisher.ImageSource{URL: p})
			continue
		}
		sources = append(sources, publisher.ImageSource{Path: p})
	}
	return sources, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return asset.WriteFileAtomic(dst, data)
}

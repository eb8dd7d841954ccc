package asset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultImageDir は生成されたパネル画像を格納するデフォルトのディレクトリ名です。
	DefaultImageDir = "generated"
	// DefaultPanelFileName はパネル画像の共通のベースファイル名です。
	DefaultPanelFileName = "panel.png"
	// DefaultPDFFileName は最新のエクスポート結果を置くファイル名です。
	DefaultPDFFileName = "comic_book.pdf"
	// ImageURLPrefix は静的配信されるパネル画像の URL プレフィックスです。
	ImageURLPrefix = "/images/"
)

// PanelFileRegex はパネル画像 (panel_0.png 等) に一致します。
var PanelFileRegex = createIndexedRegex(DefaultPanelFileName)

// PanelFileName は、パネル番号 (0 始まり) からファイル名を生成します。
// 例: 3 -> "panel_3.png"
func PanelFileName(index int) string {
	ext := filepath.Ext(DefaultPanelFileName)
	base := strings.TrimSuffix(DefaultPanelFileName, ext)
	return fmt.Sprintf("%s_%d%s", base, index, ext)
}

// PanelPath は、ディレクトリとパネル番号からファイルパスを返します。
func PanelPath(dir string, index int) string {
	return filepath.Join(dir, PanelFileName(index))
}

// PanelURL は、パネル番号から配信用の相対 URL を返します。
func PanelURL(index int) string {
	return ImageURLPrefix + PanelFileName(index)
}

// ParsePanelIndex は、パスまたは URL の末尾のファイル名からパネル番号を復元します。
// 命名規約に一致しない場合は false を返します。
func ParsePanelIndex(path string) (int, bool) {
	name := filepath.Base(filepath.FromSlash(path))
	if !PanelFileRegex.MatchString(name) {
		return 0, false
	}

	ext := filepath.Ext(name)
	digits := strings.TrimSuffix(name, ext)
	digits = digits[strings.LastIndex(digits, "_")+1:]

	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// SortPanelPaths は、埋め込まれたパネル番号の数値順にパスを並べ替えた新しいスライスを返します。
// 規約外のファイルは末尾に元の順序のまま残ります。
func SortPanelPaths(paths []string) []string {
	sorted := slices.Clone(paths)
	slices.SortStableFunc(sorted, func(a, b string) int {
		ai, aok := ParsePanelIndex(a)
		bi, bok := ParsePanelIndex(b)
		switch {
		case aok && bok:
			return ai - bi
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// ListPanelFiles は、ディレクトリ内のパネル画像をパネル番号順に返します。
// ディレクトリが存在しない場合は空のスライスを返します。
func ListPanelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("画像ディレクトリの読み込みに失敗しました (%s): %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !PanelFileRegex.MatchString(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return SortPanelPaths(paths), nil
}

// CleanupPanels は、以前の生成で残ったパネル画像を削除し、削除した件数を返します。
// 個別の削除失敗はログに残して処理を続行します。
func CleanupPanels(dir string) (int, error) {
	paths, err := ListPanelFiles(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("古いパネル画像の削除に失敗しました", "path", p, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "panel.png" -> ^panel_\d+\.png$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)

	pattern := fmt.Sprintf(`^%s_\d+%s$`, regexp.QuoteMeta(baseName), regexp.QuoteMeta(ext))
	return regexp.MustCompile(pattern)
}

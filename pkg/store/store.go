// Package store は、セッション・ライブラリ・設定の永続化を提供します。
// セッションはプロセスメモリ上に、ライブラリと設定は JSON ファイルとして保存されます。
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shouni/go-comic-kit/pkg/asset"
)

// ErrNotFound は指定された ID のレコードが存在しないことを示します。
var ErrNotFound = errors.New("レコードが見つかりません")

// readJSON は path の JSON を v にデコードします。ファイルが存在しない場合は false を返します。
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("ファイルの読み込みに失敗しました (%s): %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("JSON のデコードに失敗しました (%s): %w", path, err)
	}
	return true, nil
}

// writeJSON は v を整形した JSON としてアトミックに書き込みます。
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON のエンコードに失敗しました: %w", err)
	}
	if err := asset.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("ファイルの書き込みに失敗しました (%s): %w", path, err)
	}
	return nil
}

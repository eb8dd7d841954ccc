package domain

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var stylesYAML []byte

// Style は選択可能な画風の定義です。
type Style struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type styleCatalog struct {
	Styles []Style `yaml:"styles"`
}

var (
	cachedStyles []Style
	stylesOnce   sync.Once
	stylesErr    error
)

// LoadStyles は埋め込まれたスタイルカタログを返します。
// 内部キャッシュが変更されないよう、呼び出しごとにコピーを返します。
func LoadStyles() ([]Style, error) {
	stylesOnce.Do(func() {
		styles, err := parseStyles(stylesYAML)
		if err != nil {
			stylesErr = err
			return
		}
		cachedStyles = styles
	})
	if stylesErr != nil {
		return nil, stylesErr
	}
	return slices.Clone(cachedStyles), nil
}

// FindStyle は ID (大文字小文字を区別しない) でスタイルを検索します。
func FindStyle(id string) (Style, bool) {
	styles, err := LoadStyles()
	if err != nil {
		return Style{}, false
	}
	for _, s := range styles {
		if strings.EqualFold(s.ID, id) {
			return s, true
		}
	}
	return Style{}, false
}

// parseStyles は YAML バイト列からスタイル一覧をパースします。
func parseStyles(data []byte) ([]Style, error) {
	var catalog styleCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("スタイルカタログのデコードに失敗しました: %w", err)
	}
	if len(catalog.Styles) == 0 {
		return nil, fmt.Errorf("スタイルカタログが空です")
	}
	for i, s := range catalog.Styles {
		if s.ID == "" {
			return nil, fmt.Errorf("スタイル %d に id がありません", i)
		}
	}
	return catalog.Styles, nil
}

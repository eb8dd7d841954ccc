package prompts

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrUnknownMode は登録されていないモードが指定されたことを示します。
var ErrUnknownMode = errors.New("不明なモードです")

// PromptBuilder は、AIプロンプトを構築する契約です。
type PromptBuilder interface {
	Build(mode string, data TemplateData) (string, error)
}

type compiledMode struct {
	tmpl  *template.Template
	check func(TemplateData) error
}

// TextPromptBuilder は、モードごとの解析済みテンプレートと入力チェックを保持します。
type TextPromptBuilder struct {
	modes map[string]compiledMode
}

// NewTextPromptBuilder は埋め込みテンプレートをすべて解析して TextPromptBuilder を初期化します。
// 未定義のフィールドを参照するテンプレートは実行時にエラーになります。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	modes := make(map[string]compiledMode, len(modeSpecs))
	for mode, ms := range modeSpecs {
		if strings.TrimSpace(ms.source) == "" {
			return nil, fmt.Errorf("埋め込みテンプレート '%s' が空です", mode)
		}
		tmpl, err := template.New(mode).Option("missingkey=error").Parse(ms.source)
		if err != nil {
			return nil, fmt.Errorf("テンプレート '%s' の解析に失敗しました: %w", mode, err)
		}
		modes[mode] = compiledMode{tmpl: tmpl, check: ms.check}
	}
	return &TextPromptBuilder{modes: modes}, nil
}

// Build は data を検証してから mode のテンプレートを実行し、前後の空白を除いたプロンプトを返します。
func (b *TextPromptBuilder) Build(mode string, data TemplateData) (string, error) {
	m, ok := b.modes[mode]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrUnknownMode, mode)
	}
	if m.check != nil {
		if err := m.check(data); err != nil {
			return "", fmt.Errorf("モード '%s': %w", mode, err)
		}
	}

	var sb strings.Builder
	if err := m.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("テンプレート '%s' の実行に失敗しました: %w", mode, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

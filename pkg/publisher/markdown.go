package publisher

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed script.html
var scriptPageTemplate string

const noPromptLabel = "(none)"

// ScriptPublisher は、ライブラリ項目をコミックの台本 (Markdown) として出力し、プレビュー用の HTML に変換します。
type ScriptPublisher struct {
	md   goldmark.Markdown
	page *template.Template
}

// NewScriptPublisher は ScriptPublisher を初期化します。
func NewScriptPublisher() (*ScriptPublisher, error) {
	page, err := template.New("script").Parse(scriptPageTemplate)
	if err != nil {
		return nil, fmt.Errorf("台本ページテンプレートの解析に失敗しました: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &ScriptPublisher{md: md, page: page}, nil
}

// Build は、タイトル・スタイル・パネルごとの画像とシーンとプロンプトを含む Markdown を生成します。
func (p *ScriptPublisher) Build(item domain.LibraryItem) string {
	var sb strings.Builder

	// 1. タイトルとメタ情報
	sb.WriteString(fmt.Sprintf("# %s\n\n", item.Title))
	sb.WriteString(fmt.Sprintf("- style: %s\n", item.Style))
	sb.WriteString(fmt.Sprintf("- panels: %d\n", len(item.Scenes)))
	if !item.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("- created: %s\n", item.CreatedAt.Format("2006-01-02 15:04")))
	}
	sb.WriteString("\n")

	if item.StyleGuide != "" {
		sb.WriteString("## Style Guide\n\n")
		sb.WriteString(strings.TrimSpace(item.StyleGuide))
		sb.WriteString("\n\n")
	}

	// 2. パネルごとの画像・シーン・プロンプト
	for i, scene := range item.Scenes {
		sb.WriteString(fmt.Sprintf("## Panel %d\n\n", i+1))
		if i < len(item.Images) && item.Images[i] != "" {
			sb.WriteString(fmt.Sprintf("![Panel %d](%s)\n\n", i+1, item.Images[i]))
		}
		sb.WriteString(fmt.Sprintf("> %s\n\n", strings.TrimSpace(scene)))

		prompt := noPromptLabel
		if i < len(item.Prompts) && strings.TrimSpace(item.Prompts[i]) != "" {
			prompt = strings.TrimSpace(item.Prompts[i])
		}
		sb.WriteString(fmt.Sprintf("- prompt: %s\n\n", prompt))
	}

	if item.PDFPath != "" {
		sb.WriteString(fmt.Sprintf("[Download PDF](%s)\n", item.PDFPath))
	}
	return sb.String()
}

// RenderHTML は Build の結果を HTML ページに変換します。
func (p *ScriptPublisher) RenderHTML(item domain.LibraryItem) ([]byte, error) {
	var body bytes.Buffer
	if err := p.md.Convert([]byte(p.Build(item)), &body); err != nil {
		return nil, fmt.Errorf("Markdown の変換に失敗しました: %w", err)
	}

	var out bytes.Buffer
	err := p.page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: item.Title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("台本ページの生成に失敗しました: %w", err)
	}
	return out.Bytes(), nil
}

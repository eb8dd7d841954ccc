package prompts

import (
	_ "embed"
	"errors"
	"fmt"
)

const (
	ModeStyleGuide = "style_guide"
	ModePanel      = "panel"
	ModeImage      = "image"
	ModeTitle      = "title"
)

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
// モードごとに使用するフィールドは異なります。
type TemplateData struct {
	Story            string
	Style            string
	StyleDescription string
	StyleGuide       string
	Scene            string
	PrevScene        string
	PanelNumber      int
	Prompt           string
}

var (
	//go:embed style_guide.md
	styleGuideTemplate string
	//go:embed panel.md
	panelTemplate string
	//go:embed image.md
	imageTemplate string
	//go:embed title.md
	titleTemplate string
)

// ErrInvalidData は、モードが必要とするフィールドが TemplateData に不足していることを示します。
var ErrInvalidData = errors.New("プロンプトデータが不正です")

// modeSpec は 1 モード分のテンプレートと入力チェックです。
// 空のパネルプロンプトでも画像生成は続行するため、image モードにはチェックがありません。
type modeSpec struct {
	source string
	check  func(TemplateData) error
}

var modeSpecs = map[string]modeSpec{
	ModeStyleGuide: {source: styleGuideTemplate, check: requireStory},
	ModePanel:      {source: panelTemplate, check: requirePanelNumber},
	ModeImage:      {source: imageTemplate},
	ModeTitle:      {source: titleTemplate},
}

func requireStory(d TemplateData) error {
	if d.Story == "" {
		return fmt.Errorf("%w: Story は必須です", ErrInvalidData)
	}
	return nil
}

func requirePanelNumber(d TemplateData) error {
	if d.PanelNumber < 1 {
		return fmt.Errorf("%w: PanelNumber は 1 以上である必要があります (%d)", ErrInvalidData, d.PanelNumber)
	}
	return nil
}

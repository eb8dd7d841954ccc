package generator

import (
	"context"
)

// TextGenerator は、プロンプトからテキストを生成するオラクルの契約です。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator は、プロンプトから画像を生成するオラクルの契約です。
// 応答に画像が含まれない場合は nil, nil を返します。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*ImageData, error)
}

// ImageData はオラクルから返された画像のバイト列と MIME タイプです。
type ImageData struct {
	Data     []byte
	MIMEType string
}

// PanelsImageGenerator は、プロンプト列からパネル画像を生成しファイルパスを返す契約です。
type PanelsImageGenerator interface {
	Execute(ctx context.Context, prompts []string) ([]string, error)
}

package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shouni/go-comic-kit/pkg/asset"

	"github.com/go-pdf/fpdf"
)

// ErrNoImages は PDF に使用できる画像が 1 枚もないことを示します。
var ErrNoImages = errors.New("PDF に使用できる画像がありません")

const (
	FormatPNG  = "PNG"
	FormatJPEG = "JPG"

	pdfCreator = "go-comic-kit"
)

// ImageSource は PDF の 1 ページ分の画像の取得元です。
// Data, Path, URL の順に最初に設定されているものを使用します。
type ImageSource struct {
	Path   string
	URL    string
	Data   []byte
	Format string // 空の場合は内容から判定します
}

// Fetcher は URL から画像を取得する契約です。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PDFAssembler は、画像列を 1 画像 1 ページの PDF にまとめます。
type PDFAssembler struct {
	fetcher Fetcher
	title   string
}

// NewPDFAssembler は PDFAssembler を初期化します。fetcher が nil の場合は URL の画像をスキップします。
func NewPDFAssembler(fetcher Fetcher) *PDFAssembler {
	return &PDFAssembler{fetcher: fetcher}
}

// WithTitle は PDF のメタデータに設定するタイトルを指定したコピーを返します。
func (a *PDFAssembler) WithTitle(title string) *PDFAssembler {
	c := *a
	c.title = title
	return &c
}

// Assemble は sources を順にページとして追加し、w に PDF を書き出します。
// 各ページの大きさは画像のピクセル寸法と同じポイント数になり、画像は余白なしで配置されます。
// 読み込めない画像は警告を出してスキップします。
func (a *PDFAssembler) Assemble(ctx context.Context, sources []ImageSource, w io.Writer) (int, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(pdfCreator, true)
	if a.title != "" {
		pdf.SetTitle(a.title, true)
	}

	startTime := time.Now()
	pages := 0
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		logger := slog.With("page_index", i)

		// 1. 画像の取得と形式の判定
		data, err := a.load(ctx, src)
		if err != nil {
			logger.Warn("画像の読み込みに失敗したためスキップします", "error", err)
			continue
		}
		format, cfg, err := inspectImage(data, src.Format)
		if err != nil {
			logger.Warn("サポートされていない画像のためスキップします", "error", err)
			continue
		}

		// 2. 画像の登録。失敗した場合はエラー状態を解除して次へ進む
		name := fmt.Sprintf("page_%d", i)
		opts := fpdf.ImageOptions{ImageType: format}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if !pdf.Ok() {
			logger.Warn("画像の登録に失敗したためスキップします", "error", pdf.Error())
			pdf.ClearError()
			continue
		}

		// 3. 画像と同じ大きさのページに全面配置
		width, height := float64(cfg.Width), float64(cfg.Height)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
		pdf.ImageOptions(name, 0, 0, width, height, false, opts, 0, "")
		pages++
	}

	if pages == 0 {
		return 0, ErrNoImages
	}
	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("PDF の書き出しに失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "PDF を生成しました",
		"pages", pages,
		"requested", len(sources),
		"duration", time.Since(startTime).Round(time.Millisecond))
	return pages, nil
}

// AssembleFile は Assemble の結果を path に書き出します。失敗した場合は書きかけのファイルを残しません。
func (a *PDFAssembler) AssembleFile(ctx context.Context, sources []ImageSource, path string) (int, error) {
	var buf bytes.Buffer
	pages, err := a.Assemble(ctx, sources, &buf)
	if err != nil {
		return 0, err
	}
	if err := asset.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("PDF ファイルの保存に失敗しました (%s): %w", path, err)
	}
	return pages, nil
}

func (a *PDFAssembler) load(ctx context.Context, src ImageSource) ([]byte, error) {
	switch {
	case len(src.Data) > 0:
		return src.Data, nil
	case src.Path != "":
		return os.ReadFile(src.Path)
	case src.URL != "":
		if a.fetcher == nil {
			return nil, fmt.Errorf("URL の取得手段が設定されていません: %s", src.URL)
		}
		return a.fetcher.Fetch(ctx, src.URL)
	default:
		return nil, errors.New("画像の取得元が指定されていません")
	}
}

// inspectImage は画像形式を判定し、寸法を読み取ります。PNG と JPEG のみを受け付けます。
func inspectImage(data []byte, hint string) (string, image.Config, error) {
	format := hint
	if format == "" {
		switch http.DetectContentType(data) {
		case "image/png":
			format = FormatPNG
		case "image/jpeg":
			format = FormatJPEG
		default:
			return "", image.Config{}, fmt.Errorf("未対応の画像形式です: %s", http.DetectContentType(data))
		}
	}
	if format != FormatPNG && format != FormatJPEG {
		return "", image.Config{}, fmt.Errorf("未対応の画像形式です: %s", format)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", image.Config{}, fmt.Errorf("画像のデコードに失敗しました: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", image.Config{}, fmt.Errorf("画像の寸法が不正です: %dx%d", cfg.Width, cfg.Height)
	}
	return format, cfg, nil
}

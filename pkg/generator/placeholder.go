package generator

import (
	"bytes"
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
)

const (
	placeholderSize   = 512
	groundRatio       = 0.7
	borderWidth       = 4.0
	characterXRatio   = 0.3
	objectXRatio      = 0.7
	propYRatio        = 0.6
	sunX, sunY, sunR  = 410.0, 100.0, 40.0
	characterHex      = "#FF6B35"
	outlineHex        = "#333333"
	crystalHex        = "#00FFFF"
	crystalOutlineHex = "#0066CC"
)

var (
	outdoorRegex   = regexp.MustCompile(`forest|tree|outdoor|nature|garden|field|sky|sun|mountain|clearing`)
	characterRegex = regexp.MustCompile(`fox|character|person|animal|luna|hero|brave`)
	objectRegex    = regexp.MustCompile(`crystal|treasure|book|sword|magic|glowing|gem|stone`)
	darkMoodRegex  = regexp.MustCompile(`dark|mysterious|scary|ominous`)
	brightRegex    = regexp.MustCompile(`happy|bright|cheerful|vibrant`)
	nightRegex     = regexp.MustCompile(`night|dark|moon|evening`)
)

// SceneAnalysis はプロンプトのキーワードから推定した場面の特徴です。
type SceneAnalysis struct {
	IsOutdoor    bool
	HasCharacter bool
	HasObject    bool
	Mood         string // dark, bright, neutral
	TimeOfDay    string // night, day
}

// AnalyzePrompt はプロンプトを小文字化し、キーワードで場面を分類します。
func AnalyzePrompt(prompt string) SceneAnalysis {
	lower := strings.ToLower(prompt)

	a := SceneAnalysis{
		IsOutdoor:    outdoorRegex.MatchString(lower),
		HasCharacter: characterRegex.MatchString(lower),
		HasObject:    objectRegex.MatchString(lower),
		Mood:         "neutral",
		TimeOfDay:    "day",
	}
	switch {
	case darkMoodRegex.MatchString(lower):
		a.Mood = "dark"
	case brightRegex.MatchString(lower):
		a.Mood = "bright"
	}
	if nightRegex.MatchString(lower) {
		a.TimeOfDay = "night"
	}
	return a
}

// Palette は背景の配色です。
type Palette struct {
	Sky    string
	Ground string
}

// PaletteFor は場面の特徴から背景色を決定します。夜 > 暗い雰囲気 > 屋外 > 屋内 の優先順です。
func PaletteFor(a SceneAnalysis) Palette {
	switch {
	case a.TimeOfDay == "night":
		return Palette{Sky: "#1a1a2e", Ground: "#16213e"}
	case a.Mood == "dark":
		return Palette{Sky: "#4a4a4a", Ground: "#2d2d2d"}
	case a.IsOutdoor:
		return Palette{Sky: "#87CEEB", Ground: "#228B22"}
	default:
		return Palette{Sky: "#F0F8FF", Ground: "#8B4513"}
	}
}

// RenderPlaceholder は、プロンプトの解析結果を反映した簡単なベクターシーンを描画し PNG で返します。
// 同じプロンプトからは常に同じ画像が得られます。
func RenderPlaceholder(prompt string) ([]byte, error) {
	a := AnalyzePrompt(prompt)
	palette := PaletteFor(a)

	const w, h = float64(placeholderSize), float64(placeholderSize)
	dc := gg.NewContext(placeholderSize, placeholderSize)

	// 1. 空から地面へのグラデーション背景
	sky := gg.NewLinearGradient(0, 0, 0, h)
	sky.AddColorStop(0, mustHex(palette.Sky))
	sky.AddColorStop(1, mustHex(palette.Ground))
	dc.SetFillStyle(sky)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// 2. 屋外なら太陽
	if a.IsOutdoor {
		sun := gg.NewRadialGradient(sunX, sunY, 0, sunX, sunY, sunR)
		sun.AddColorStop(0, color.NRGBA{R: 0xFF, G: 0xE0, B: 0x66, A: 0xCC})
		sun.AddColorStop(1, color.NRGBA{R: 0xFF, G: 0xE0, B: 0x66, A: 0x00})
		dc.SetFillStyle(sun)
		dc.DrawCircle(sunX, sunY, sunR)
		dc.Fill()
	}

	// 3. 地面
	dc.SetColor(mustHex(palette.Ground))
	dc.DrawRectangle(0, h*groundRatio, w, h*(1-groundRatio))
	dc.Fill()
	if a.IsOutdoor {
		drawGrass(dc, h*groundRatio, w, h)
	}

	// 4. キャラクターと小物
	if a.HasCharacter {
		drawFox(dc, w*characterXRatio, h*propYRatio)
	}
	if a.HasObject {
		drawCrystal(dc, w*objectXRatio, h*propYRatio)
	}

	// 5. パネルの枠線
	dc.SetColor(color.Black)
	dc.SetLineWidth(borderWidth)
	dc.DrawRoundedRectangle(2, 2, w-4, h-4, 8)
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("プレースホルダー画像のエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

func drawGrass(dc *gg.Context, top, w, h float64) {
	dc.SetColor(mustHex("#2D5016"))
	dc.SetLineWidth(1)
	for y := top + 8; y <= h; y += 8 {
		for x := 0.0; x < w; x += 8 {
			dc.MoveTo(x+2, y)
			dc.QuadraticTo(x+4, y-2, x+6, y)
		}
	}
	dc.Stroke()
}

func drawFox(dc *gg.Context, x, y float64) {
	dc.Push()
	defer dc.Pop()
	dc.Translate(x, y)

	fill := mustHex(characterHex)
	outline := mustHex(outlineHex)

	shape := func(draw func(), lineWidth float64) {
		draw()
		dc.SetColor(fill)
		dc.FillPreserve()
		dc.SetColor(outline)
		dc.SetLineWidth(lineWidth)
		dc.Stroke()
	}

	shape(func() { dc.DrawEllipse(-30, 5, 15, 8) }, 2) // しっぽ
	shape(func() { dc.DrawEllipse(0, 0, 25, 15) }, 2)  // 胴体
	shape(func() { dc.DrawCircle(0, -25, 20) }, 2)     // 頭
	shape(func() { triangle(dc, -15, -35, -10, -45, -5, -35) }, 1)
	shape(func() { triangle(dc, 5, -35, 10, -45, 15, -35) }, 1)

	dc.SetColor(color.Black)
	dc.DrawCircle(-8, -28, 3)
	dc.DrawCircle(8, -28, 3)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawCircle(-7, -29, 1)
	dc.DrawCircle(9, -29, 1)
	dc.Fill()
	dc.SetColor(color.Black)
	triangle(dc, 0, -20, -2, -18, 2, -18)
	dc.Fill()
}

func drawCrystal(dc *gg.Context, x, y float64) {
	dc.Push()
	defer dc.Pop()
	dc.Translate(x, y)

	// 光の輪
	dc.SetRGBA(0, 1, 1, 0.2)
	dc.DrawCircle(0, -5, 25)
	dc.Fill()

	dc.MoveTo(0, -20)
	dc.LineTo(-10, 0)
	dc.LineTo(0, 15)
	dc.LineTo(10, 0)
	dc.ClosePath()
	c := mustHex(crystalHex)
	c.A = 0xCC
	dc.SetColor(c)
	dc.FillPreserve()
	dc.SetColor(mustHex(crystalOutlineHex))
	dc.SetLineWidth(2)
	dc.Stroke()

	dc.MoveTo(0, -15)
	dc.LineTo(-5, 0)
	dc.LineTo(0, 10)
	dc.LineTo(5, 0)
	dc.ClosePath()
	dc.SetRGBA(1, 1, 1, 0.6)
	dc.Fill()
}

func triangle(dc *gg.Context, x1, y1, x2, y2, x3, y3 float64) {
	dc.MoveTo(x1, y1)
	dc.LineTo(x2, y2)
	dc.LineTo(x3, y3)
	dc.ClosePath()
}

// mustHex は "#RRGGBB" をパースします。定数にのみ使用します。
func mustHex(hex string) color.NRGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		panic(fmt.Sprintf("不正なカラーコードです: %s", hex))
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

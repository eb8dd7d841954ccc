package publisher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/prompts"
)

const (
	titleStoryLimit     = 500
	maxFileNameRunes    = 60
	fallbackTitleLayout = "20060102T1504"
	defaultFileBase     = "comic"
)

var (
	quoteReplacer       = strings.NewReplacer(`"`, "", `'`, "", "“", "", "”", "")
	unsafeFileNameRegex = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
)

// TitleGenerator は、テキストオラクルでストーリーからコミックのタイトルを生成します。
type TitleGenerator struct {
	text    generator.TextGenerator
	builder prompts.PromptBuilder
	now     func() time.Time
}

// NewTitleGenerator は TitleGenerator を初期化します。
func NewTitleGenerator(text generator.TextGenerator, builder prompts.PromptBuilder) *TitleGenerator {
	return &TitleGenerator{
		text:    text,
		builder: builder,
		now:     time.Now,
	}
}

// Generate はタイトルを生成します。オラクルの失敗や空の応答の場合は日時ベースのタイトルを返します。
func (g *TitleGenerator) Generate(ctx context.Context, story, style string) string {
	fallback := "Comic-" + g.now().UTC().Format(fallbackTitleLayout)
	if g.text == nil || g.builder == nil {
		return fallback
	}

	prompt, err := g.builder.Build(prompts.ModeTitle, prompts.TemplateData{
		Story: truncateRunes(story, titleStoryLimit),
		Style: style,
	})
	if err != nil {
		slog.WarnContext(ctx, "タイトル用プロンプトの生成に失敗しました", "error", err)
		return fallback
	}

	raw, err := g.text.GenerateText(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "タイトルの生成に失敗したため既定のタイトルを使用します", "error", err)
		return fallback
	}

	title := strings.TrimSpace(quoteReplacer.Replace(strings.TrimSpace(raw)))
	if title == "" {
		return fallback
	}
	return title
}

// BuildPDFFileName はタイトルから "<sanitized>_<6桁の16進数>.pdf" 形式のファイル名を生成します。
func BuildPDFFileName(title string) string {
	base := strings.ToLower(strings.Trim(unsafeFileNameRegex.ReplaceAllString(title, "_"), "_"))
	base = truncateRunes(base, maxFileNameRunes)
	if base == "" {
		base = defaultFileBase
	}
	return fmt.Sprintf("%s_%s.pdf", base, randomHex(3))
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b) // Go 1.24 以降 crypto/rand.Read はエラーを返さない
	return hex.EncodeToString(b)
}

package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shouni/go-comic-kit/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubText struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubText) GenerateText(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func newTitleGenerator(t *testing.T, text *stubText) *TitleGenerator {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	require.NoError(t, err)
	g := NewTitleGenerator(text, pb)
	g.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 15, 0, time.UTC) }
	return g
}

func TestTitleGenerator_Generate(t *testing.T) {
	t.Run("引用符と空白が除去されること", func(t *testing.T) {
		text := &stubText{reply: "  \"The Crystal Fox\"\n"}
		g := newTitleGenerator(t, text)

		got := g.Generate(context.Background(), "A fox finds a crystal.", "manga")
		assert.Equal(t, "The Crystal Fox", got)
		require.Len(t, text.prompts, 1)
		assert.Contains(t, text.prompts[0], "Story: A fox finds a crystal....")
		assert.Contains(t, text.prompts[0], "Style: manga")
	})

	t.Run("ストーリーは 500 文字で切り詰められること", func(t *testing.T) {
		text := &stubText{reply: "Long Tale"}
		g := newTitleGenerator(t, text)

		story := strings.Repeat("a", 500) + "TAIL"
		g.Generate(context.Background(), story, "noir")
		assert.NotContains(t, text.prompts[0], "TAIL")
		assert.Contains(t, text.prompts[0], strings.Repeat("a", 500)+"...")
	})

	t.Run("オラクルの失敗時は日時ベースのタイトルになること", func(t *testing.T) {
		g := newTitleGenerator(t, &stubText{err: errors.New("unavailable")})
		assert.Equal(t, "Comic-20261018T0930", g.Generate(context.Background(), "story", "manga"))
	})

	t.Run("空の応答でも日時ベースのタイトルになること", func(t *testing.T) {
		g := newTitleGenerator(t, &stubText{reply: ` "" `})
		assert.Equal(t, "Comic-20261018T0930", g.Generate(context.Background(), "story", "manga"))
	})
}

func TestBuildPDFFileName(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		pattern string
	}{
		{"英数字は小文字化される", "My Great Comic!", `^my_great_comic_[0-9a-f]{6}\.pdf$`},
		{"パス区切りは置換される", "../etc/passwd", `^etc_passwd_[0-9a-f]{6}\.pdf$`},
		{"日本語はそのまま残る", "猫の冒険", `^猫の冒険_[0-9a-f]{6}\.pdf$`},
		{"空のタイトル", "   ", `^comic_[0-9a-f]{6}\.pdf$`},
		{"ハイフンは保持される", "Fox-Tale 2", `^fox-tale_2_[0-9a-f]{6}\.pdf$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, tt.pattern, BuildPDFFileName(tt.title))
		})
	}

	t.Run("長いタイトルは 60 文字に切り詰められること", func(t *testing.T) {
		name := BuildPDFFileName(strings.Repeat("長", 100))
		base := strings.TrimSuffix(name, ".pdf")
		base = base[:strings.LastIndex(base, "_")]
		assert.Equal(t, 60, utf8.RuneCountInString(base))
	})

	t.Run("同じタイトルでも衝突しないこと", func(t *testing.T) {
		assert.NotEqual(t, BuildPDFFileName("same"), BuildPDFFileName("same"))
	})
}

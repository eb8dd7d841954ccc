package generator

import (
	"time"

	"github.com/shouni/go-comic-kit/pkg/prompts"
)

// Pacing は画像生成の間隔・リトライ・検証の各パラメータです。
type Pacing struct {
	PanelDelayBase time.Duration // 2 枚目以降のパネル前に待つ基本時間
	PanelDelayStep time.Duration // パネル番号ごとの加算時間
	PanelDelayMax  time.Duration

	RetryDelayBase    time.Duration
	RetryDelayStep    time.Duration
	RetryDelayMax     time.Duration
	RateLimitDelayMax time.Duration // レート制限時は通常の 2 倍、この値が上限
	MaxRetries        uint64
	MinImageBytes     int
	CallTimeout       time.Duration
	PromptConcurrency int
}

// DefaultPacing は推奨される生成パラメータを返します。
func DefaultPacing() Pacing {
	return Pacing{
		PanelDelayBase:    2 * time.Second,
		PanelDelayStep:    500 * time.Millisecond,
		PanelDelayMax:     5 * time.Second,
		RetryDelayBase:    3 * time.Second,
		RetryDelayStep:    2 * time.Second,
		RetryDelayMax:     8 * time.Second,
		RateLimitDelayMax: 15 * time.Second,
		MaxRetries:        2,
		MinImageBytes:     100000,
		CallTimeout:       30 * time.Second,
		PromptConcurrency: 5,
	}
}

// PanelDelay は index 番目 (0 始まり) のパネルの前に待つ時間を返します。
// 最初のパネルは待ちません。
func (p Pacing) PanelDelay(index int) time.Duration {
	if index <= 0 {
		return 0
	}
	return min(p.PanelDelayBase+time.Duration(index)*p.PanelDelayStep, p.PanelDelayMax)
}

// RetryDelay は attempt 回目 (0 始まり) の失敗後に待つ時間を返します。
func (p Pacing) RetryDelay(attempt int, rateLimited bool) time.Duration {
	d := min(p.RetryDelayBase+time.Duration(attempt)*p.RetryDelayStep, p.RetryDelayMax)
	if rateLimited {
		d = min(d*2, p.RateLimitDelayMax)
	}
	return d
}

// ComicComposer は、テキスト・画像オラクルとプロンプトビルダーを束ね、各ジェネレーターから共有されます。
type ComicComposer struct {
	TextGenerator  TextGenerator
	ImageGenerator ImageGenerator
	PromptBuilder  prompts.PromptBuilder
	Pacing         Pacing
}

// NewComicComposer は ComicComposer の新しいインスタンスを生成します。
func NewComicComposer(
	textGen TextGenerator,
	imgGen ImageGenerator,
	pb prompts.PromptBuilder,
	pacing Pacing,
) *ComicComposer {
	return &ComicComposer{
		TextGenerator:  textGen,
		ImageGenerator: imgGen,
		PromptBuilder:  pb,
		Pacing:         pacing,
	}
}

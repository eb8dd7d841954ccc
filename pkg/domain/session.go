package domain

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// Session は、複数リクエストにまたがる生成工程の状態を保持します。
type Session struct {
	ID         string    `json:"id"`
	Story      string    `json:"story"`
	Style      string    `json:"style"`
	Scenes     []string  `json:"scenes"`
	StyleGuide string    `json:"styleGuide"`
	Prompts    []string  `json:"prompts"`
	ImagePaths []string  `json:"imagePaths"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SessionPatch は Session の部分更新です。nil のフィールドは変更しません。
type SessionPatch struct {
	Scenes     []string
	StyleGuide *string
	Prompts    []string
	ImagePaths []string
}

// Apply は patch の値を Session に反映したコピーを返します。
func (s Session) Apply(p SessionPatch) Session {
	if p.Scenes != nil {
		s.Scenes = slices.Clone(p.Scenes)
	}
	if p.StyleGuide != nil {
		s.StyleGuide = *p.StyleGuide
	}
	if p.Prompts != nil {
		s.Prompts = slices.Clone(p.Prompts)
	}
	if p.ImagePaths != nil {
		s.ImagePaths = slices.Clone(p.ImagePaths)
	}
	return s
}

// Clone はスライスを共有しない Session のコピーを返します。
func (s Session) Clone() Session {
	s.Scenes = slices.Clone(s.Scenes)
	s.Prompts = slices.Clone(s.Prompts)
	s.ImagePaths = slices.Clone(s.ImagePaths)
	return s
}

const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID は "session_<unixMillis>_<9文字のランダム英数字>" 形式の ID を生成します。
func NewSessionID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = sessionIDAlphabet[rand.IntN(len(sessionIDAlphabet))]
	}
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

package parser

import (
	"strings"
)

// DefaultMaxWordsPerScene は 1 シーンあたりの単語数の上限のデフォルト値です。
const DefaultMaxWordsPerScene = 35

// sentenceSeparator はストーリーを文に分割する区切り文字列です。
const sentenceSeparator = ". "

// SplitScenes は、ストーリーを文単位に分割し、単語数の上限に収まるようにシーンへまとめます。
// 次の文を加えると単語数が maxWords 以上になる時点で現在のシーンを確定し、その文から新しいシーンを始めます。
// 1 文だけで上限を超える場合でも分割はしません。
func SplitScenes(story string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWordsPerScene
	}

	story = strings.TrimSpace(story)
	scenes := []string{}
	if story == "" {
		return scenes
	}

	var current string
	for _, sentence := range strings.Split(story, sentenceSeparator) {
		if !strings.HasSuffix(sentence, ".") {
			sentence += "."
		}

		candidate := current + sentence + " "
		if CountWords(candidate) < maxWords {
			current = candidate
			continue
		}

		if scene := strings.TrimSpace(current); scene != "" {
			scenes = append(scenes, scene)
		}
		current = sentence + " "
	}

	if scene := strings.TrimSpace(current); scene != "" {
		scenes = append(scenes, scene)
	}
	return scenes
}

// CountWords は空白区切りの空でないトークン数を返します。
func CountWords(s string) int {
	return len(strings.Fields(s))
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shouni/go-comic-kit/examples"
)

// loadStory は、sample が true なら組み込みのサンプルを、そうでなければ readStory の結果を返すのだ。
func loadStory(stdin io.Reader, path string, sample bool) (string, error) {
	if sample {
		return examples.SampleStory(), nil
	}
	return readStory(stdin, path)
}

// readStory は、--story-file のファイルか標準入力からストーリーを読み込むのだ。
// path が "-" の場合も標準入力を使うのだ。
func readStory(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "", "-":
		if path == "" && !isStdin() {
			return "", fmt.Errorf("ストーリー（--story-file または標準入力）を指定してほしいのだ")
		}
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("ストーリーの読み込みに失敗しました: %w", err)
	}

	story := strings.TrimSpace(string(data))
	if story == "" {
		return "", fmt.Errorf("ストーリーが空なのだ")
	}
	return story, nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

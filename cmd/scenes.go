package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shouni/go-comic-kit/pkg/parser"

	"github.com/spf13/cobra"
)

var (
	scenesStoryFile string
	scenesMaxWords  int
	scenesSample    bool
)

// scenesCmd は、AI を使わずにストーリーをシーンに分割して JSON で出力するのだ。
var scenesCmd = &cobra.Command{
	Use:     "scenes",
	Short:   "ストーリーをシーンに分割して JSON で出力するのだ。",
	Example: "  cat story.txt | go-comic-kit scenes --max-words 20",
	RunE:    scenesCommand,
}

func init() {
	scenesCmd.Flags().StringVarP(&scenesStoryFile, "story-file", "f", "", "ストーリーのファイルパス（'-'で標準入力なのだ）。")
	scenesCmd.Flags().IntVar(&scenesMaxWords, "max-words", 0, "1 シーンあたりの最大単語数なのだ。")
	scenesCmd.Flags().BoolVar(&scenesSample, "sample", false, "組み込みのサンプルストーリーを使うのだ。")
}

func scenesCommand(cmd *cobra.Command, args []string) error {
	story, err := loadStory(cmd.InOrStdin(), scenesStoryFile, scenesSample)
	if err != nil {
		return err
	}

	scenes := parser.SplitScenes(story, scenesMaxWords)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"scenes": scenes, "count": len(scenes)}); err != nil {
		return fmt.Errorf("シーンの出力に失敗しました: %w", err)
	}
	return nil
}

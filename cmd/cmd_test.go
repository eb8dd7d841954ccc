package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStory = "Luna the fox wandered into the forest. She found a glowing crystal. The crystal showed her the way home."

func TestReadStory(t *testing.T) {
	t.Run("ファイルから読み込めること", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "story.txt")
		require.NoError(t, os.WriteFile(path, []byte("\n"+testStory+"\n"), 0o644))

		story, err := readStory(strings.NewReader("ignored"), path)
		require.NoError(t, err)
		assert.Equal(t, testStory, story)
	})

	t.Run("'-' は標準入力から読み込むこと", func(t *testing.T) {
		story, err := readStory(strings.NewReader("  A short tale.  "), "-")
		require.NoError(t, err)
		assert.Equal(t, "A short tale.", story)
	})

	t.Run("空のストーリーはエラーになること", func(t *testing.T) {
		_, err := readStory(strings.NewReader("   "), "-")
		assert.Error(t, err)
	})

	t.Run("存在しないファイルはエラーになること", func(t *testing.T) {
		_, err := readStory(nil, filepath.Join(t.TempDir(), "missing.txt"))
		assert.Error(t, err)
	})
}

func TestScenesCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(testStory))
	rootCmd.SetArgs([]string{"scenes", "--story-file", "-", "--max-words", "10"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var got struct {
		Scenes []string `json:"scenes"`
		Count  int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Greater(t, got.Count, 1)
	assert.Len(t, got.Scenes, got.Count)
	assert.Equal(t, testStory, strings.Join(got.Scenes, " "))
}

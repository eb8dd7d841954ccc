package asset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPanelFileName(t *testing.T) {
	if got := PanelFileName(0); got != "panel_0.png" {
		t.Errorf("期待値 'panel_0.png', 実際の値 '%s'", got)
	}
	if got := PanelURL(12); got != "/images/panel_12.png" {
		t.Errorf("期待値 '/images/panel_12.png', 実際の値 '%s'", got)
	}
}

func TestParsePanelIndex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
		ok    bool
	}{
		{"ファイル名のみ", "panel_7.png", 7, true},
		{"ローカルパス", filepath.Join("out", "generated", "panel_12.png"), 12, true},
		{"配信URL", "/images/panel_3.png", 3, true},
		{"拡張子違い", "panel_3.jpg", 0, false},
		{"番号なし", "panel_.png", 0, false},
		{"別の接頭辞", "scene_1.png", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePanelIndex(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("期待値 (%d, %v), 実際の値 (%d, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestSortPanelPaths(t *testing.T) {
	t.Run("辞書順ではなく数値順に並ぶこと", func(t *testing.T) {
		input := []string{"panel_10.png", "panel_2.png", "panel_1.png", "panel_0.png"}
		got := SortPanelPaths(input)
		want := []string{"panel_0.png", "panel_1.png", "panel_2.png", "panel_10.png"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("期待値 %v, 実際の値 %v", want, got)
			}
		}
		if input[0] != "panel_10.png" {
			t.Error("入力スライスが変更されています")
		}
	})

	t.Run("規約外のファイルは末尾に残ること", func(t *testing.T) {
		got := SortPanelPaths([]string{"cover.png", "panel_1.png"})
		if got[0] != "panel_1.png" || got[1] != "cover.png" {
			t.Errorf("期待値 [panel_1.png cover.png], 実際の値 %v", got)
		}
	})
}

func TestListAndCleanupPanels(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"panel_2.png", "panel_10.png", "panel_0.png", "comic_book.pdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("テストファイルの作成に失敗しました: %v", err)
		}
	}

	paths, err := ListPanelFiles(dir)
	if err != nil {
		t.Fatalf("ListPanelFiles でエラーが発生しました: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("期待値 3件, 実際の値 %d件", len(paths))
	}
	if filepath.Base(paths[2]) != "panel_10.png" {
		t.Errorf("最後の要素は panel_10.png のはずです: %v", paths)
	}

	removed, err := CleanupPanels(dir)
	if err != nil {
		t.Fatalf("CleanupPanels でエラーが発生しました: %v", err)
	}
	if removed != 3 {
		t.Errorf("期待値 3件削除, 実際の値 %d件", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "comic_book.pdf")); err != nil {
		t.Error("パネル以外のファイルが削除されています")
	}

	t.Run("存在しないディレクトリは空として扱うこと", func(t *testing.T) {
		paths, err := ListPanelFiles(filepath.Join(dir, "missing"))
		if err != nil || len(paths) != 0 {
			t.Errorf("期待値 (空, nil), 実際の値 (%v, %v)", paths, err)
		}
	})
}

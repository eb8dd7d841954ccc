package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

type exportRequest struct {
	SessionID     string  `json:"sessionId"`
	DPI           float64 `json:"dpi"`
	Title         string  `json:"title"`
	SaveToLibrary bool    `json:"saveToLibrary"`
}

// handleExport はパネル画像から PDF を生成し、そのままダウンロードとして返します。
// DPI は範囲の検証のみ行い、ページサイズは画像のピクセル寸法に合わせます。
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decodeJSON(w, r, &req, ruleSessionID, ruleDPI, optional(ruleTitle), ruleSaveToLibrary) {
		return
	}

	result, err := s.manager.Export(r.Context(), workflow.ExportRequest{
		SessionID:     req.SessionID,
		Title:         req.Title,
		SaveToLibrary: req.SaveToLibrary,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create PDF")
		return
	}

	w.Header().Set("X-Comic-Title", result.Title)
	w.Header().Set("X-Comic-Pdf-Url", result.URL)
	if result.Item != nil {
		w.Header().Set("X-Library-Item-Id", result.Item.ID)
	}
	servePDF(w, r, result.Path, result.FileName)
}

// handleLatestExport は最後にエクスポートした PDF を返します。
func (s *Server) handleLatestExport(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.LatestExport()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeFailure(w, http.StatusNotFound, "No PDF available. Generate images first.")
			return
		}
		writeError(w, r, err, msgInternal)
		return
	}
	servePDF(w, r, info.Path, asset.DefaultPDFFileName)
}

// handleExportInfo は最後にエクスポートした PDF の有無とファイル情報を返します。
func (s *Server) handleExportInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.LatestExport()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusOK, payload{"available": false, "message": "No PDF available"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, payload{
			"available": false,
			"message":   "Error getting PDF information",
		})
		return
	}
	writeJSON(w, http.StatusOK, payload{
		"available":  true,
		"size":       info.Size,
		"modifiedAt": info.ModifiedAt.UTC(),
	})
}

func servePDF(w http.ResponseWriter, r *http.Request, path, downloadName string) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, r, fmt.Errorf("PDF の読み込みに失敗しました: %w", err), "Error streaming PDF file")
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		writeError(w, r, fmt.Errorf("PDF の読み込みに失敗しました: %w", err), "Error streaming PDF file")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(downloadName)))
	http.ServeContent(w, r, downloadName, stat.ModTime(), f)
}

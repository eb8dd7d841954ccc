package server

import (
	"errors"
	"net/http"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/store"
)

const msgComicNotFound = "Comic not found"

// ライブラリへの保存時は存在と型だけを確認する
var (
	ruleLibraryStory  = rule{Field: "story", Required: true, Type: typeString}
	ruleLibraryStyle  = rule{Field: "style", Required: true, Type: typeString}
	ruleLibraryScenes = rule{Field: "scenes", Required: true, Type: typeArray}
)

type saveComicRequest struct {
	Title      string   `json:"title"`
	Story      string   `json:"story"`
	Style      string   `json:"style"`
	Scenes     []string `json:"scenes"`
	StyleGuide string   `json:"styleGuide"`
	Prompts    []string `json:"prompts"`
	Images     []string `json:"images"`
	PDFPath    string   `json:"pdfPath"`
	SessionID  string   `json:"sessionId"`
}

func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	items, err := s.library.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to retrieve library")
		return
	}
	if items == nil {
		items = []domain.LibraryItem{}
	}
	writeSuccess(w, payload{"comics": items})
}

// handleCreateLibrary はコミックをライブラリに保存します。
// sessionId が指定され、プロンプトや画像が省略されている場合はセッションの内容で補います。
func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	var req saveComicRequest
	if !decodeJSON(w, r, &req, ruleTitle, ruleLibraryStory, ruleLibraryStyle, ruleLibraryScenes) {
		return
	}

	item := domain.LibraryItem{
		Title:      req.Title,
		Story:      req.Story,
		Style:      req.Style,
		Scenes:     req.Scenes,
		StyleGuide: req.StyleGuide,
		Prompts:    req.Prompts,
		Images:     req.Images,
		PDFPath:    req.PDFPath,
	}
	if session, ok := s.manager.Session(r.Context(), req.SessionID); ok {
		if len(item.Prompts) == 0 {
			item.Prompts = session.Prompts
		}
		if len(item.Images) == 0 {
			item.Images = session.ImagePaths
		}
		if item.StyleGuide == "" {
			item.StyleGuide = session.StyleGuide
		}
	}

	saved, err := s.library.Create(r.Context(), item)
	if err != nil {
		writeError(w, r, err, "Failed to save comic to library")
		return
	}
	writeSuccess(w, payload{"comic": saved, "message": "Comic saved to library successfully"})
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	item, err := s.library.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLibraryError(w, r, err, "Failed to retrieve comic")
		return
	}
	writeSuccess(w, payload{"comic": item})
}

func (s *Server) handleUpdateLibrary(w http.ResponseWriter, r *http.Request) {
	var patch domain.LibraryPatch
	if !decodeJSON(w, r, &patch, optional(ruleTitle)) {
		return
	}

	item, err := s.library.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeLibraryError(w, r, err, "Failed to update comic")
		return
	}
	writeSuccess(w, payload{"comic": item, "message": "Comic updated successfully"})
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeLibraryError(w, r, err, "Failed to delete comic")
		return
	}
	writeSuccess(w, payload{"message": "Comic deleted successfully"})
}

// handleLibraryScript はコミックの台本を HTML で返します。
// format=markdown の場合は Markdown のまま返します。
func (s *Server) handleLibraryScript(w http.ResponseWriter, r *http.Request) {
	item, err := s.library.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLibraryError(w, r, err, "Failed to retrieve comic")
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(s.script.Build(item)))
		return
	}

	page, err := s.script.RenderHTML(item)
	if err != nil {
		writeError(w, r, err, "Failed to render comic script")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func writeLibraryError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, store.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, msgComicNotFound)
		return
	}
	writeError(w, r, err, fallback)
}

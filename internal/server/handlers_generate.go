package server

import (
	"context"
	"net/http"
)

type generateRequest struct {
	Story            string `json:"story"`
	Style            string `json:"style"`
	MaxWordsPerScene int    `json:"maxWordsPerScene"`
}

type scenesRequest struct {
	Story            string `json:"story"`
	MaxWordsPerScene int    `json:"maxWordsPerScene"`
}

type styleGuideRequest struct {
	Story string `json:"story"`
	Style string `json:"style"`
}

type promptsRequest struct {
	Scenes     []string `json:"scenes"`
	StyleGuide string   `json:"styleGuide"`
	Style      string   `json:"style"`
	SessionID  string   `json:"sessionId"`
}

type imagesRequest struct {
	Prompts   []string `json:"prompts"`
	SessionID string   `json:"sessionId"`
}

// handleGenerate はストーリーを分割してスタイルガイドを生成し、セッションを開始します。
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req, ruleStory, ruleStyle, ruleMaxWordsPerScene) {
		return
	}

	maxWords := s.wordsPerScene(r.Context(), req.MaxWordsPerScene)
	session, err := s.manager.StartSession(r.Context(), req.Story, req.Style, maxWords)
	if err != nil {
		writeError(w, r, err, "Failed to initialize comic generation")
		return
	}

	writeSuccess(w, payload{
		"sessionId":  session.ID,
		"scenes":     session.Scenes,
		"styleGuide": session.StyleGuide,
	})
}

// handleGetSession はセッションの現在の状態を返します。
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok := s.manager.Session(r.Context(), id)
	if !ok {
		writeFailure(w, http.StatusNotFound, "Session not found")
		return
	}

	writeSuccess(w, payload{
		"sessionId":  session.ID,
		"story":      session.Story,
		"style":      session.Style,
		"scenes":     nonNil(session.Scenes),
		"styleGuide": session.StyleGuide,
		"prompts":    nonNil(session.Prompts),
		"images":     nonNil(session.ImagePaths),
	})
}

// handleScenes はオラクルを使わずにストーリーをシーンに分割します。
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	var req scenesRequest
	if !decodeJSON(w, r, &req, ruleStory, ruleMaxWordsPerScene) {
		return
	}

	maxWords := s.wordsPerScene(r.Context(), req.MaxWordsPerScene)
	writeSuccess(w, payload{"scenes": nonNil(s.manager.SplitScenes(req.Story, maxWords))})
}

// handleStyleGuide はスタイルガイドだけを生成します。
func (s *Server) handleStyleGuide(w http.ResponseWriter, r *http.Request) {
	var req styleGuideRequest
	if !decodeJSON(w, r, &req, ruleStory, ruleStyle) {
		return
	}

	guide, err := s.manager.StyleGuide(r.Context(), req.Story, req.Style)
	if err != nil {
		writeError(w, r, err, "Failed to generate style guide")
		return
	}
	writeSuccess(w, payload{"styleGuide": guide})
}

// handlePrompts はシーンごとの画像プロンプトを生成します。
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	var req promptsRequest
	if !decodeJSON(w, r, &req, ruleScenes, ruleStyleGuide, ruleStyle, ruleSessionID) {
		return
	}

	panelPrompts, err := s.manager.Prompts(r.Context(), req.Scenes, req.StyleGuide, req.Style, req.SessionID)
	if err != nil {
		writeError(w, r, err, "Failed to generate prompts")
		return
	}
	writeSuccess(w, payload{"prompts": panelPrompts})
}

// handleImages はプロンプトからパネル画像を順番に生成します。
// 数分かかることがあるため、接続を維持するヘッダーを返します。
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	var req imagesRequest
	if !decodeJSON(w, r, &req, rulePrompts, ruleSessionID) {
		return
	}
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Keep-Alive", "timeout=600")

	images, err := s.manager.Images(r.Context(), req.Prompts, req.SessionID)
	if err != nil {
		writeError(w, r, err, "Failed to generate images")
		return
	}
	writeSuccess(w, payload{"images": images})
}

// handleGeneratedImages は画像ディレクトリにあるパネル画像の URL 一覧を返します。
func (s *Server) handleGeneratedImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.manager.GeneratedImages()
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeSuccess(w, payload{"images": nonNil(images)})
}

// wordsPerScene は、リクエストで指定がなければ設定のデフォルト値を返します。
func (s *Server) wordsPerScene(ctx context.Context, requested int) int {
	if requested > 0 {
		return requested
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0
	}
	return settings.DefaultWordsPerScene
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

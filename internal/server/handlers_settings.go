package server

import (
	"net/http"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

var (
	ruleMaxConcurrency       = rule{Field: "maxConcurrency", Type: typeNumber}
	ruleDefaultWordsPerScene = rule{Field: "defaultWordsPerScene", Type: typeNumber}
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, payload{
			"settings": domain.DefaultSettings(),
			"success":  false,
			"message":  "Failed to retrieve settings, using defaults",
		})
		return
	}
	writeSuccess(w, payload{"settings": settings})
}

// handleUpdateSettings は送られたキーだけを現在の設定にマージします。
// 数値設定は許容範囲に丸められます。
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if !decodeJSON(w, r, &patch, ruleMaxConcurrency, ruleDefaultWordsPerScene) {
		return
	}

	settings, err := s.settings.Update(r.Context(), patch)
	if err != nil {
		writeError(w, r, err, "Failed to update settings")
		return
	}
	writeSuccess(w, payload{"settings": settings, "message": "Settings updated successfully"})
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Reset(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to reset settings")
		return
	}
	writeSuccess(w, payload{"settings": settings, "message": "Settings reset to defaults"})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := domain.LoadStyles()
	if err != nil {
		writeError(w, r, err, "Failed to load styles")
		return
	}
	writeSuccess(w, payload{"styles": styles})
}

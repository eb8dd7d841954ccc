package server

import (
	"net/http"
	"time"
)

type endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var statusEndpoints = []endpoint{
	{Path: "/api/generate", Method: http.MethodPost, Description: "Initialize comic generation"},
	{Path: "/api/scenes", Method: http.MethodPost, Description: "Split story into scenes"},
	{Path: "/api/style-guide", Method: http.MethodPost, Description: "Generate style guide"},
	{Path: "/api/prompts", Method: http.MethodPost, Description: "Generate panel prompts"},
	{Path: "/api/images", Method: http.MethodPost, Description: "Generate comic images"},
	{Path: "/api/export", Method: http.MethodPost, Description: "Export comic as PDF"},
	{Path: "/api/export", Method: http.MethodGet, Description: "Download the latest PDF"},
	{Path: "/api/library", Method: http.MethodGet, Description: "Get saved comics"},
	{Path: "/api/library", Method: http.MethodPost, Description: "Save comic to library"},
	{Path: "/api/settings", Method: http.MethodGet, Description: "Get app settings"},
	{Path: "/api/settings", Method: http.MethodPost, Description: "Update app settings"},
	{Path: "/api/settings/styles", Method: http.MethodGet, Description: "Get available styles"},
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	started := s.startTime
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, payload{
		"status":    "OK",
		"message":   "Comic backend is running",
		"timestamp": s.now(),
		"uptime":    time.Since(started).Round(time.Second).Seconds(),
		"version":   Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, payload{
		"status":           "OK",
		"message":          "Comic API is ready",
		"timestamp":        s.now(),
		"geminiConfigured": s.manager.GeminiConfigured(),
		"endpoints":        statusEndpoints,
		"version":          Version,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, payload{"error": "Route not found"})
}

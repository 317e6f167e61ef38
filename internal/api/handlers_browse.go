package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edupress/edupress/internal/content"
	"github.com/go-chi/chi/v5"
)

// handleHierarchy proxies the breadcrumb metadata for a lesson.
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonID")
	h, err := s.contents.GetHierarchy(r.Context(), lessonID)
	if err != nil {
		jsonError(w, "failed to fetch hierarchy: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h)
}

// handleListContents lists the published items for a lesson+resource pair.
func (s *Server) handleListContents(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonID")
	rt := content.ResourceType(r.URL.Query().Get("type"))
	if !rt.IsValid() {
		jsonError(w, fmt.Sprintf("unknown resource type: %s", rt), http.StatusBadRequest)
		return
	}
	items, err := s.contents.ListItems(r.Context(), lessonID, rt)
	if err != nil {
		jsonError(w, "failed to list contents: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"lesson_id": lessonID,
		"type":      rt,
		"label":     rt.Label(),
		"items":     items,
	})
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/export"
)

type exportRequest struct {
	LessonID     string         `json:"lesson_id"`
	ResourceType string         `json:"resource_type"`
	Caller       content.Caller `json:"caller"`
}

// handleExport runs one export job synchronously. Privileged callers get
// the finished PDF back for local save; everyone else gets a JSON
// confirmation once the delivery channel accepts the document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.LessonID == "" {
		jsonError(w, "lesson_id is required", http.StatusBadRequest)
		return
	}
	rt := content.ResourceType(req.ResourceType)
	if !rt.IsValid() {
		jsonError(w, fmt.Sprintf("unknown resource_type: %s", req.ResourceType), http.StatusBadRequest)
		return
	}

	res, err := s.exporter.Run(r.Context(), export.Request{
		LessonID:     req.LessonID,
		ResourceType: rt,
		Caller:       req.Caller,
	})
	if err != nil {
		s.writeExportError(w, res, err)
		return
	}

	if res.Mode == export.ModeLocal {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, res.Filename))
		w.Header().Set("X-Job-Id", res.JobID)
		w.Write(res.PDF)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    res.JobID,
		"status":    res.Status,
		"recipient": res.Recipient,
		"pages":     res.PageCount,
		"message":   res.Message,
	})
}

func (s *Server) writeExportError(w http.ResponseWriter, res *export.Result, err error) {
	switch {
	case errors.Is(err, export.ErrEmailRequired):
		// The UI collects an address and re-submits.
		jsonError(w, "email_required", http.StatusUnprocessableEntity)
	case errors.Is(err, export.ErrNoContent):
		jsonError(w, "no content available to export", http.StatusNotFound)
	case errors.Is(err, export.ErrBusy):
		jsonError(w, "an export is already in progress", http.StatusConflict)
	default:
		body := map[string]any{"error": err.Error()}
		if res != nil {
			body["error"] = res.Message
			body["job_id"] = res.JobID
			if res.SupportContact != "" {
				body["support_contact"] = res.SupportContact
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(body)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

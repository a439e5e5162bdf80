package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lewtec/triador/internal/domain"
)

type imageResponse struct {
	ImageFile string `json:"image_file"`
	ImageData string `json:"image_data"`
	MimeType  string `json:"mime_type"`
}

type actionResponse struct {
	Image        string    `json:"image"`
	TargetFolder string    `json:"target_folder"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type folderResponse struct {
	IsEmpty      bool `json:"is_empty"`
	PendingCount int  `json:"pending_count"`
}

type outcomeResponse struct {
	Image        string `json:"image"`
	TargetFolder string `json:"target_folder"`
	Moved        bool   `json:"moved"`
	Reason       string `json:"reason,omitempty"`
}

func (s *Server) handleAcquireSession(w http.ResponseWriter, r *http.Request) {
	token, err := s.arbiter.Acquire()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	token, err := s.arbiter.Heartbeat(bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Initialize(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "initialized"})
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.engine.ListFolders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]folderResponse, len(folders))
	for _, f := range folders {
		out[f.Name] = folderResponse{IsEmpty: f.IsEmpty, PendingCount: f.PendingCount}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": out})
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderName string `json:"folder_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "expected a JSON object with key 'folder_name'")
		return
	}
	if err := s.engine.CreateFolder(r.Context(), req.FolderName); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "folder created"})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.engine.DeleteFolder(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "folder deleted"})
}

func (s *Server) handleCurrentImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.engine.CurrentImage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{
		ImageFile: img.Name,
		ImageData: base64.StdEncoding.EncodeToString(img.Data),
		MimeType:  img.MimeType,
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageFile string `json:"image_file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageFile == "" {
		writeBadRequest(w, "expected a JSON object with key 'image_file'")
		return
	}
	predictions, err := s.engine.Classify(r.Context(), req.ImageFile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"image_file":  req.ImageFile,
		"predictions": predictions,
	})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image        string `json:"image"`
		TargetFolder string `json:"target_folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" || req.TargetFolder == "" {
		writeBadRequest(w, "expected a JSON object with keys 'image' and 'target_folder'")
		return
	}
	action, err := s.engine.Assign(r.Context(), req.Image, req.TargetFolder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "pending action recorded",
		"action":  toActionResponse(action),
	})
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending := s.engine.Pending(r.Context())
	out := make([]actionResponse, 0, len(pending))
	for _, a := range pending {
		out = append(out, toActionResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"stack": out})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	action, err := s.engine.Undo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "pending action removed",
		"action":  toActionResponse(action),
	})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Commit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	results := make([]outcomeResponse, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		results = append(results, outcomeResponse{
			Image:        o.Action.ImageName,
			TargetFolder: o.Action.TargetFolder,
			Moved:        o.Moved,
			Reason:       o.Reason,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      report.Status,
		"results":     results,
		"trained":     report.Trained,
		"train_error": report.TrainError,
	})
}

func toActionResponse(a domain.PendingAction) actionResponse {
	return actionResponse{
		Image:        a.ImageName,
		TargetFolder: a.TargetFolder,
		RecordedAt:   a.RecordedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// writeError maps engine errors onto HTTP statuses. Arbitration errors are
// retryable 4xx, validation errors surface verbatim, anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrSessionBusy), errors.Is(err, domain.ErrFolderExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrFolderNotFound),
		errors.Is(err, domain.ErrImageNotFound),
		errors.Is(err, domain.ErrNoImageAvailable):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrReservedName),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrReservedTarget),
		errors.Is(err, domain.ErrAlreadyPending),
		errors.Is(err, domain.ErrEmptyStack),
		errors.Is(err, domain.ErrNothingToCommit),
		errors.Is(err, domain.ErrFolderNotDeletable):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

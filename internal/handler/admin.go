package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
	"github.com/pavelanni/gradesheet/internal/store"
)

// handleUploadDataset imports a dataset file sent as the "dataset_file"
// multipart field. Re-uploading identical content under the same name is a
// no-op.
func (h *Handler) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", store.ErrInvalidDataset, err))
		return
	}
	file, header, err := r.FormFile("dataset_file")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: no file uploaded", store.ErrInvalidDataset))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxUploadBytes))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if mt := mimetype.Detect(data); !mt.Is("application/json") && !mt.Is("text/plain") {
		h.fail(w, r, fmt.Errorf("%w: unsupported content type %s", store.ErrInvalidDataset, mt.String()))
		return
	}

	res, err := h.store.ImportDataset("upload:"+filepath.Base(header.Filename), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("uploaded dataset via API", "filename", header.Filename,
		"assessment_id", res.AssessmentID, "skipped", res.Skipped)

	status := http.StatusCreated
	if res.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"assessment_id": res.AssessmentID,
		"submissions":   res.Submissions,
		"skipped":       res.Skipped,
	})
}

type userResponse struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
	}
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", report.ErrConfiguration, err))
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleTeacher
	}
	id, err := h.store.AddUser(req.Username, req.DisplayName, req.Password, req.Role)
	if err != nil {
		slog.Warn("failed to create user", "username", req.Username, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: RequestIDFromContext(r.Context())})
		return
	}
	u, err := h.store.GetUserByID(id)
	if err == nil && u == nil {
		err = store.ErrNotFound
	}
	if err != nil {
		h.fail(w, r, fmt.Errorf("reload user %d: %w", id, err))
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*u))
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user ID"})
		return
	}
	if err := h.store.ToggleUserActive(id); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.store.GetUserByID(id)
	if err == nil && u == nil {
		err = store.ErrNotFound
	}
	if err != nil {
		h.fail(w, r, fmt.Errorf("reload user %d: %w", id, err))
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

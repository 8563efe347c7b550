package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/assignhub/apiserver/internal/services"
	"github.com/assignhub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 8 << 20
	maxAttachmentBytes = 32 << 20
	formFieldFile      = "file"
)

// AssignmentHandler provides HTTP handlers for assignment submission
// and review.
type AssignmentHandler struct {
	assignmentService *services.AssignmentService
	userService       *services.UserService
}

// NewAssignmentHandler constructs a handler with the provided services.
func NewAssignmentHandler(assignmentService *services.AssignmentService, userService *services.UserService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		userService:       userService,
	}
}

// UserRouter registers the /api/users routes on the given router.
func UserRouter(r chi.Router, auth *AuthHandler, assignments *AssignmentHandler) {
	r.Post("/register", auth.Register)
	r.Post("/login", auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/admins", assignments.ListAdmins)
		r.Post("/upload", assignments.Upload)
		r.Route("/assignments/{assignmentID}/attachment", func(r chi.Router) {
			r.Post("/", assignments.UploadAttachment)
			r.Get("/", assignments.DownloadAttachment)
		})
	})
}

// AdminRouter registers the /api/admin routes on the given router.
func AdminRouter(r chi.Router, auth *AuthHandler, assignments *AssignmentHandler) {
	r.Post("/register", auth.RegisterAdmin)
	r.Post("/login", auth.LoginAdmin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth, RequireAdmin)
		r.Get("/assignments", assignments.ListForAdmin)
		r.Post("/assignments/{assignmentID}/accept", assignments.Accept)
		r.Post("/assignments/{assignmentID}/reject", assignments.Reject)
	})
}

// ListAdmins returns the admins available to submit assignments to,
// projected down to {id, username}.
func (h *AssignmentHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.userService.ListAdmins(r.Context())
	if err != nil {
		writeServiceError(w, err, "Error fetching admins")
		return
	}

	public := make([]types.PublicUser, 0, len(admins))
	for _, admin := range admins {
		public = append(public, admin.Public())
	}
	writeJSON(w, http.StatusOK, public)
}

// Upload submits a new assignment to the chosen admin.
func (h *AssignmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	assignment, err := h.assignmentService.Submit(r.Context(), identity, req.Task, req.AdminID)
	if err != nil {
		writeServiceError(w, err, "Error submitting assignment")
		return
	}

	writeJSON(w, http.StatusCreated, AssignmentResponse{
		Message:    "Assignment submitted successfully",
		Assignment: assignment,
	})
}

// ListForAdmin returns the assignments addressed to the calling admin,
// most recent first.
func (h *AssignmentHandler) ListForAdmin(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assignments, err := h.assignmentService.ListForAdmin(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, err, "Error fetching assignments")
		return
	}
	if assignments == nil {
		assignments = []types.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// Accept marks a pending assignment as accepted.
func (h *AssignmentHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, types.StatusAccepted, "Assignment accepted")
}

// Reject marks a pending assignment as rejected.
func (h *AssignmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, types.StatusRejected, "Assignment rejected")
}

func (h *AssignmentHandler) transition(w http.ResponseWriter, r *http.Request, status types.Status, message string) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseAssignmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.assignmentService.Transition(r.Context(), identity, id, status)
	if err != nil {
		writeServiceError(w, err, "Error updating assignment")
		return
	}

	writeJSON(w, http.StatusOK, AssignmentResponse{
		Message:    message,
		Assignment: assignment,
	})
}

// UploadAttachment stores a file for a pending assignment owned by the
// caller.
func (h *AssignmentHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseAssignmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "attachment file is required")
		return
	}
	data, err := readFileLimited(file, maxAttachmentBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.assignmentService.Attach(
		r.Context(), identity, id, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeServiceError(w, err, "Error storing attachment")
		return
	}

	writeJSON(w, http.StatusOK, AssignmentResponse{
		Message:    "Attachment uploaded successfully",
		Assignment: assignment,
	})
}

// DownloadAttachment streams the stored attachment to the owner or the
// addressed admin.
func (h *AssignmentHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseAssignmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, err := h.assignmentService.OpenAttachment(r.Context(), identity, id)
	if err != nil {
		writeServiceError(w, err, "Error fetching attachment")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// UploadRequest is the assignment submission payload.
type UploadRequest struct {
	Task    string `json:"task"`
	AdminID int    `json:"adminId"`
}

// AssignmentResponse pairs an acknowledgment with the affected record.
type AssignmentResponse struct {
	Message    string           `json:"message"`
	Assignment types.Assignment `json:"assignment"`
}

func parseAssignmentID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "assignmentID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid assignment id")
	}
	return id, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

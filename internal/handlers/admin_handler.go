package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

// AdminHandler serves task management and role administration. Every
// route is behind RequireAdmin.
type AdminHandler struct {
	uploadService *service.UploadService
	userService   *service.UserService
	maxUploadSize int64
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(uploadService *service.UploadService, userService *service.UserService, maxUploadSize int64) *AdminHandler {
	return &AdminHandler{
		uploadService: uploadService,
		userService:   userService,
		maxUploadSize: maxUploadSize,
	}
}

// UploadTasks handles POST /api/admin/tasks/upload. The payload is a
// JSON array of tasks, either as a multipart "file" part or as the raw
// request body; kind and topic come from form values or query params.
func (h *AdminHandler) UploadTasks(w http.ResponseWriter, r *http.Request) {
	content, err := h.readUploadContent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	taskType := r.FormValue("taskType")
	if taskType == "" {
		taskType = r.URL.Query().Get("taskType")
	}
	topic := r.FormValue("topic")
	if topic == "" {
		topic = r.URL.Query().Get("topic")
	}

	count, err := h.uploadService.ProcessUpload(content, taskType, topic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": count})
}

func (h *AdminHandler) readUploadContent(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadSize)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

// DeleteTask handles DELETE /api/admin/tasks/{id}
func (h *AdminHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	deleted, err := h.uploadService.DeleteTask(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// PromoteUser handles POST /api/admin/users/{id}/promote
func (h *AdminHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	h.setUserRole(w, r, h.userService.PromoteToAdmin)
}

// DemoteUser handles POST /api/admin/users/{id}/demote
func (h *AdminHandler) DemoteUser(w http.ResponseWriter, r *http.Request) {
	h.setUserRole(w, r, h.userService.DemoteFromAdmin)
}

func (h *AdminHandler) setUserRole(w http.ResponseWriter, r *http.Request, apply func(int64) (bool, error)) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ok, err := apply(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := h.userService.GetUser(id)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

package handlers

import (
	"net/http"

	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

// TaskHandler serves read-only task metadata used to pick an exercise.
type TaskHandler struct {
	uploadService *service.UploadService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(uploadService *service.UploadService) *TaskHandler {
	return &TaskHandler{uploadService: uploadService}
}

// ListTopics handles GET /api/tasks/topics?taskType=
func (h *TaskHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.uploadService.GetTopics(r.URL.Query().Get("taskType"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, topics)
}

// ListTasks handles GET /api/tasks?taskType=&topic=. Answers and
// explanations are stripped; they are only revealed through the
// exercise answer endpoint.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.uploadService.GetTasks(r.URL.Query().Get("taskType"), r.URL.Query().Get("topic"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]*taskView, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		t.ResetProgress()
		views = append(views, newTaskView(&t))
	}
	writeJSON(w, http.StatusOK, views)
}

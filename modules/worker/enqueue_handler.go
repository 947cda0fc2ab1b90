package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/httpx"
)

// KindReminder - 리마인더 배치 작업
const KindReminder = "reminder"

// EnqueueHandler - Redis Queue Enqueue Handler
type EnqueueHandler struct {
	queue  Queue
	worker *Worker
}

// EnqueueRequest - Enqueue 요청
type EnqueueRequest struct {
	JobID string `json:"job_id" validate:"required"`
}

// EnqueueResponse - Enqueue 응답
type EnqueueResponse struct {
	JobID         string `json:"job_id"`
	Queue         string `json:"queue"`
	QueuePosition int64  `json:"queuePosition"`
}

// NewEnqueueHandler - EnqueueHandler 생성
func NewEnqueueHandler(queue Queue, worker *Worker) *EnqueueHandler {
	return &EnqueueHandler{queue: queue, worker: worker}
}

// RegisterRoutes - 라우트 등록
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/enqueue", h.HandleEnqueue).Methods("POST")
	r.HandleFunc("/api/reminders/run", h.HandleRunReminders).Methods("POST")
	log.Println("✅ Enqueue routes registered: /api/enqueue, /api/reminders/run")
}

// HandleEnqueue - POST /api/enqueue {"job_id": "<kind>:<id>"}
func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := httpx.Decode(r, "worker.Enqueue", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	if !h.worker.CanHandle(req.JobID) {
		httpx.WriteError(w, apperr.Validationf("worker.Enqueue", "unknown job kind: %s", req.JobID))
		return
	}

	log.Printf("📥 [Enqueue] Received job_id: %s", req.JobID)
	h.enqueue(w, req.JobID)
}

// HandleRunReminders - POST /api/reminders/run (cron 트리거)
func (h *EnqueueHandler) HandleRunReminders(w http.ResponseWriter, r *http.Request) {
	jobID := KindReminder + ":" + uuid.New().String()
	log.Printf("⏰ [Enqueue] Reminder batch requested: %s", jobID)
	h.enqueue(w, jobID)
}

func (h *EnqueueHandler) enqueue(w http.ResponseWriter, jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueLen, err := h.queue.Push(ctx, jobID)
	if err != nil {
		log.Printf("❌ [Enqueue] Redis LPUSH failed: %v", err)
		httpx.WriteError(w, apperr.Wrap(apperr.KindUpstream, "worker.Enqueue", err))
		return
	}

	log.Printf("✅ [Enqueue] Job %s enqueued successfully (position: %d)", jobID, queueLen)
	httpx.WriteJSON(w, http.StatusAccepted, EnqueueResponse{
		JobID:         jobID,
		Queue:         QueueKey,
		QueuePosition: queueLen,
	})
}

package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/httpx"
)

// CancelHandler - 대기 중인 Job 취소 API 핸들러
type CancelHandler struct {
	queue Queue
}

// NewCancelHandler - 핸들러 생성
func NewCancelHandler(queue Queue) *CancelHandler {
	return &CancelHandler{queue: queue}
}

// RegisterRoutes - 라우트 등록
func (h *CancelHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs/{jobId}/cancel", h.CancelJob).Methods("POST")
	log.Println("✅ [CancelHandler] Routes registered: POST /api/jobs/{jobId}/cancel")
}

// CancelJob - 아직 worker 가 가져가지 않은 Job 을 큐에서 제거
func (h *CancelHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	log.Printf("🛑 [CancelHandler] Cancel requested for job: %s", jobID)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	removed, err := h.queue.Remove(ctx, jobID)
	if err != nil {
		log.Printf("❌ [CancelHandler] Failed to remove job: %v", err)
		httpx.WriteError(w, apperr.Wrap(apperr.KindUpstream, "worker.Cancel", err))
		return
	}

	// 이미 처리 중이거나 완료된 job 은 취소 불가
	if removed == 0 {
		httpx.WriteError(w, apperr.NotFoundf("worker.Cancel", "job %s is not queued (already running or finished)", jobID))
		return
	}

	log.Printf("✅ [CancelHandler] Job %s removed from queue", jobID)
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"removed": removed,
	})
}

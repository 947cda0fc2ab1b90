package reminder

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/httpx"
)

// Handler - 동기 실행용 (Redis 없이 cron 에서 호출)
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/reminders/run-now", h.HandleRunNow).Methods("POST")
	log.Println("✅ [Reminder] Routes registered: /api/reminders/run-now")
}

// HandleRunNow - POST /api/reminders/run-now
func (h *Handler) HandleRunNow(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SendReminders(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

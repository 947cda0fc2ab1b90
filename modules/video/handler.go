package video

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/httpx"
)

// Handler - Video HTTP Handler
type Handler struct {
	service        *Service
	callbackSecret string
}

// NewHandler - Handler 생성 (callbackSecret 이 비어있으면 콜백 토큰 검사 안 함)
func NewHandler(service *Service, callbackSecret string) *Handler {
	return &Handler{service: service, callbackSecret: callbackSecret}
}

// RegisterRoutes - 인증이 필요한 라우트
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/video/estimate", h.HandleEstimate).Methods("POST")
	r.HandleFunc("/api/video/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc("/api/video/{jobId}", h.HandleStatus).Methods("GET")
	log.Println("✅ [Video] Routes registered: /api/video/estimate, /api/video/generate, /api/video/{jobId}")
}

// RegisterCallback - 벤더 콜백 (사용자 세션 없음)
func (h *Handler) RegisterCallback(r *mux.Router) {
	r.HandleFunc("/api/video/callback", h.HandleCallback).Methods("POST")
	log.Println("✅ [Video] Callback route registered: /api/video/callback")
}

// HandleEstimate - POST /api/video/estimate
func (h *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := httpx.Decode(r, "video.Estimate", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	estimate, err := h.service.EstimateFor(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, estimate)
}

// HandleGenerate - POST /api/video/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.Decode(r, "video.Trigger", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	sess, _ := auth.FromContext(r.Context())
	result, err := h.service.Trigger(r.Context(), sess, req.ContentID, req.Script, req.Influencer)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, result)
}

// HandleCallback - POST /api/video/callback?jobId=<id>
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedCallback(r) {
		log.Printf("⚠️ [Video] Rejected callback with invalid token from %s", r.RemoteAddr)
		httpx.WriteError(w, apperr.New(apperr.KindUnauthorized, "video.HandleCallback", "invalid callback token"))
		return
	}

	var payload CallbackPayload
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, "video.HandleCallback", &payload); err != nil {
			httpx.WriteError(w, err)
			return
		}
	}

	jobID := r.URL.Query().Get("jobId")
	log.Printf("📥 [Video] Callback received for job %s", jobID)

	vg, err := h.service.HandleCallback(r.Context(), jobID, payload)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vg)
}

// HandleStatus - GET /api/video/{jobId}
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	vg, err := h.service.Status(r.Context(), mux.Vars(r)["jobId"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vg)
}

// authorizedCallback - token 쿼리 또는 X-Callback-Token 헤더 비교
func (h *Handler) authorizedCallback(r *http.Request) bool {
	if h.callbackSecret == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("X-Callback-Token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackSecret)) == 1
}

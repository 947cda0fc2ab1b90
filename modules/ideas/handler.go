package ideas

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/httpx"
)

// IdeasRequest - POST /api/ideas
type IdeasRequest struct {
	Influencer string `json:"influencer"`
	Topic      string `json:"topic" validate:"required"`
	Day        string `json:"day"`
}

// ScriptRequest - POST /api/scripts
type ScriptRequest struct {
	Influencer string `json:"influencer"`
	Message    string `json:"message" validate:"required"`
}

// Handler - Ideas / Scripts HTTP Handler
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/ideas", h.HandleIdeas).Methods("POST")
	r.HandleFunc("/api/scripts", h.HandleScript).Methods("POST")
	r.HandleFunc("/api/scripts/accept", h.HandleAccept).Methods("POST")
	log.Println("✅ [Ideas] Routes registered: /api/ideas, /api/scripts, /api/scripts/accept")
}

func (h *Handler) HandleIdeas(w http.ResponseWriter, r *http.Request) {
	var req IdeasRequest
	if err := httpx.Decode(r, "ideas.GenerateIdeas", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	result, err := h.service.GenerateIdeas(r.Context(), influencer(r, req.Influencer), req.Topic, req.Day)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleScript(w http.ResponseWriter, r *http.Request) {
	var req ScriptRequest
	if err := httpx.Decode(r, "ideas.GenerateScript", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	result, err := h.service.GenerateScript(r.Context(), influencer(r, req.Influencer), req.Message)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if err := httpx.Decode(r, "ideas.AcceptScript", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	sess, _ := auth.FromContext(r.Context())
	item, err := h.service.AcceptScript(r.Context(), sess, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

// influencer - body 값이 없으면 세션에서 선택된 페르소나
func influencer(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	sess, _ := auth.FromContext(r.Context())
	return sess.Influencer
}

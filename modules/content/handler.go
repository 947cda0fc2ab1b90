package content

import (
	"net/http"

	"github.com/gorilla/mux"

	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/httpx"
	"persona-studio-server/modules/common/model"
)

type ContentHandler struct {
	service *Service
}

func NewContentHandler(service *Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Register - /api/content 라우트 등록
func (h *ContentHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/content", h.List).Methods("GET")
	r.HandleFunc("/api/content", h.Create).Methods("POST")
	r.HandleFunc("/api/content/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/content/{id}", h.Update).Methods("PATCH", "PUT")
	r.HandleFunc("/api/content/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/content/{id}/submit", h.Submit).Methods("POST")
	r.HandleFunc("/api/content/{id}/approve", h.Approve).Methods("POST")
	r.HandleFunc("/api/content/{id}/reject", h.Reject).Methods("POST")
	r.HandleFunc("/api/content/{id}/reschedule", h.Reschedule).Methods("POST")
	r.HandleFunc("/api/content/{id}/move", h.Move).Methods("POST")
	r.HandleFunc("/api/content/{id}/status", h.SetStatus).Methods("POST")
}

// List - GET /api/content?influencer=&from=&to=&approvalStatus=&mine=true
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	q := r.URL.Query()

	filter := model.ContentFilter{
		Influencer:     q.Get("influencer"),
		ApprovalStatus: q.Get("approvalStatus"),
		From:           q.Get("from"),
		To:             q.Get("to"),
	}
	if q.Get("mine") == "true" {
		filter.UserID = sess.UserID
	}

	items, err := h.service.List(r.Context(), sess, filter)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := httpx.Decode(r, "content.Create", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.Create(r.Context(), session(r), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInput
	if err := httpx.Decode(r, "content.Update", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.Update(r.Context(), session(r), mux.Vars(r)["id"], req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.Delete(r.Context(), session(r), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Submit - 승인 요청 (body 생략 가능)
func (h *ContentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, "content.SubmitForApproval", &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
	}

	item, err := h.service.SubmitForApproval(r.Context(), session(r), mux.Vars(r)["id"], req.Force)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, "content.Approve", &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
	}

	item, err := h.service.Approve(r.Context(), session(r), mux.Vars(r)["id"], req.Remarks)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := httpx.Decode(r, "content.Reject", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.Reject(r.Context(), session(r), mux.Vars(r)["id"], req.Remarks)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := httpx.Decode(r, "content.Reschedule", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.Reschedule(r.Context(), session(r), mux.Vars(r)["id"], req.ScheduledDate)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := httpx.Decode(r, "content.Move", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.Move(r.Context(), session(r), mux.Vars(r)["id"], req.ScheduledDate)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httpx.Decode(r, "content.SetStatus", &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.SetStatus(r.Context(), session(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// session - 미들웨어가 없으면 빈 Session (서비스에서 Unauthorized 처리)
func session(r *http.Request) auth.Session {
	sess, _ := auth.FromContext(r.Context())
	return sess
}

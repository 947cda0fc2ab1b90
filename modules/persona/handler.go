package persona

import (
	"net/http"

	"github.com/gorilla/mux"

	"persona-studio-server/modules/common/httpx"
)

// RegisterRoutes - GET /api/personas
func (r *Registry) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/personas", r.HandleList).Methods("GET")
}

// HandleList - 등록된 페르소나 목록 (webhook URL 제외)
func (r *Registry) HandleList(w http.ResponseWriter, req *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, r.All())
}

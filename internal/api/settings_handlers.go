package api

import (
	"encoding/json"
	"net/http"

	"github.com/sriramlenka/notekart/internal/settings"
)

// handleSettings serves the payment settings. Reads are public so the
// checkout page can show the UPI details; writes are admin only.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := s.settings.Get(r.Context())
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, current)
	case http.MethodPut:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var patch settings.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := s.settings.Update(r.Context(), patch)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	default:
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sriramlenka/notekart/internal/model"
)

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateOrder(w, r)
	case http.MethodGet:
		s.handleListAllOrders(w, r)
	default:
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleOrderRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		if r.Method == http.MethodPut {
			s.handleSetOrderStatus(w, r, id)
			return
		}
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if parts[1] == "proof-url" {
		s.handleProofURL(w, r, id)
		return
	}
	http.NotFound(w, r)
}

// handleCreateOrder records a purchase. In paid mode the body must be a
// multipart form carrying the payment screenshot under "screenshot" plus a
// "noteId" field; in free mode a JSON body {"noteId": ...} suffices (a
// multipart body without a screenshot also works).
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var noteID, proofKey string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		fields, upload, err := s.multipartForm(r, w, "screenshot")
		if err != nil {
			respondMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		noteID = fields["noteId"]
		if upload != nil {
			defer upload.Close()
			if !strings.HasPrefix(upload.contentType, "image/") {
				respondMessage(w, http.StatusBadRequest, "only images are allowed")
				return
			}
			// Key layout mirrors the screenshot directory of the original
			// uploads folder: a timestamp prefix keeps names unique enough.
			proofKey = fmt.Sprintf("screenshots/%d_%s", time.Now().UnixMilli(), safeFilename(upload.filename, "screenshot"))
			if err := s.store.UploadProof(ctx, proofKey, upload.f, upload.size, upload.contentType); err != nil {
				log.Printf("upload proof to storage: %v", err)
				respondMessage(w, http.StatusInternalServerError, "failed to store screenshot")
				return
			}
		}
	} else {
		var req struct {
			NoteID string `json:"noteId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		noteID = req.NoteID
	}
	if noteID == "" {
		respondMessage(w, http.StatusBadRequest, "noteId is required")
		return
	}

	order, err := s.engine.Create(ctx, user, noteID, proofKey)
	if err != nil {
		// The purchase failed after the screenshot landed in storage; drop
		// the orphan so proofs only exist for real orders.
		if proofKey != "" {
			if cleanupErr := s.store.DeleteProof(ctx, proofKey); cleanupErr != nil {
				log.Printf("delete orphan proof %s: %v", proofKey, cleanupErr)
			}
		}
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.engine.ListForUser(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if list == nil {
		list = []model.UserOrder{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	list, err := s.engine.ListAll(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if list == nil {
		list = []model.AdminOrder{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	order, err := s.engine.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// handleProofURL hands the reviewing admin a presigned link to the payment
// screenshot backing a pending order.
func (s *Server) handleProofURL(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	order, err := s.engine.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if order.ProofKey == model.FreeAccessProof {
		respondMessage(w, http.StatusNotFound, "no payment proof for this order")
		return
	}
	url, err := s.store.PresignProofURL(r.Context(), order.ProofKey, s.cfg.SignedURLTTL)
	if err != nil {
		log.Printf("presign proof %s: %v", order.ProofKey, err)
		respondMessage(w, http.StatusInternalServerError, "failed to generate url")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

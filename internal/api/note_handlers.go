package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sriramlenka/notekart/internal/model"
	"github.com/sriramlenka/notekart/internal/queue"
)

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListNotes(w, r)
	case http.MethodPost:
		s.handleUploadNote(w, r)
	default:
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleNoteRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/notes/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		if r.Method == http.MethodDelete {
			s.handleDeleteNote(w, r, id)
			return
		}
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if parts[1] == "download-url" {
		s.handleDownloadURL(w, r, id)
		return
	}
	http.NotFound(w, r)
}

// handleListNotes serves the public catalog. The json:"-" tag on ObjectKey
// keeps the private storage reference out of the response.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.notes.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	respondJSON(w, http.StatusOK, notes)
}

// handleUploadNote is the admin upload: multipart form with the PDF under
// "pdf" plus title/description/price/category/semester fields.
func (s *Server) handleUploadNote(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()
	fields, upload, err := s.multipartForm(r, w, "pdf")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if upload == nil {
		respondMessage(w, http.StatusBadRequest, "missing pdf file")
		return
	}
	defer upload.Close()
	if upload.contentType != "application/pdf" {
		respondMessage(w, http.StatusBadRequest, "only PDF files are allowed")
		return
	}
	title := fields["title"]
	if title == "" {
		respondMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil || price < 0 {
		respondMessage(w, http.StatusBadRequest, "price must be a non-negative number")
		return
	}

	noteID := uuid.NewString()
	objectKey := fmt.Sprintf("notes/%s/%s", noteID, safeFilename(upload.filename, "note.pdf"))
	if err := s.store.UploadNote(ctx, objectKey, upload.f, upload.size, upload.contentType); err != nil {
		log.Printf("upload note to storage: %v", err)
		respondMessage(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	note := &model.Note{
		ID:          noteID,
		Title:       title,
		Description: fields["description"],
		Price:       price,
		ObjectKey:   objectKey,
		Category:    fields["category"],
		Semester:    fields["semester"],
	}
	if err := s.notes.Create(ctx, note); err != nil {
		respondDomainError(w, err)
		return
	}
	// Preview extraction is best effort; the listing works without it.
	if err := queue.EnqueueExtractPreview(ctx, s.queue, queue.PreviewPayload{
		NoteID:    noteID,
		ObjectKey: objectKey,
	}); err != nil {
		log.Printf("enqueue preview for %s: %v", noteID, err)
	}
	respondJSON(w, http.StatusCreated, note)
}

// handleDeleteNote delists a note and releases its stored PDF. Orders that
// reference it are kept as audit history.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "note not found")
			return
		}
		respondDomainError(w, err)
		return
	}
	if err := s.store.DeleteNote(ctx, note.ObjectKey); err != nil {
		log.Printf("delete note object %s: %v", note.ObjectKey, err)
	}
	if err := s.notes.Delete(ctx, id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "note removed"})
}

// handleDownloadURL runs the download-authorization check and, on success,
// hands back a short-lived signed link.
func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request, noteID string) {
	if r.Method != http.MethodGet {
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if _, err := s.notes.Get(ctx, noteID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "note not found")
			return
		}
		respondDomainError(w, err)
		return
	}
	allowed, err := s.engine.AuthorizeDownload(ctx, user, noteID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !allowed {
		respondMessage(w, http.StatusForbidden, "not authorized, please purchase this note")
		return
	}
	expiry := time.Now().Add(s.cfg.SignedURLTTL).Unix()
	signature := s.signer.Sign(user.ID, noteID, expiry)
	url := fmt.Sprintf("/api/download?note=%s&user=%s&expires=%d&signature=%s", noteID, user.ID, expiry, signature)
	respondJSON(w, http.StatusOK, map[string]string{
		"url":     url,
		"expires": strconv.FormatInt(expiry, 10),
	})
}

// handleDownload validates a signed link and streams the PDF from storage.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	noteID := q.Get("note")
	userID := q.Get("user")
	expires := q.Get("expires")
	signature := q.Get("signature")
	if noteID == "" || userID == "" || expires == "" || signature == "" {
		respondMessage(w, http.StatusBadRequest, "missing parameters")
		return
	}
	expiryUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid expires")
		return
	}
	if time.Unix(expiryUnix, 0).Before(time.Now()) {
		respondMessage(w, http.StatusUnauthorized, "url expired")
		return
	}
	if !s.signer.Validate(userID, noteID, expires, signature) {
		respondMessage(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	ctx := r.Context()
	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "note not found")
		return
	}
	obj, err := s.store.OpenNote(ctx, note.ObjectKey)
	if err != nil {
		log.Printf("open note object %s: %v", note.ObjectKey, err)
		respondMessage(w, http.StatusInternalServerError, "file unavailable")
		return
	}
	defer obj.Close()
	filename := safeFilename(note.Title, "note") + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("stream note %s: %v", noteID, err)
	}
}

// Package worker holds the asynq job handlers: pruning superseded rejected
// orders and extracting catalog previews from uploaded PDFs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/sriramlenka/notekart/internal/model"
	pdfutil "github.com/sriramlenka/notekart/internal/pdf"
	"github.com/sriramlenka/notekart/internal/queue"
	"github.com/sriramlenka/notekart/internal/repository"
	"github.com/sriramlenka/notekart/internal/s3storage"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	orders *repository.OrderRepository
	notes  *repository.NoteRepository
	store  *s3storage.Storage
}

// NewProcessor constructs a worker processor.
func NewProcessor(orders *repository.OrderRepository, notes *repository.NoteRepository, store *s3storage.Storage) *Processor {
	return &Processor{orders: orders, notes: notes, store: store}
}

// Handler registers the job handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.PruneRejectedTask, p.handlePrune)
	mux.HandleFunc(queue.ExtractPreviewTask, p.handleExtractPreview)
	return mux
}

// handlePrune marks the stale rejected orders for a (buyer, note) pair as
// superseded, then releases their payment screenshots. Rows themselves are
// never deleted; the audit trail stays intact.
func (p *Processor) handlePrune(ctx context.Context, task *asynq.Task) error {
	var payload queue.PrunePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	keys, err := p.orders.SupersedeRejected(ctx, payload.UserID, payload.NoteID)
	if err != nil {
		return fmt.Errorf("supersede rejected: %w", err)
	}
	for _, key := range keys {
		if key == model.FreeAccessProof {
			// Free-mode orders carry the sentinel, not a stored object.
			continue
		}
		if err := p.store.DeleteProof(ctx, key); err != nil {
			// Keep going; a leaked screenshot is preferable to retrying the
			// whole batch and re-superseding nothing.
			log.Printf("delete proof %s: %v", key, err)
		}
	}
	if len(keys) > 0 {
		log.Printf("pruned %d rejected order(s) for user %s note %s", len(keys), payload.UserID, payload.NoteID)
	}
	return nil
}

func (p *Processor) handleExtractPreview(ctx context.Context, task *asynq.Task) error {
	var payload queue.PreviewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	data, err := p.store.DownloadNote(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("download note: %w", err)
	}
	preview, err := pdfutil.Preview(data)
	if err != nil {
		// Some PDFs are image-only scans with no extractable text. That is
		// not a retryable failure.
		log.Printf("extract preview for %s: %v", payload.NoteID, err)
		return nil
	}
	if preview == "" {
		return nil
	}
	if err := p.notes.SetPreview(ctx, payload.NoteID, preview); err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	log.Printf("note %s preview stored (%d chars)", payload.NoteID, len(preview))
	return nil
}

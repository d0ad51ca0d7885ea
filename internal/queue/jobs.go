package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// PruneRejectedTask runs after a buyer re-purchases a note whose earlier
	// order was rejected: stale rejected rows are superseded and their
	// screenshots released.
	PruneRejectedTask = "order:prune-rejected"
	// ExtractPreviewTask is scheduled each time an admin uploads a note PDF.
	ExtractPreviewTask = "note:extract-preview"
)

// PrunePayload identifies the (buyer, note) pair whose rejected orders are
// now superseded.
type PrunePayload struct {
	UserID string `json:"user_id"`
	NoteID string `json:"note_id"`
}

// PreviewPayload tells the worker which PDF to pull down for text extraction.
type PreviewPayload struct {
	NoteID    string `json:"note_id"`
	ObjectKey string `json:"object_key"`
}

// EnqueuePruneRejected enqueues a cleanup job.
func EnqueuePruneRejected(ctx context.Context, client *asynq.Client, payload PrunePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(PruneRejectedTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue prune task: %w", err)
	}
	return nil
}

// EnqueueExtractPreview enqueues a preview-extraction job.
func EnqueueExtractPreview(ctx context.Context, client *asynq.Client, payload PreviewPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ExtractPreviewTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue preview task: %w", err)
	}
	return nil
}

// Pruner adapts the asynq client to the order engine's Pruner interface.
type Pruner struct {
	Client *asynq.Client
}

// EnqueuePruneRejected implements orders.Pruner.
func (p *Pruner) EnqueuePruneRejected(ctx context.Context, userID, noteID string) error {
	return EnqueuePruneRejected(ctx, p.Client, PrunePayload{UserID: userID, NoteID: noteID})
}

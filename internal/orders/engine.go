// Package orders implements the purchase lifecycle: order creation under the
// current access mode, the admin approval state machine, and the
// authorization rule gating downloads.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/sriramlenka/notekart/internal/model"
)

// Error kinds surfaced to callers. The messages double as user-facing copy.
var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrAlreadyOwned   = errors.New("you already own this note")
	ErrAlreadyPending = errors.New("order already pending approval")
	ErrProofRequired  = errors.New("payment screenshot is required")
	ErrInvalidStatus  = errors.New("status must be pending, approved or rejected")
)

// NoteStore looks up catalog entries.
type NoteStore interface {
	Get(ctx context.Context, id string) (*model.Note, error)
}

// OrderStore persists purchase records. Insert must be atomic with respect
// to the one-active-order-per-(user, note) rule: it reports false when an
// active order already exists instead of inserting a duplicate.
type OrderStore interface {
	Insert(ctx context.Context, o *model.Order) (bool, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	ActiveFor(ctx context.Context, userID, noteID string) (*model.Order, error)
	HasApproved(ctx context.Context, userID, noteID string) (bool, error)
	HasRejected(ctx context.Context, userID, noteID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
	ListForUser(ctx context.Context, userID string) ([]model.UserOrder, error)
	ListAll(ctx context.Context) ([]model.AdminOrder, error)
}

// SettingsSource supplies the access mode consulted at purchase time.
type SettingsSource interface {
	Get(ctx context.Context) (*model.PaymentSettings, error)
}

// Pruner schedules cleanup of rejected orders superseded by a re-purchase.
type Pruner interface {
	EnqueuePruneRejected(ctx context.Context, userID, noteID string) error
}

// Engine ties the stores together. All methods are safe for concurrent use;
// the stores own the shared state.
type Engine struct {
	notes    NoteStore
	orders   OrderStore
	settings SettingsSource
	pruner   Pruner
}

// NewEngine constructs an Engine. pruner may be nil, in which case stale
// rejected orders are simply left in place.
func NewEngine(notes NoteStore, orders OrderStore, settings SettingsSource, pruner Pruner) *Engine {
	return &Engine{notes: notes, orders: orders, settings: settings, pruner: pruner}
}

// Create records a purchase attempt for the given buyer and note.
//
// The access mode is read at this moment and decides the initial state: free
// mode yields an immediately approved order carrying the FREE_ACCESS proof
// marker; paid mode requires proofKey to reference an already-stored
// screenshot and yields a pending order. The amount snapshots the note's
// current price and never changes afterwards.
//
// A pending or approved order for the same pair refuses the attempt with
// ErrAlreadyPending or ErrAlreadyOwned. Rejected orders never block a retry;
// once the replacement order lands they are queued for cleanup.
func (e *Engine) Create(ctx context.Context, user *model.User, noteID, proofKey string) (*model.Order, error) {
	note, err := e.notes.Get(ctx, noteID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("load note: %w", err)
	}
	cfg, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payment settings: %w", err)
	}

	order := &model.Order{
		ID:     uuid.NewString(),
		UserID: user.ID,
		NoteID: note.ID,
		Amount: note.Price,
	}
	if cfg.Mode == model.ModeFree {
		order.Status = model.StatusApproved
		order.ProofKey = model.FreeAccessProof
	} else {
		if proofKey == "" {
			return nil, ErrProofRequired
		}
		order.Status = model.StatusPending
		order.ProofKey = proofKey
	}

	inserted, err := e.orders.Insert(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if !inserted {
		existing, err := e.orders.ActiveFor(ctx, user.ID, note.ID)
		if err != nil {
			// The conflicting row vanished between insert and lookup; report
			// the conservative variant.
			if errors.Is(err, model.ErrNotFound) {
				return nil, ErrAlreadyPending
			}
			return nil, fmt.Errorf("classify duplicate order: %w", err)
		}
		if existing.Status == model.StatusApproved {
			return nil, ErrAlreadyOwned
		}
		return nil, ErrAlreadyPending
	}

	e.schedulePrune(ctx, user.ID, note.ID)
	return order, nil
}

// schedulePrune queues cleanup of rejected orders this purchase supersedes.
// Failures are logged, not surfaced; the purchase itself already succeeded.
func (e *Engine) schedulePrune(ctx context.Context, userID, noteID string) {
	if e.pruner == nil {
		return
	}
	stale, err := e.orders.HasRejected(ctx, userID, noteID)
	if err != nil {
		log.Printf("check rejected orders for %s/%s: %v", userID, noteID, err)
		return
	}
	if !stale {
		return
	}
	if err := e.pruner.EnqueuePruneRejected(ctx, userID, noteID); err != nil {
		log.Printf("enqueue prune for %s/%s: %v", userID, noteID, err)
	}
}

// SetStatus is the admin approval action. Only the three known states are
// accepted; everything else fails with ErrInvalidStatus before touching the
// store.
func (e *Engine) SetStatus(ctx context.Context, orderID, rawStatus string) (*model.Order, error) {
	status, ok := model.ParseOrderStatus(rawStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}
	updated, err := e.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// Get returns a single order.
func (e *Engine) Get(ctx context.Context, orderID string) (*model.Order, error) {
	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

// ListForUser returns a buyer's purchase history with note titles attached.
func (e *Engine) ListForUser(ctx context.Context, userID string) ([]model.UserOrder, error) {
	out, err := e.orders.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// ListAll returns every order for admin review, newest first.
func (e *Engine) ListAll(ctx context.Context) ([]model.AdminOrder, error) {
	out, err := e.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return out, nil
}

// AuthorizeDownload answers "may this user download this note now?". Admins
// always may; everyone else needs an approved order. This check runs inside
// the engine so it stays in force even if the HTTP-layer guards are
// bypassed.
func (e *Engine) AuthorizeDownload(ctx context.Context, user *model.User, noteID string) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	owned, err := e.orders.HasApproved(ctx, user.ID, noteID)
	if err != nil {
		return false, fmt.Errorf("check ownership: %w", err)
	}
	return owned, nil
}

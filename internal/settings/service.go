// Package settings holds the access-mode policy: the global paid/free switch
// and the payee details, kept as a single database row behind an injected
// store rather than ambient global state.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sriramlenka/notekart/internal/model"
)

// ErrInvalidMode is returned when an update names a mode outside free/paid.
var ErrInvalidMode = errors.New("access mode must be \"free\" or \"paid\"")

// Store is the persistence contract for the settings singleton. Load must
// create the row with defaults when it is absent.
type Store interface {
	Load(ctx context.Context) (*model.PaymentSettings, error)
	Save(ctx context.Context, s *model.PaymentSettings) (*model.PaymentSettings, error)
}

// Patch carries a partial update. nil means "leave unchanged"; an empty
// string is an explicit overwrite.
type Patch struct {
	Mode      *string `json:"mode"`
	UPIID     *string `json:"upiId"`
	PayeeName *string `json:"payeeName"`
}

// Service fronts the Store with an in-process read cache. Settings are read
// on every purchase but written rarely, so the cache is dropped on write and
// refilled on the next read.
type Service struct {
	store Store

	mu     sync.RWMutex
	cached *model.PaymentSettings
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the current settings, serving from cache when warm.
func (s *Service) Get(ctx context.Context) (*model.PaymentSettings, error) {
	s.mu.RLock()
	if s.cached != nil {
		out := *s.cached
		s.mu.RUnlock()
		return &out, nil
	}
	s.mu.RUnlock()

	loaded, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	s.mu.Lock()
	s.cached = loaded
	s.mu.Unlock()
	out := *loaded
	return &out, nil
}

// Update applies a partial update and invalidates the cache. The write path
// reads through the store so a stale cache can never feed the merge.
func (s *Service) Update(ctx context.Context, patch Patch) (*model.PaymentSettings, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if patch.Mode != nil {
		mode, ok := model.ParseAccessMode(*patch.Mode)
		if !ok {
			return nil, ErrInvalidMode
		}
		current.Mode = mode
	}
	if patch.UPIID != nil {
		current.UPIID = *patch.UPIID
	}
	if patch.PayeeName != nil {
		current.PayeeName = *patch.PayeeName
	}
	saved, err := s.store.Save(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	out := *saved
	return &out, nil
}

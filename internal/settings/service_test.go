package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sriramlenka/notekart/internal/model"
)

// fakeStore mimics the repository: Load seeds defaults on first read and
// counts calls so tests can observe the cache.
type fakeStore struct {
	stored *model.PaymentSettings
	loads  int
	saves  int
}

func (f *fakeStore) Load(context.Context) (*model.PaymentSettings, error) {
	f.loads++
	if f.stored == nil {
		f.stored = &model.PaymentSettings{
			Mode:      model.ModePaid,
			UPIID:     model.DefaultUPIID,
			PayeeName: model.DefaultPayeeName,
			UpdatedAt: time.Now().UTC(),
		}
	}
	out := *f.stored
	return &out, nil
}

func (f *fakeStore) Save(_ context.Context, s *model.PaymentSettings) (*model.PaymentSettings, error) {
	f.saves++
	cp := *s
	cp.UpdatedAt = time.Now().UTC()
	f.stored = &cp
	out := cp
	return &out, nil
}

func strptr(s string) *string { return &s }

func TestGetSeedsDefaults(t *testing.T) {
	svc := NewService(&fakeStore{})
	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.ModePaid, got.Mode)
	require.Equal(t, "lenkasriram1@ybl", got.UPIID)
	require.Equal(t, "Sriram Lenka", got.PayeeName)
}

func TestGetServesFromCache(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	ctx := context.Background()
	_, err := svc.Get(ctx)
	require.NoError(t, err)
	_, err = svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.loads)
}

func TestUpdateAppliesPartialPatch(t *testing.T) {
	svc := NewService(&fakeStore{})
	ctx := context.Background()

	got, err := svc.Update(ctx, Patch{Mode: strptr("free")})
	require.NoError(t, err)
	require.Equal(t, model.ModeFree, got.Mode)
	// Omitted fields stay untouched.
	require.Equal(t, model.DefaultUPIID, got.UPIID)
	require.Equal(t, model.DefaultPayeeName, got.PayeeName)

	got, err = svc.Update(ctx, Patch{UPIID: strptr("shop@upi"), PayeeName: strptr("Note Shop")})
	require.NoError(t, err)
	require.Equal(t, model.ModeFree, got.Mode)
	require.Equal(t, "shop@upi", got.UPIID)
	require.Equal(t, "Note Shop", got.PayeeName)
}

func TestUpdateRejectsUnknownMode(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	_, err := svc.Update(context.Background(), Patch{Mode: strptr("donation")})
	require.ErrorIs(t, err, ErrInvalidMode)
	require.Equal(t, 0, store.saves)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.NoError(t, err)

	_, err = svc.Update(ctx, Patch{Mode: strptr("free")})
	require.NoError(t, err)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, model.ModeFree, got.Mode, "read after write must see the new mode")
}

func TestGetReturnsCopies(t *testing.T) {
	svc := NewService(&fakeStore{})
	ctx := context.Background()
	first, err := svc.Get(ctx)
	require.NoError(t, err)
	first.Mode = model.ModeFree

	second, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, model.ModePaid, second.Mode, "caller mutation must not leak into the cache")
}

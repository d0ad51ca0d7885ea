package orders

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sriramlenka/notekart/internal/model"
)

// fakeNotes is an in-memory NoteStore.
type fakeNotes struct {
	notes map[string]*model.Note
}

func (f *fakeNotes) Get(_ context.Context, id string) (*model.Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *n
	return &out, nil
}

// fakeOrders is an in-memory OrderStore mirroring the repository semantics:
// Insert refuses a second active order per pair, ListAll is newest first.
type fakeOrders struct {
	mu   sync.Mutex
	rows []*model.Order
	seq  int
	refs *fakeNotes
}

func (f *fakeOrders) Insert(_ context.Context, o *model.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == o.UserID && row.NoteID == o.NoteID &&
			(row.Status == model.StatusPending || row.Status == model.StatusApproved) {
			return false, nil
		}
	}
	f.seq++
	cp := *o
	cp.CreatedAt = cp.CreatedAt.AddDate(0, 0, f.seq) // distinct, increasing
	cp.UpdatedAt = cp.CreatedAt
	f.rows = append(f.rows, &cp)
	o.CreatedAt = cp.CreatedAt
	o.UpdatedAt = cp.UpdatedAt
	return true, nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			out := *row
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeOrders) ActiveFor(_ context.Context, userID, noteID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == userID && row.NoteID == noteID &&
			(row.Status == model.StatusPending || row.Status == model.StatusApproved) {
			out := *row
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeOrders) HasApproved(_ context.Context, userID, noteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == userID && row.NoteID == noteID && row.Status == model.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) HasRejected(_ context.Context, userID, noteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == userID && row.NoteID == noteID && row.Status == model.StatusRejected && !row.Superseded {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			row.Status = status
			out := *row
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeOrders) ListForUser(_ context.Context, userID string) ([]model.UserOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserOrder
	for _, row := range f.rows {
		if row.UserID != userID {
			continue
		}
		uo := model.UserOrder{Order: *row}
		if n, ok := f.refs.notes[row.NoteID]; ok {
			uo.NoteTitle = n.Title
			uo.NoteDescription = n.Description
		}
		out = append(out, uo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeOrders) ListAll(_ context.Context) ([]model.AdminOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AdminOrder
	for _, row := range f.rows {
		ao := model.AdminOrder{Order: *row}
		if n, ok := f.refs.notes[row.NoteID]; ok {
			ao.NoteTitle = n.Title
			ao.NotePrice = n.Price
		}
		out = append(out, ao)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeSettings struct {
	mode model.AccessMode
}

func (f *fakeSettings) Get(context.Context) (*model.PaymentSettings, error) {
	return &model.PaymentSettings{
		Mode:      f.mode,
		UPIID:     model.DefaultUPIID,
		PayeeName: model.DefaultPayeeName,
	}, nil
}

type fakePruner struct {
	calls []string
}

func (f *fakePruner) EnqueuePruneRejected(_ context.Context, userID, noteID string) error {
	f.calls = append(f.calls, userID+"/"+noteID)
	return nil
}

type fixture struct {
	notes    *fakeNotes
	orders   *fakeOrders
	settings *fakeSettings
	pruner   *fakePruner
	engine   *Engine
}

func newFixture(mode model.AccessMode) *fixture {
	notes := &fakeNotes{notes: map[string]*model.Note{
		"note-1": {ID: "note-1", Title: "DBMS Unit 1", Description: "Relational model", Price: 99},
		"note-2": {ID: "note-2", Title: "OS Unit 3", Description: "Scheduling", Price: 49},
	}}
	orderStore := &fakeOrders{refs: notes}
	cfg := &fakeSettings{mode: mode}
	pruner := &fakePruner{}
	return &fixture{
		notes:    notes,
		orders:   orderStore,
		settings: cfg,
		pruner:   pruner,
		engine:   NewEngine(notes, orderStore, cfg, pruner),
	}
}

func buyer(id string) *model.User {
	return &model.User{ID: id, Name: "Buyer " + id, Email: id + "@example.com", Role: model.RoleUser}
}

func admin() *model.User {
	return &model.User{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
}

func TestCreateFreeMode(t *testing.T) {
	fx := newFixture(model.ModeFree)
	order, err := fx.engine.Create(context.Background(), buyer("u1"), "note-1", "")
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, order.Status)
	require.Equal(t, model.FreeAccessProof, order.ProofKey)
	require.Equal(t, 99.0, order.Amount)

	// Free-mode purchases grant download rights immediately.
	ok, err := fx.engine.AuthorizeDownload(context.Background(), buyer("u1"), "note-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreatePaidMode(t *testing.T) {
	fx := newFixture(model.ModePaid)
	order, err := fx.engine.Create(context.Background(), buyer("u1"), "note-1", "screenshots/123_upi.png")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, order.Status)
	require.Equal(t, "screenshots/123_upi.png", order.ProofKey)
	require.Equal(t, 99.0, order.Amount)
}

func TestCreatePaidModeRequiresProof(t *testing.T) {
	fx := newFixture(model.ModePaid)
	_, err := fx.engine.Create(context.Background(), buyer("u1"), "note-1", "")
	require.ErrorIs(t, err, ErrProofRequired)
}

func TestCreateUnknownNote(t *testing.T) {
	fx := newFixture(model.ModePaid)
	_, err := fx.engine.Create(context.Background(), buyer("u1"), "missing", "screenshots/x.png")
	require.ErrorIs(t, err, ErrNoteNotFound)
}

func TestCreateDuplicatePending(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	_, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/a.png")
	require.NoError(t, err)
	_, err = fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/b.png")
	require.ErrorIs(t, err, ErrAlreadyPending)
}

func TestCreateAlreadyOwned(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	order, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/a.png")
	require.NoError(t, err)
	_, err = fx.engine.SetStatus(ctx, order.ID, "approved")
	require.NoError(t, err)
	_, err = fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/b.png")
	require.ErrorIs(t, err, ErrAlreadyOwned)
}

func TestRejectedOrderDoesNotBlockRepurchase(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	first, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/a.png")
	require.NoError(t, err)
	_, err = fx.engine.SetStatus(ctx, first.ID, "rejected")
	require.NoError(t, err)

	second, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/b.png")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, second.Status)
	require.NotEqual(t, first.ID, second.ID)

	// The retry supersedes the rejected attempt: cleanup gets queued.
	require.Equal(t, []string{"u1/note-1"}, fx.pruner.calls)
}

func TestAmountSnapshotSurvivesPriceChange(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	order, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/a.png")
	require.NoError(t, err)
	require.Equal(t, 99.0, order.Amount)

	fx.notes.notes["note-1"].Price = 149

	stored, err := fx.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 99.0, stored.Amount)

	// A different buyer pays the new price.
	other, err := fx.engine.Create(ctx, buyer("u2"), "note-1", "screenshots/b.png")
	require.NoError(t, err)
	require.Equal(t, 149.0, other.Amount)
}

func TestSetStatusRejectsUnknownValues(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	order, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "screenshots/a.png")
	require.NoError(t, err)

	for _, bad := range []string{"shipped", "APPROVED", "", "cancelled"} {
		_, err := fx.engine.SetStatus(ctx, order.ID, bad)
		require.ErrorIs(t, err, ErrInvalidStatus, "status %q should be refused", bad)
	}

	// Invalid values do not reach the store.
	stored, err := fx.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, stored.Status)
}

func TestSetStatusUnknownOrder(t *testing.T) {
	fx := newFixture(model.ModePaid)
	_, err := fx.engine.SetStatus(context.Background(), "missing", "approved")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestApprovalGrantsDownload(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	u := buyer("u1")

	order, err := fx.engine.Create(ctx, u, "note-1", "screenshots/a.png")
	require.NoError(t, err)
	require.Equal(t, 99.0, order.Amount)

	ok, err := fx.engine.AuthorizeDownload(ctx, u, "note-1")
	require.NoError(t, err)
	require.False(t, ok, "pending order must not grant access")

	_, err = fx.engine.SetStatus(ctx, order.ID, "approved")
	require.NoError(t, err)

	ok, err = fx.engine.AuthorizeDownload(ctx, u, "note-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuthorizeDownloadAdminBypass(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ok, err := fx.engine.AuthorizeDownload(context.Background(), admin(), "note-1")
	require.NoError(t, err)
	require.True(t, ok)

	// Even for notes nobody ordered, or that do not exist.
	ok, err = fx.engine.AuthorizeDownload(context.Background(), admin(), "missing")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuthorizeDownloadPerState(t *testing.T) {
	fx := newFixture(model.ModePaid)
	ctx := context.Background()
	u := buyer("u1")

	ok, err := fx.engine.AuthorizeDownload(ctx, u, "note-1")
	require.NoError(t, err)
	require.False(t, ok, "no order means no access")

	order, err := fx.engine.Create(ctx, u, "note-1", "screenshots/a.png")
	require.NoError(t, err)
	_, err = fx.engine.SetStatus(ctx, order.ID, "rejected")
	require.NoError(t, err)

	ok, err = fx.engine.AuthorizeDownload(ctx, u, "note-1")
	require.NoError(t, err)
	require.False(t, ok, "rejected order must not grant access")
}

func TestListAllNewestFirst(t *testing.T) {
	fx := newFixture(model.ModeFree)
	ctx := context.Background()
	first, err := fx.engine.Create(ctx, buyer("u1"), "note-1", "")
	require.NoError(t, err)
	second, err := fx.engine.Create(ctx, buyer("u1"), "note-2", "")
	require.NoError(t, err)
	third, err := fx.engine.Create(ctx, buyer("u2"), "note-1", "")
	require.NoError(t, err)

	all, err := fx.engine.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, third.ID, all[0].ID)
	require.Equal(t, second.ID, all[1].ID)
	require.Equal(t, first.ID, all[2].ID)
	require.Equal(t, "DBMS Unit 1", all[0].NoteTitle)
	require.Equal(t, 99.0, all[0].NotePrice)
}

func TestListForUserJoinsNoteFields(t *testing.T) {
	fx := newFixture(model.ModeFree)
	ctx := context.Background()
	_, err := fx.engine.Create(ctx, buyer("u1"), "note-2", "")
	require.NoError(t, err)
	_, err = fx.engine.Create(ctx, buyer("u2"), "note-1", "")
	require.NoError(t, err)

	mine, err := fx.engine.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "OS Unit 3", mine[0].NoteTitle)
	require.Equal(t, "Scheduling", mine[0].NoteDescription)
}

package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/draft"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
)

// memStore is an in-memory draft.Store that round-trips through the codec,
// like the postgres-backed cache does.
type memStore struct {
	mu      sync.Mutex
	taxRate decimal.Decimal
	blobs   map[string][]byte
	saveErr error
}

func newMemStore(taxRate decimal.Decimal) *memStore {
	return &memStore{taxRate: taxRate, blobs: make(map[string][]byte)}
}

func (m *memStore) Load(_ context.Context, sessionID string) (*draft.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[sessionID]
	if !ok {
		return nil, draft.ErrNoDraft
	}
	return draft.Decode(blob, m.taxRate)
}

func (m *memStore) Save(_ context.Context, sessionID string, d *draft.Draft) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	blob, err := draft.Encode(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[sessionID] = blob
	return nil
}

func (m *memStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, sessionID)
	return nil
}

func (m *memStore) has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[sessionID]
	return ok
}

// stubFinalizer counts invocations and optionally blocks until released.
type stubFinalizer struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (f *stubFinalizer) Finalize(_ context.Context, req sale.FinalizeRequest) (*sale.Sale, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	total := decimal.Zero
	items := make([]sale.Item, len(req.Lines))
	for i, l := range req.Lines {
		sub := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		items[i] = sale.Item{SaleID: "s1", ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: sub, Position: i}
		total = total.Add(sub)
	}
	return &sale.Sale{
		ID:          "s1",
		CustomerID:  req.CustomerID,
		UserID:      req.UserID,
		Method:      req.Method,
		Details:     req.Details,
		TotalAmount: total,
		Status:      sale.StatusCompleted,
		Items:       items,
	}, nil
}

func (f *stubFinalizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCustomer() customer.Customer {
	return customer.Customer{ID: "c1", Name: "Maria Perez", IDType: customer.IDTypeNational, IDNumber: "12345678"}
}

func testProduct(id, price string, stock int) product.Product {
	return product.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Stock: stock}
}

func newTestManager(store draft.Store, f Finalizer, cooldown time.Duration) *Manager {
	return NewManager(store, f, Config{TaxRate: decimal.Zero, SubmitCooldown: cooldown})
}

func readySession(t *testing.T, m *Manager) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := m.Session(ctx, "reg-1")
	require.NoError(t, err)
	require.NoError(t, s.SelectCustomer(ctx, testCustomer()))
	require.NoError(t, s.AddItem(ctx, testProduct("p1", "10.00", 10), 3))
	return s
}

func TestSession_PersistsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(decimal.Zero)
	m := newTestManager(store, &stubFinalizer{}, 0)

	s, err := m.Session(ctx, "reg-1")
	require.NoError(t, err)
	assert.False(t, store.has("reg-1"), "nothing cached before first mutation")

	require.NoError(t, s.SelectCustomer(ctx, testCustomer()))
	assert.True(t, store.has("reg-1"))

	require.NoError(t, s.AddItem(ctx, testProduct("p1", "10.00", 10), 2))
	require.NoError(t, s.SelectMethod(ctx, payment.MethodMobile))
	require.NoError(t, s.SetDetail(ctx, payment.FieldBank, "0102"))

	// A fresh manager (process restart) resumes the exact draft state.
	m2 := newTestManager(store, &stubFinalizer{}, 0)
	s2, err := m2.Session(ctx, "reg-1")
	require.NoError(t, err)

	snap := s2.Snapshot()
	require.NotNil(t, snap.Customer)
	assert.Equal(t, "c1", snap.Customer.ID)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, payment.MethodMobile, snap.Method)
	assert.Equal(t, map[string]string{payment.FieldBank: "0102"}, snap.Details)
}

func TestSession_SaveFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(decimal.Zero)
	store.saveErr = errors.New("disk full")
	m := newTestManager(store, &stubFinalizer{}, 0)

	s, err := m.Session(ctx, "reg-1")
	require.NoError(t, err)
	require.Error(t, s.SelectCustomer(ctx, testCustomer()))
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(decimal.Zero)
	fin := &stubFinalizer{}
	m := newTestManager(store, fin, 0)
	s := readySession(t, m)

	committed, err := s.Submit(ctx, "op1")
	require.NoError(t, err)
	require.NotNil(t, committed)
	assert.Equal(t, "c1", committed.CustomerID)
	assert.Equal(t, "op1", committed.UserID)
	assert.Equal(t, 1, fin.callCount())

	// Draft and cache entry cleared; committed sale retained.
	snap := s.Snapshot()
	assert.Equal(t, draft.StateEmpty, snap.State)
	assert.Nil(t, snap.Customer)
	assert.False(t, store.has("reg-1"))
	require.NotNil(t, s.LastCompleted())
	assert.Equal(t, committed.ID, s.LastCompleted().ID)
}

func TestSubmit_GateRejectsIncompleteDraft(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemStore(decimal.Zero), &stubFinalizer{}, 0)
	s, err := m.Session(ctx, "reg-1")
	require.NoError(t, err)

	_, err = s.Submit(ctx, "op1")
	require.ErrorIs(t, err, ErrNotSubmittable)
}

func TestSubmit_FailurePreservesDraft(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(decimal.Zero)
	fin := &stubFinalizer{err: &sale.InsufficientStockError{ProductID: "p1", Requested: 3, Available: 1}}
	m := newTestManager(store, fin, 0)
	s := readySession(t, m)

	_, err := s.Submit(ctx, "op1")
	var isErr *sale.InsufficientStockError
	require.ErrorAs(t, err, &isErr)

	snap := s.Snapshot()
	require.NotNil(t, snap.Customer, "customer restored after failure")
	assert.Equal(t, "c1", snap.Customer.ID)
	require.Len(t, snap.Lines, 1)
	assert.True(t, store.has("reg-1"), "cache entry kept for retry")
}

func TestSubmit_DuplicateWhileInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	fin := &stubFinalizer{release: release}
	m := newTestManager(newMemStore(decimal.Zero), fin, 0)
	s := readySession(t, m)

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "op1")
		firstDone <- err
	}()

	// Wait until the first submission is inside the finalizer.
	require.Eventually(t, func() bool { return fin.callCount() == 1 },
		time.Second, time.Millisecond)

	_, err := s.Submit(ctx, "op1")
	require.ErrorIs(t, err, ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, fin.callCount(), "exactly one finalization call issued")
}

func TestSubmit_ConcurrentBurstIssuesOneCall(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	fin := &stubFinalizer{release: release}
	m := newTestManager(newMemStore(decimal.Zero), fin, 0)
	s := readySession(t, m)

	const burst = 8
	results := make([]error, burst)
	var g errgroup.Group
	for i := range burst {
		g.Go(func() error {
			_, err := s.Submit(ctx, "op1")
			results[i] = err
			return nil
		})
	}

	require.Eventually(t, func() bool { return fin.callCount() == 1 },
		time.Second, time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())

	var winners int
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, ErrSubmissionInFlight)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, fin.callCount())
}

func TestSubmit_MutationsRejectedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	fin := &stubFinalizer{release: release}
	m := newTestManager(newMemStore(decimal.Zero), fin, 0)
	s := readySession(t, m)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "op1")
		done <- err
	}()
	require.Eventually(t, func() bool { return fin.callCount() == 1 },
		time.Second, time.Millisecond)

	assert.ErrorIs(t, s.AddItem(ctx, testProduct("p2", "1.00", 5), 1), draft.ErrSubmitting)
	assert.ErrorIs(t, s.Cancel(ctx), ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestSubmit_Cooldown(t *testing.T) {
	ctx := context.Background()
	fin := &stubFinalizer{err: errors.New("network down")}
	m := newTestManager(newMemStore(decimal.Zero), fin, 60*time.Millisecond)
	s := readySession(t, m)

	_, err := s.Submit(ctx, "op1")
	require.Error(t, err)
	require.Equal(t, 1, fin.callCount())

	// Immediate retry lands inside the cooldown window.
	_, err = s.Submit(ctx, "op1")
	require.ErrorIs(t, err, ErrSubmitCooldown)
	assert.Equal(t, 1, fin.callCount())

	// After the window the retry goes through to the finalizer.
	time.Sleep(80 * time.Millisecond)
	fin.err = nil
	_, err = s.Submit(ctx, "op1")
	require.NoError(t, err)
	assert.Equal(t, 2, fin.callCount())
}

func TestSubmit_GateRejectionDoesNotArmCooldown(t *testing.T) {
	ctx := context.Background()
	fin := &stubFinalizer{}
	m := newTestManager(newMemStore(decimal.Zero), fin, time.Minute)
	s, err := m.Session(ctx, "reg-1")
	require.NoError(t, err)

	// The gate rejects the empty draft before the finalizer is reached.
	_, err = s.Submit(ctx, "op1")
	require.ErrorIs(t, err, ErrNotSubmittable)
	require.Equal(t, 0, fin.callCount())

	// Completing the draft must allow an immediate submit: a rejection that
	// never reached the finalizer does not start the cooldown.
	require.NoError(t, s.SelectCustomer(ctx, testCustomer()))
	require.NoError(t, s.AddItem(ctx, testProduct("p1", "10.00", 10), 1))

	_, err = s.Submit(ctx, "op1")
	require.NoError(t, err)
	assert.Equal(t, 1, fin.callCount())
}

func TestSubmit_CooldownNotExtendedByRejections(t *testing.T) {
	ctx := context.Background()
	fin := &stubFinalizer{err: errors.New("network down")}
	m := newTestManager(newMemStore(decimal.Zero), fin, 120*time.Millisecond)
	s := readySession(t, m)

	_, err := s.Submit(ctx, "op1")
	require.Error(t, err)
	require.Equal(t, 1, fin.callCount())

	// A retry inside the window is rejected without resetting it.
	time.Sleep(60 * time.Millisecond)
	_, err = s.Submit(ctx, "op1")
	require.ErrorIs(t, err, ErrSubmitCooldown)
	assert.Equal(t, 1, fin.callCount())

	// The window is measured from the resolved finalization call, not from
	// the rejection above, so this retry goes through.
	time.Sleep(80 * time.Millisecond)
	fin.err = nil
	_, err = s.Submit(ctx, "op1")
	require.NoError(t, err)
	assert.Equal(t, 2, fin.callCount())
}

func TestCancel_ClearsDraftAndCache(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(decimal.Zero)
	m := newTestManager(store, &stubFinalizer{}, 0)
	s := readySession(t, m)
	require.True(t, store.has("reg-1"))

	require.NoError(t, m.Cancel(ctx, "reg-1"))

	snap := s.Snapshot()
	assert.Equal(t, draft.StateEmpty, snap.State)
	assert.False(t, store.has("reg-1"))
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemStore(decimal.Zero), &stubFinalizer{}, 0)

	a, err := m.Session(ctx, "reg-a")
	require.NoError(t, err)
	b, err := m.Session(ctx, "reg-b")
	require.NoError(t, err)

	require.NoError(t, a.SelectCustomer(ctx, testCustomer()))
	assert.Nil(t, b.Snapshot().Customer)

	again, err := m.Session(ctx, "reg-a")
	require.NoError(t, err)
	assert.Same(t, a, again)
}

package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/saletrack/pos-checkout/internal/domain/cart"
	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/draft"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
)

// Submission errors.
var (
	// ErrSubmissionInFlight is returned when a submission for this draft is
	// already running. The second call is a no-op: it is not queued and not
	// retried, because finalization is not idempotent.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrSubmitCooldown absorbs rapid double-clicks right after a submission
	// resolved.
	ErrSubmitCooldown = errors.New("submission attempted too soon after the previous one")
	// ErrNotSubmittable is returned when the draft fails the submission gate.
	ErrNotSubmittable = errors.New("draft is not ready for submission")
)

// Finalizer commits a draft into a persisted sale. Implemented by
// sale.Service.
type Finalizer interface {
	Finalize(ctx context.Context, req sale.FinalizeRequest) (*sale.Sale, error)
}

// Session owns one register's draft. All draft access goes through the
// session, which serializes mutations, persists the draft to the cache after
// every change, and guards the submit path against duplicate invocation.
type Session struct {
	id        string
	store     draft.Store
	finalizer Finalizer
	cooldown  time.Duration

	mu    sync.Mutex
	draft *draft.Draft

	// inFlight is the single-permit submission guard. lastResolve holds the
	// unix-nano timestamp of the last resolved submission for the cooldown.
	inFlight    atomic.Bool
	lastResolve atomic.Int64

	lastSale *sale.Sale
}

// Snapshot is a consistent read-only view of the draft.
type Snapshot struct {
	SessionID string
	State     draft.State
	Customer  *customer.Customer
	Lines     []cart.Line
	Method    payment.Method
	Details   map[string]string
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	CanSubmit bool
}

// Snapshot returns the current draft view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID: s.id,
		State:     s.draft.State(),
		Customer:  s.draft.Customer(),
		Lines:     s.draft.Lines(),
		Method:    s.draft.Method(),
		Details:   s.draft.Details(),
		Subtotal:  s.draft.Subtotal(),
		Tax:       s.draft.Tax(),
		Total:     s.draft.Total(),
		CanSubmit: s.draft.CanSubmit(),
	}
}

// LastCompleted returns the most recently committed sale for this session,
// or nil. Retained until the next successful submission.
func (s *Session) LastCompleted() *sale.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSale
}

// mutate applies fn to the draft and, when it succeeds, persists the draft
// to the session cache so a reload resumes from this exact state.
func (s *Session) mutate(ctx context.Context, fn func(d *draft.Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.draft); err != nil {
		return err
	}
	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Session) persistLocked(ctx context.Context) error {
	if err := s.store.Save(ctx, s.id, s.draft); err != nil {
		return errors.Wrap(err, "persist draft")
	}
	return nil
}

// SelectCustomer replaces the draft's customer.
func (s *Session) SelectCustomer(ctx context.Context, c customer.Customer) error {
	return s.mutate(ctx, func(d *draft.Draft) error {
		return d.SelectCustomer(c)
	})
}

// AddItem adds quantity of the product to the cart.
func (s *Session) AddItem(ctx context.Context, p product.Product, quantity int) error {
	return s.mutate(ctx, func(d *draft.Draft) error {
		return d.AddItem(p, quantity)
	})
}

// SetQuantity replaces a line's quantity.
func (s *Session) SetQuantity(ctx context.Context, productID string, quantity int) error {
	return s.mutate(ctx, func(d *draft.Draft) error {
		return d.SetQuantity(productID, quantity)
	})
}

// RemoveItem removes a line from the cart.
func (s *Session) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, func(d *draft.Draft) error {
		return d.RemoveItem(productID)
	})
}

// SelectMethod switches the payment method, wiping entered details.
func (s *Session) SelectMethod(ctx context.Context, m payment.Method) error {
	return s.mutate(ctx, func(d *draft.Draft) error {
		return d.SelectMethod(m)
	})
}

// SetDetail merges one payment detail field.
func (s *Session) SetDetail(ctx context.Context, field, value string) error {
	return s.mutate(ctx, func(d *draft.Draft) error {
		return d.SetDetail(field, value)
	})
}

// Submit runs the finalization exactly once for the current draft.
//
// The guard is a compare-and-swap on a single permit: a second call while
// the first is unresolved fails immediately with ErrSubmissionInFlight. The
// permit is released on every exit path. A short cooldown after a resolved
// finalization call absorbs rapid double-clicks; rejections that never reach
// the finalizer do not arm it, so a corrected draft can be submitted
// immediately.
func (s *Session) Submit(ctx context.Context, userID string) (*sale.Sale, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	if last := s.lastResolve.Load(); last > 0 && s.cooldown > 0 {
		if time.Since(time.Unix(0, last)) < s.cooldown {
			return nil, ErrSubmitCooldown
		}
	}

	s.mu.Lock()
	if !s.draft.CanSubmit() {
		s.mu.Unlock()
		return nil, ErrNotSubmittable
	}
	if err := s.draft.BeginSubmit(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	req := s.buildRequestLocked(userID)
	custSnapshot := s.draft.Customer()
	s.mu.Unlock()

	// The finalization call runs without the session lock; concurrent draft
	// mutations are rejected by the draft's submitting flag, and reads stay
	// consistent.
	committed, err := s.finalizer.Finalize(ctx, req)
	s.lastResolve.Store(time.Now().UnixNano())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.EndSubmit()

	if err != nil {
		// Some server failure paths clear the customer optimistically;
		// putting the snapshot back guarantees the draft is fully intact.
		s.draft.RestoreCustomer(custSnapshot)
		return nil, err
	}

	s.lastSale = committed
	s.draft.Clear()
	if derr := s.store.Delete(ctx, s.id); derr != nil {
		// The sale is committed; a stale cache entry is cleaned up on the
		// next session load.
		zctx.From(ctx).Warn("delete draft cache after completion",
			zap.String("session_id", s.id), zap.Error(derr))
	}
	return committed, nil
}

func (s *Session) buildRequestLocked(userID string) sale.FinalizeRequest {
	lines := s.draft.Lines()
	reqLines := make([]sale.Line, len(lines))
	for i, l := range lines {
		reqLines[i] = sale.Line{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		}
	}
	return sale.FinalizeRequest{
		CustomerID:  s.draft.Customer().ID,
		UserID:      userID,
		Lines:       reqLines,
		Method:      s.draft.Method(),
		Details:     s.draft.Details(),
		ClientTotal: s.draft.Total(),
	}
}

// Cancel clears the draft and its cache entry without committing. It is not
// available while a submission is in flight.
func (s *Session) Cancel(ctx context.Context) error {
	if s.inFlight.Load() {
		return ErrSubmissionInFlight
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Clear()
	if err := s.store.Delete(ctx, s.id); err != nil {
		return errors.Wrap(err, "delete draft cache")
	}
	return nil
}

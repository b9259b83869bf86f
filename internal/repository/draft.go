package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/draft"
)

const (
	loadDraftSQL = `SELECT payload FROM draft_sessions WHERE session_id = $1`

	saveDraftSQL = `INSERT INTO draft_sessions (session_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	deleteDraftSQL = `DELETE FROM draft_sessions WHERE session_id = $1`
)

var _ draft.Store = (*DraftRepository)(nil)

// DraftRepository persists encoded drafts keyed by session so interrupted
// captures survive a process restart.
type DraftRepository struct {
	pool    *pgxpool.Pool
	taxRate decimal.Decimal
}

// NewDraftRepository returns a DraftRepository that decodes drafts with the
// given tax rate.
func NewDraftRepository(pool *pgxpool.Pool, taxRate decimal.Decimal) *DraftRepository {
	return &DraftRepository{pool: pool, taxRate: taxRate}
}

func (r *DraftRepository) Load(ctx context.Context, sessionID string) (*draft.Draft, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, loadDraftSQL, sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, draft.ErrNoDraft
		}
		return nil, fmt.Errorf("loading draft of session %q: %w", sessionID, err)
	}
	d, err := draft.Decode(payload, r.taxRate)
	if err != nil {
		return nil, fmt.Errorf("decoding draft of session %q: %w", sessionID, err)
	}
	return d, nil
}

func (r *DraftRepository) Save(ctx context.Context, sessionID string, d *draft.Draft) error {
	payload, err := draft.Encode(d)
	if err != nil {
		return fmt.Errorf("encoding draft of session %q: %w", sessionID, err)
	}
	if _, err := r.pool.Exec(ctx, saveDraftSQL, sessionID, payload); err != nil {
		return fmt.Errorf("saving draft of session %q: %w", sessionID, err)
	}
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, deleteDraftSQL, sessionID); err != nil {
		return fmt.Errorf("deleting draft of session %q: %w", sessionID, err)
	}
	return nil
}

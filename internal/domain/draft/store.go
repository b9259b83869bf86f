package draft

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNoDraft is returned by Load when the session has no cached draft.
var ErrNoDraft = errors.New("no cached draft for session")

// Store is the durable session cache for in-progress drafts. Implementations
// persist the encoded draft (see Encode/Decode) keyed by session so an
// interrupted capture resumes after a reload or process restart.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Draft, error)
	Save(ctx context.Context, sessionID string, d *Draft) error
	Delete(ctx context.Context, sessionID string) error
}

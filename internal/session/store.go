package session

import (
	"context"
	"log/slog"
	"time"
)

// TTL is the fixed lifetime of an import session.
const TTL = 10 * time.Minute

// Store is the keyed, TTL-bearing staging area between the parse and commit
// phases of a bulk import. Implementations are safe for concurrent use
// across different session ids.
type Store interface {
	// Create stores the folder list under a fresh opaque id.
	Create(ctx context.Context, folders []Folder) (*Session, error)
	// Get returns the session only while now < ExpiresAt; an expired
	// session is indistinguishable from one that never existed (NotFound).
	Get(ctx context.Context, id string) (*Session, error)
	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, id string) error
	// Cleanup removes every expired session and reports how many it removed.
	Cleanup(ctx context.Context) (int, error)
}

// Sweep runs Cleanup on a fixed interval until ctx is cancelled. It is
// fire-and-forget and idempotent; abandoned sessions are reclaimed here
// rather than on the request path.
func Sweep(ctx context.Context, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Cleanup(ctx)
			if err != nil {
				slog.WarnContext(ctx, "session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.DebugContext(ctx, "expired import sessions removed", "count", removed)
			}
		}
	}
}

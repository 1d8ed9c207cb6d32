package cart

import "context"

// Store keeps one cart per session. Update must apply op atomically with
// respect to other updates of the same session. Take empties the cart and
// returns what it held, in one step.
type Store interface {
	Get(ctx context.Context, sessionID string) (Cart, error)
	Update(ctx context.Context, sessionID string, op Op) (Cart, error)
	Take(ctx context.Context, sessionID string) (Cart, error)
	Ping(ctx context.Context) error
}

package ports

import (
	"context"
	"time"
)

// Store interface for session token invalidation
type Store interface {
	// InvalidateToken records tokenID as invalidated for expiry. claimed is
	// true only for the call that created the record, so at most one caller
	// can redeem a token.
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (claimed bool, err error)
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos accept this instead of a bare *gorm.DB so a caller can thread a
// transaction through several repo calls, or pass a nil Tx to let the
// repo fall back to its own *gorm.DB handle.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

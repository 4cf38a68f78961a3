// Package dbctx bundles a request context with an optional gorm transaction.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context is passed to every repository call. Tx is used when set.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction if present, else fallback, bound to Ctx.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	t := c.Tx
	if t == nil {
		t = fallback
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return t.WithContext(ctx)
}

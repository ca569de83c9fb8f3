package server

import (
	"context"
	"database/sql"

	"github.com/onnwee/peak-tender/analysis"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db   *sql.DB
	ctx  context.Context
	opts analysis.Options
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// opts are the server-wide analysis defaults; individual requests may
// override them with query parameters.
func NewHandlers(ctx context.Context, db *sql.DB, opts analysis.Options) *Handlers {
	return &Handlers{db: db, ctx: ctx, opts: opts}
}

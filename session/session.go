/*
Package session opens a bookkeeping session from Settings.

A session is one store plus one ledger.Runtime bound to it. Opening
checks the schema version before anything is read and makes sure the
configured default salesman exists, so commands that omit a salesman can
be recorded on a fresh file.

  s, err := session.Open(ctx, cfg, session.WithLogger(log))
  if err != nil { ... }
  defer s.Close()
  s.Runtime.RecordSale(ctx, ...)
*/
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/warp/stockbook/config"
	"github.com/warp/stockbook/ledger"
	"github.com/warp/stockbook/ledger/store"
	"github.com/warp/stockbook/store/sqlite"
)

type Session struct {
	Runtime *ledger.Runtime
	closer  io.Closer
}

type options struct {
	log zerolog.Logger
	obs ledger.Observer
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithObserver(obs ledger.Observer) Option {
	return func(o *options) { o.obs = obs }
}

// Open opens cfg.DataFile (SQLite, or memory for ":memory:") and returns a
// ready session.
func Open(ctx context.Context, cfg *config.Settings, opts ...Option) (*Session, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		st     ledger.Store
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg.InMemory() {
		st = store.NewMemory()
	} else {
		db, err := sqlite.New(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DataFile, err)
		}
		st, closer = db, db
	}

	rt := ledger.NewRuntime(st,
		ledger.WithDefaultSalesman(cfg.DefaultSalesman),
		ledger.WithLogger(o.log),
		ledger.WithObserver(o.obs),
	)
	if err := rt.EnsureSchemaVersion(ctx, cfg.SchemaVersion); err != nil {
		closer.Close()
		return nil, err
	}
	if err := rt.EnsureDefaultSalesman(ctx, cfg.DefaultSalesmanName); err != nil {
		closer.Close()
		return nil, fmt.Errorf("register default salesman: %w", err)
	}

	o.log.Debug().Str("data_file", cfg.DataFile).Str("schema_version", cfg.SchemaVersion).Msg("session opened")
	return &Session{Runtime: rt, closer: closer}, nil
}

// Close releases the underlying store.
func (s *Session) Close() error {
	return s.closer.Close()
}

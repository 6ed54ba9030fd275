// Copyright 2024-2026 Aiku AI

// Package store is the durable pairing store: link declarations between
// containers in different guilds and the confirmation state attached to
// them. It owns four relations (channel_pair, forum_pair, thread_pair,
// pairing_reply) and exposes single-round-trip queries over a
// dbutil.Database. No caching, no policy.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	"github.com/aiku/guildlink/pkg/apperr"
)

// VersionTableName is where dbutil tracks the schema version.
const VersionTableName = "guildlink_version"

// Store provides access to the pairing relations.
type Store struct {
	db  *dbutil.Database
	log zerolog.Logger
}

// New wraps a dbutil.Database. The caller still has to run Upgrade before
// using the store.
func New(db *dbutil.Database, log zerolog.Logger) *Store {
	db.UpgradeTable = UpgradeTable
	db.VersionTable = VersionTableName
	return &Store{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
	}
}

// Upgrade creates or migrates the schema.
func (s *Store) Upgrade(ctx context.Context) error {
	return s.db.Upgrade(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// wrapErr maps driver-level failures onto the shared taxonomy. Zero-row
// lookups become NotFound, unique-constraint violations BadRequest,
// everything else (connectivity, pool exhaustion) a retryable Internal.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apperr.Wrap(apperr.NotFound, op, err)
	case isUniqueViolation(err):
		return apperr.Wrap(apperr.BadRequest, op, err)
	default:
		return apperr.Wrap(apperr.Internal, op, err)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// The sqlite3 driver is only linked into tests, so match the message
	// instead of its error type here.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

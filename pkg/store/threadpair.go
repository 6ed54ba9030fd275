// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"time"

	"go.mau.fi/util/dbutil"
)

// ThreadPair is a materialized per-thread link, created once a forum
// pairing proposal is confirmed. Rows always exist in reciprocal pairs
// (A->B and B->A) referencing the same pairing reply, so the relay lookup
// is symmetric without reverse queries.
type ThreadPair struct {
	ID         int64
	FromGuild  string
	FromThread string
	ToGuild    string
	ToThread   string
	// ReplyID is the pairing reply whose acceptance materialized this link.
	ReplyID   int64
	CreatedAt time.Time
}

const (
	getThreadPairsQuery = `
		SELECT id, from_guild, from_thread, to_guild, to_thread, reply_id, created_at
		FROM thread_pair
		WHERE from_guild = $1 AND from_thread = $2
		ORDER BY id
	`
	insertThreadPairQuery = `
		INSERT INTO thread_pair (from_guild, from_thread, to_guild, to_thread, reply_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
)

func scanThreadPair(row dbutil.Scannable) (*ThreadPair, error) {
	var pair ThreadPair
	var createdAt int64
	err := row.Scan(&pair.ID, &pair.FromGuild, &pair.FromThread, &pair.ToGuild, &pair.ToThread, &pair.ReplyID, &createdAt)
	if err != nil {
		return nil, err
	}
	pair.CreatedAt = time.UnixMilli(createdAt)
	return &pair, nil
}

var threadPairScanner = dbutil.ConvertRowFn[*ThreadPair](scanThreadPair)

// GetThreadPairs is the relay lookup for thread-based relay. A thread pair
// existing at all implies the pairing is active: rows are only ever
// created in the confirmed branch, so no status filter is needed here.
func (s *Store) GetThreadPairs(ctx context.Context, guildID, threadID string) ([]*ThreadPair, error) {
	pairs, err := threadPairScanner.
		NewRowIter(s.db.Query(ctx, getThreadPairsQuery, guildID, threadID)).
		AsList()
	return pairs, wrapErr("get thread pairs", err)
}

// CreateThreadPairs inserts both directions of a materialized link in one
// transaction. Either both rows exist afterwards or neither does.
func (s *Store) CreateThreadPairs(ctx context.Context, first, second *ThreadPair) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	first.CreatedAt = now
	second.CreatedAt = now
	err := s.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		for _, pair := range []*ThreadPair{first, second} {
			err := s.db.QueryRow(ctx, insertThreadPairQuery,
				pair.FromGuild, pair.FromThread, pair.ToGuild, pair.ToThread, pair.ReplyID, pair.CreatedAt.UnixMilli(),
			).Scan(&pair.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrapErr("create thread pairs", err)
}

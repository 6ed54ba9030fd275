// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"database/sql"
	"time"

	"go.mau.fi/util/dbutil"
)

// ChannelPair is a directed link declaration between two plain channels.
// Immutable once created.
type ChannelPair struct {
	ID          int64
	FromGuild   string
	FromChannel string
	ToGuild     string
	ToChannel   string
	CreatedAt   time.Time
}

const (
	selectChannelPair = `
		SELECT id, from_guild, from_channel, to_guild, to_channel, created_at
		FROM channel_pair
	`
	getChannelPairsQuery = selectChannelPair + `
		WHERE from_guild = $1 AND from_channel = $2
		ORDER BY id
	`
	getActiveChannelPairsQuery = `
		SELECT cp.id, cp.from_guild, cp.from_channel, cp.to_guild, cp.to_channel, cp.created_at
		FROM channel_pair cp
		INNER JOIN pairing_reply pr
			ON pr.parent_pair_id = cp.id AND pr.parent_kind = 'channel'
		WHERE cp.from_guild = $1 AND cp.from_channel = $2 AND pr.status = 'active'
		ORDER BY cp.id
	`
	insertChannelPairQuery = `
		INSERT INTO channel_pair (from_guild, from_channel, to_guild, to_channel, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
)

func scanChannelPair(row dbutil.Scannable) (*ChannelPair, error) {
	var pair ChannelPair
	var createdAt int64
	err := row.Scan(&pair.ID, &pair.FromGuild, &pair.FromChannel, &pair.ToGuild, &pair.ToChannel, &createdAt)
	if err != nil {
		return nil, err
	}
	pair.CreatedAt = time.UnixMilli(createdAt)
	return &pair, nil
}

var channelPairScanner = dbutil.ConvertRowFn[*ChannelPair](scanChannelPair)

// GetChannelPairs returns all declared pairs whose origin matches,
// regardless of confirmation state. Insertion order.
func (s *Store) GetChannelPairs(ctx context.Context, guildID, channelID string) ([]*ChannelPair, error) {
	pairs, err := channelPairScanner.
		NewRowIter(s.db.Query(ctx, getChannelPairsQuery, guildID, channelID)).
		AsList()
	return pairs, wrapErr("get channel pairs", err)
}

// GetActiveChannelPairs returns only pairs whose confirmation reply has
// reached active status. This is the relay lookup for plain channels.
func (s *Store) GetActiveChannelPairs(ctx context.Context, guildID, channelID string) ([]*ChannelPair, error) {
	pairs, err := channelPairScanner.
		NewRowIter(s.db.Query(ctx, getActiveChannelPairsQuery, guildID, channelID)).
		AsList()
	return pairs, wrapErr("get active channel pairs", err)
}

// CreateChannelPair inserts a new declaration and fills in the assigned ID
// and creation time. A duplicate declaration fails with BadRequest.
func (s *Store) CreateChannelPair(ctx context.Context, pair *ChannelPair) (*ChannelPair, error) {
	pair.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	err := s.db.QueryRow(ctx, insertChannelPairQuery,
		pair.FromGuild, pair.FromChannel, pair.ToGuild, pair.ToChannel, pair.CreatedAt.UnixMilli(),
	).Scan(&pair.ID)
	if err != nil {
		return nil, wrapErr("create channel pair", err)
	}
	return pair, nil
}

// DeleteChannelPairCascade removes a declaration together with its pairing
// reply, in one transaction. NotFound if the pair does not exist.
func (s *Store) DeleteChannelPairCascade(ctx context.Context, id int64) error {
	err := s.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx,
			`DELETE FROM pairing_reply WHERE parent_kind = 'channel' AND parent_pair_id = $1`, id)
		if err != nil {
			return err
		}
		res, err := s.db.Exec(ctx, `DELETE FROM channel_pair WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	return wrapErr("delete channel pair", err)
}

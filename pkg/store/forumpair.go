// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"database/sql"
	"time"

	"go.mau.fi/util/dbutil"
)

// ForumPair is a directed link declaration between two forum containers.
// Its children (threads/posts) are paired individually via ThreadPair once
// a proposal is confirmed. Immutable once created.
type ForumPair struct {
	ID        int64
	FromGuild string
	FromForum string
	ToGuild   string
	ToForum   string
	CreatedAt time.Time
}

const (
	selectForumPair = `
		SELECT id, from_guild, from_forum, to_guild, to_forum, created_at
		FROM forum_pair
	`
	getForumPairsQuery    = selectForumPair + ` WHERE from_guild = $1 AND from_forum = $2 ORDER BY id`
	getForumPairByIDQuery = selectForumPair + ` WHERE id = $1`
	insertForumPairQuery  = `
		INSERT INTO forum_pair (from_guild, from_forum, to_guild, to_forum, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
)

func scanForumPair(row dbutil.Scannable) (*ForumPair, error) {
	var pair ForumPair
	var createdAt int64
	err := row.Scan(&pair.ID, &pair.FromGuild, &pair.FromForum, &pair.ToGuild, &pair.ToForum, &createdAt)
	if err != nil {
		return nil, err
	}
	pair.CreatedAt = time.UnixMilli(createdAt)
	return &pair, nil
}

var forumPairScanner = dbutil.ConvertRowFn[*ForumPair](scanForumPair)

// GetForumPairs returns all declared forum pairs whose origin matches, in
// insertion order.
func (s *Store) GetForumPairs(ctx context.Context, guildID, forumID string) ([]*ForumPair, error) {
	pairs, err := forumPairScanner.
		NewRowIter(s.db.Query(ctx, getForumPairsQuery, guildID, forumID)).
		AsList()
	return pairs, wrapErr("get forum pairs", err)
}

// GetForumPairByID returns a single forum pair, or NotFound.
func (s *Store) GetForumPairByID(ctx context.Context, id int64) (*ForumPair, error) {
	pair, err := scanForumPair(s.db.QueryRow(ctx, getForumPairByIDQuery, id))
	if err != nil {
		return nil, wrapErr("get forum pair", err)
	}
	return pair, nil
}

// CreateForumPair inserts a new declaration and fills in the assigned ID
// and creation time. A duplicate declaration fails with BadRequest.
func (s *Store) CreateForumPair(ctx context.Context, pair *ForumPair) (*ForumPair, error) {
	pair.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	err := s.db.QueryRow(ctx, insertForumPairQuery,
		pair.FromGuild, pair.FromForum, pair.ToGuild, pair.ToForum, pair.CreatedAt.UnixMilli(),
	).Scan(&pair.ID)
	if err != nil {
		return nil, wrapErr("create forum pair", err)
	}
	return pair, nil
}

// DeleteForumPairCascade removes a declaration together with its pairing
// replies and all thread pairs materialized from them, in one transaction.
// NotFound if the pair does not exist.
func (s *Store) DeleteForumPairCascade(ctx context.Context, id int64) error {
	err := s.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			DELETE FROM thread_pair WHERE reply_id IN (
				SELECT id FROM pairing_reply WHERE parent_kind = 'forum' AND parent_pair_id = $1
			)`, id)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(ctx,
			`DELETE FROM pairing_reply WHERE parent_kind = 'forum' AND parent_pair_id = $1`, id)
		if err != nil {
			return err
		}
		res, err := s.db.Exec(ctx, `DELETE FROM forum_pair WHERE id = $1`, id)
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
	return wrapErr("delete forum pair", err)
}

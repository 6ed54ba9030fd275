// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"database/sql"
	"time"

	"go.mau.fi/util/dbutil"
)

// ReplyStatus is the confirmation state of a pairing proposal.
type ReplyStatus string

const (
	// StatusInactive means the proposal is awaiting the owner's decision.
	StatusInactive ReplyStatus = "inactive"
	// StatusActive means the owner accepted and replication is live.
	StatusActive ReplyStatus = "active"
	// StatusRejected is the terminal declined state.
	StatusRejected ReplyStatus = "rejected"
)

// ParentKind says which relation a reply's parent pair lives in. Channel
// and forum pairs have independent ID sequences, so the kind is needed to
// make parent_pair_id unambiguous.
type ParentKind string

const (
	ParentChannel ParentKind = "channel"
	ParentForum   ParentKind = "forum"
)

// PairingReply tracks one confirmation prompt's lifecycle. It is the only
// mutable entity in the store; at most one row exists per
// (guild_id, channel_id), enforced by a unique constraint.
type PairingReply struct {
	ID           int64
	Responded    bool
	Status       ReplyStatus
	GuildID      string
	ChannelID    string
	ParentKind   ParentKind
	ParentPairID int64
	// MessageID is the outbound prompt message carrying the confirm/deny
	// affordances. Empty until the prompt has been sent, since the row is
	// created first.
	MessageID    string
	MessageOwner string
	CreatedAt    time.Time
}

const (
	selectPairingReply = `
		SELECT id, responded, status, guild_id, channel_id, parent_kind,
		       parent_pair_id, message_id, message_owner, created_at
		FROM pairing_reply
	`
	getPairingReplyQuery          = selectPairingReply + ` WHERE guild_id = $1 AND channel_id = $2`
	getPairingReplyByMessageQuery = selectPairingReply + ` WHERE guild_id = $1 AND channel_id = $2 AND message_id = $3`
	insertPairingReplyQuery       = `
		INSERT INTO pairing_reply (responded, status, guild_id, channel_id, parent_kind,
		                           parent_pair_id, message_id, message_owner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	// The status filter makes accept/reject a single atomic conditional
	// update: whichever signal lands second affects zero rows and
	// surfaces as NotFound instead of overwriting the winner.
	updatePairingReplyStatusQuery = `
		UPDATE pairing_reply SET responded = $3, status = $4
		WHERE guild_id = $1 AND channel_id = $2 AND status = 'inactive'
	`
	updatePairingReplyMessageIDQuery = `
		UPDATE pairing_reply SET message_id = $3
		WHERE guild_id = $1 AND channel_id = $2
	`
	deletePairingReplyQuery = `DELETE FROM pairing_reply WHERE id = $1`
	resolveParentForumQuery = `
		SELECT fp.from_forum
		FROM pairing_reply pr
		INNER JOIN forum_pair fp ON pr.parent_pair_id = fp.id AND pr.parent_kind = 'forum'
		WHERE pr.guild_id = $1 AND pr.message_id = $2
	`
)

func scanPairingReply(row dbutil.Scannable) (*PairingReply, error) {
	var reply PairingReply
	var messageID sql.NullString
	var createdAt int64
	err := row.Scan(&reply.ID, &reply.Responded, &reply.Status, &reply.GuildID, &reply.ChannelID,
		&reply.ParentKind, &reply.ParentPairID, &messageID, &reply.MessageOwner, &createdAt)
	if err != nil {
		return nil, err
	}
	reply.MessageID = messageID.String
	reply.CreatedAt = time.UnixMilli(createdAt)
	return &reply, nil
}

// GetPairingReply returns the reply for a container, or NotFound.
func (s *Store) GetPairingReply(ctx context.Context, guildID, channelID string) (*PairingReply, error) {
	reply, err := scanPairingReply(s.db.QueryRow(ctx, getPairingReplyQuery, guildID, channelID))
	if err != nil {
		return nil, wrapErr("get pairing reply", err)
	}
	return reply, nil
}

// GetPairingReplyByMessage re-identifies the proposal a confirm/deny
// reaction applies to, additionally matching the prompt message.
func (s *Store) GetPairingReplyByMessage(ctx context.Context, guildID, channelID, messageID string) (*PairingReply, error) {
	reply, err := scanPairingReply(s.db.QueryRow(ctx, getPairingReplyByMessageQuery, guildID, channelID, messageID))
	if err != nil {
		return nil, wrapErr("get pairing reply by message", err)
	}
	return reply, nil
}

// CreatePairingReply inserts a new proposal row and fills in the assigned
// ID and creation time. A second proposal for the same container fails
// with BadRequest.
func (s *Store) CreatePairingReply(ctx context.Context, reply *PairingReply) (*PairingReply, error) {
	reply.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	var messageID sql.NullString
	if reply.MessageID != "" {
		messageID = sql.NullString{String: reply.MessageID, Valid: true}
	}
	err := s.db.QueryRow(ctx, insertPairingReplyQuery,
		reply.Responded, reply.Status, reply.GuildID, reply.ChannelID, reply.ParentKind,
		reply.ParentPairID, messageID, reply.MessageOwner, reply.CreatedAt.UnixMilli(),
	).Scan(&reply.ID)
	if err != nil {
		return nil, wrapErr("create pairing reply", err)
	}
	return reply, nil
}

// UpdatePairingReplyStatus resolves a proposal. The update only matches
// rows still in the inactive state; if it affects zero rows the proposal
// was already resolved (or never existed) and NotFound is returned.
func (s *Store) UpdatePairingReplyStatus(ctx context.Context, guildID, channelID string, responded bool, status ReplyStatus) (*PairingReply, error) {
	res, err := s.db.Exec(ctx, updatePairingReplyStatusQuery, guildID, channelID, responded, status)
	if err != nil {
		return nil, wrapErr("update pairing reply status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, wrapErr("update pairing reply status", err)
	}
	if affected == 0 {
		return nil, wrapErr("update pairing reply status", sql.ErrNoRows)
	}
	return s.GetPairingReply(ctx, guildID, channelID)
}

// UpdatePairingReplyMessageID records which outbound prompt message
// carries the confirm/deny affordances. NotFound on zero rows.
func (s *Store) UpdatePairingReplyMessageID(ctx context.Context, guildID, channelID, messageID string) error {
	res, err := s.db.Exec(ctx, updatePairingReplyMessageIDQuery, guildID, channelID, messageID)
	if err != nil {
		return wrapErr("update pairing reply message id", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update pairing reply message id", err)
	}
	if affected == 0 {
		return wrapErr("update pairing reply message id", sql.ErrNoRows)
	}
	return nil
}

// DeletePairingReply removes a reply row and returns how many rows were
// affected.
func (s *Store) DeletePairingReply(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.Exec(ctx, deletePairingReplyQuery, id)
	if err != nil {
		return 0, wrapErr("delete pairing reply", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("delete pairing reply", err)
	}
	return affected, nil
}

// ResolveParentForum walks pairing_reply -> forum_pair to recover the
// originating forum for a known confirmation prompt message.
func (s *Store) ResolveParentForum(ctx context.Context, guildID, messageID string) (string, error) {
	var forumID string
	err := s.db.QueryRow(ctx, resolveParentForumQuery, guildID, messageID).Scan(&forumID)
	if err != nil {
		return "", wrapErr("resolve parent forum", err)
	}
	return forumID, nil
}

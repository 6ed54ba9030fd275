// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"fmt"

	"go.mau.fi/util/dbutil"
)

// UpgradeTable holds the schema migrations. Registered in Go rather than
// embedded SQL because the identity column differs between Postgres and
// the sqlite used by the tests.
var UpgradeTable dbutil.UpgradeTable

func init() {
	UpgradeTable.Register(0, 1, 0, "Latest revision", dbutil.TxnModeOn, upgradeV1)
}

func upgradeV1(ctx context.Context, db *dbutil.Database) error {
	serial := "BIGSERIAL PRIMARY KEY"
	if db.Dialect == dbutil.SQLite {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	queries := []string{
		fmt.Sprintf(`CREATE TABLE channel_pair (
			id           %s,
			from_guild   TEXT   NOT NULL,
			from_channel TEXT   NOT NULL,
			to_guild     TEXT   NOT NULL,
			to_channel   TEXT   NOT NULL,
			created_at   BIGINT NOT NULL,

			UNIQUE (from_guild, from_channel, to_guild, to_channel)
		)`, serial),
		fmt.Sprintf(`CREATE TABLE forum_pair (
			id         %s,
			from_guild TEXT   NOT NULL,
			from_forum TEXT   NOT NULL,
			to_guild   TEXT   NOT NULL,
			to_forum   TEXT   NOT NULL,
			created_at BIGINT NOT NULL,

			UNIQUE (from_guild, from_forum, to_guild, to_forum)
		)`, serial),
		fmt.Sprintf(`CREATE TABLE thread_pair (
			id          %s,
			from_guild  TEXT   NOT NULL,
			from_thread TEXT   NOT NULL,
			to_guild    TEXT   NOT NULL,
			to_thread   TEXT   NOT NULL,
			reply_id    BIGINT NOT NULL,
			created_at  BIGINT NOT NULL
		)`, serial),
		fmt.Sprintf(`CREATE TABLE pairing_reply (
			id             %s,
			responded      BOOLEAN NOT NULL,
			status         TEXT    NOT NULL,
			guild_id       TEXT    NOT NULL,
			channel_id     TEXT    NOT NULL,
			parent_kind    TEXT    NOT NULL,
			parent_pair_id BIGINT  NOT NULL,
			message_id     TEXT,
			message_owner  TEXT    NOT NULL,
			created_at     BIGINT  NOT NULL,

			UNIQUE (guild_id, channel_id)
		)`, serial),
		`CREATE INDEX thread_pair_origin_idx ON thread_pair (from_guild, from_thread)`,
		`CREATE INDEX pairing_reply_message_idx ON pairing_reply (guild_id, channel_id, message_id)`,
	}
	for _, query := range queries {
		if _, err := db.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

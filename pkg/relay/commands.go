// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aiku/guildlink/pkg/apperr"
	"github.com/aiku/guildlink/pkg/store"
)

// maybeHandleCommand intercepts operator commands before relay. Returns
// true when the message was a command (handled or not); command messages
// are never relayed.
func (r *Relayer) maybeHandleCommand(ctx context.Context, evt *MessageCreated) bool {
	if !strings.HasPrefix(evt.Content, r.config.CommandPrefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(evt.Content, r.config.CommandPrefix))
	if len(fields) == 0 {
		return false
	}
	command, args := fields[0], fields[1:]

	log := zerolog.Ctx(ctx).With().
		Str("command", command).
		Str("user_id", evt.AuthorID).
		Logger()
	ctx = log.WithContext(ctx)

	switch command {
	case "ping":
		r.reply(ctx, evt.GuildID, evt.ContainerID, "Pong! : )")
	case "about":
		r.reply(ctx, evt.GuildID, evt.ContainerID, "guildlink relays linked channels, forums and threads across guilds.")
	case "link":
		r.requireAdmin(ctx, evt, func() { r.cmdLink(ctx, evt, args) })
	case "linkforum":
		r.requireAdmin(ctx, evt, func() { r.cmdLinkForum(ctx, evt, args) })
	case "unlink":
		r.requireAdmin(ctx, evt, func() { r.cmdUnlink(ctx, evt, args) })
	default:
		return false
	}
	return true
}

func (r *Relayer) requireAdmin(ctx context.Context, evt *MessageCreated, run func()) {
	if !r.config.IsAdmin(evt.AuthorID) {
		zerolog.Ctx(ctx).Debug().Msg("Pair management command from non-admin")
		r.reply(ctx, evt.GuildID, evt.ContainerID, "You are not allowed to manage pairs.")
		return
	}
	run()
}

// cmdLink declares a directed channel pair:
// !link <from_guild> <from_channel> <to_guild> <to_channel>
func (r *Relayer) cmdLink(ctx context.Context, evt *MessageCreated, args []string) {
	if len(args) != 4 {
		r.reply(ctx, evt.GuildID, evt.ContainerID,
			"Usage: "+r.config.CommandPrefix+"link <from_guild> <from_channel> <to_guild> <to_channel>")
		return
	}
	pair, err := r.store.CreateChannelPair(ctx, &store.ChannelPair{
		FromGuild: args[0], FromChannel: args[1], ToGuild: args[2], ToChannel: args[3],
	})
	if err != nil {
		r.replyCreateError(ctx, evt, "channel pair", err)
		return
	}
	zerolog.Ctx(ctx).Info().Int64("pair_id", pair.ID).Msg("Channel pair created")
	r.reply(ctx, evt.GuildID, evt.ContainerID, fmt.Sprintf("Channel pair #%d created.", pair.ID))
}

// cmdLinkForum declares a directed forum pair:
// !linkforum <from_guild> <from_forum> <to_guild> <to_forum>
func (r *Relayer) cmdLinkForum(ctx context.Context, evt *MessageCreated, args []string) {
	if len(args) != 4 {
		r.reply(ctx, evt.GuildID, evt.ContainerID,
			"Usage: "+r.config.CommandPrefix+"linkforum <from_guild> <from_forum> <to_guild> <to_forum>")
		return
	}
	pair, err := r.store.CreateForumPair(ctx, &store.ForumPair{
		FromGuild: args[0], FromForum: args[1], ToGuild: args[2], ToForum: args[3],
	})
	if err != nil {
		r.replyCreateError(ctx, evt, "forum pair", err)
		return
	}
	zerolog.Ctx(ctx).Info().Int64("pair_id", pair.ID).Msg("Forum pair created")
	r.reply(ctx, evt.GuildID, evt.ContainerID, fmt.Sprintf("Forum pair #%d created.", pair.ID))
}

// cmdUnlink tears down a declaration, cascading to its replies and any
// materialized thread pairs: !unlink channel|forum <id>
func (r *Relayer) cmdUnlink(ctx context.Context, evt *MessageCreated, args []string) {
	usage := "Usage: " + r.config.CommandPrefix + "unlink channel|forum <id>"
	if len(args) != 2 {
		r.reply(ctx, evt.GuildID, evt.ContainerID, usage)
		return
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		r.reply(ctx, evt.GuildID, evt.ContainerID, usage)
		return
	}

	switch args[0] {
	case "channel":
		err = r.store.DeleteChannelPairCascade(ctx, id)
	case "forum":
		err = r.store.DeleteForumPairCascade(ctx, id)
	default:
		r.reply(ctx, evt.GuildID, evt.ContainerID, usage)
		return
	}

	if apperr.IsType(err, apperr.NotFound) {
		r.reply(ctx, evt.GuildID, evt.ContainerID, fmt.Sprintf("No %s pair #%d.", args[0], id))
		return
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to delete pair")
		r.reply(ctx, evt.GuildID, evt.ContainerID, "Failed to delete the pair, please try again.")
		return
	}
	zerolog.Ctx(ctx).Info().Int64("pair_id", id).Str("pair_kind", args[0]).Msg("Pair deleted")
	r.reply(ctx, evt.GuildID, evt.ContainerID, fmt.Sprintf("Deleted %s pair #%d and its links.", args[0], id))
}

func (r *Relayer) replyCreateError(ctx context.Context, evt *MessageCreated, what string, err error) {
	if apperr.IsType(err, apperr.BadRequest) {
		r.reply(ctx, evt.GuildID, evt.ContainerID, "That "+what+" is already declared.")
		return
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to create " + what)
	r.reply(ctx, evt.GuildID, evt.ContainerID, "Failed to create the "+what+", please try again.")
}

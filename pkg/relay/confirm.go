// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aiku/guildlink/pkg/apperr"
	"github.com/aiku/guildlink/pkg/store"
)

// candidatePair is one declared pair considered for a proposal, with the
// remote side already named for the prompt text.
type candidatePair struct {
	pairID          int64
	kind            store.ParentKind
	targetGuild     string
	targetContainer string
}

// handleContainerCreated drives the NONE -> PROPOSED transition: when a
// container appears under a parent with declared pairs and no existing
// reply, create the reply row, send the confirmation prompt, record its
// message ID, and attach the accept/reject affordances.
func (r *Relayer) handleContainerCreated(ctx context.Context, evt *ContainerCreated) {
	log := zerolog.Ctx(ctx).With().
		Str("guild_id", evt.GuildID).
		Str("container_id", evt.ContainerID).
		Str("kind", string(evt.Kind)).
		Logger()

	candidates, err := r.declaredPairs(ctx, evt)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up declared pairs")
		return
	}
	if len(candidates) == 0 {
		return
	}

	for _, candidate := range candidates {
		// One outstanding proposal per container: once any reply exists
		// for this container, later pairs in the loop are not proposed.
		_, err := r.store.GetPairingReply(ctx, evt.GuildID, evt.ContainerID)
		if err == nil {
			log.Debug().Msg("Pairing already proposed, skipping")
			continue
		}
		if !apperr.IsType(err, apperr.NotFound) {
			log.Error().Err(err).Msg("Failed to check for existing pairing reply")
			return
		}
		r.propose(ctx, evt, candidate)
	}
}

// declaredPairs lists the pair declarations that make this container a
// pairing candidate, in store order.
func (r *Relayer) declaredPairs(ctx context.Context, evt *ContainerCreated) ([]candidatePair, error) {
	if evt.Kind == ContainerThread {
		pairs, err := r.store.GetForumPairs(ctx, evt.GuildID, evt.ParentID)
		if err != nil {
			return nil, err
		}
		candidates := make([]candidatePair, len(pairs))
		for i, pair := range pairs {
			candidates[i] = candidatePair{
				pairID:          pair.ID,
				kind:            store.ParentForum,
				targetGuild:     pair.ToGuild,
				targetContainer: pair.ToForum,
			}
		}
		return candidates, nil
	}

	pairs, err := r.store.GetChannelPairs(ctx, evt.GuildID, evt.ContainerID)
	if err != nil {
		return nil, err
	}
	candidates := make([]candidatePair, len(pairs))
	for i, pair := range pairs {
		candidates[i] = candidatePair{
			pairID:          pair.ID,
			kind:            store.ParentChannel,
			targetGuild:     pair.ToGuild,
			targetContainer: pair.ToChannel,
		}
	}
	return candidates, nil
}

func (r *Relayer) propose(ctx context.Context, evt *ContainerCreated, candidate candidatePair) {
	log := zerolog.Ctx(ctx).With().
		Str("guild_id", evt.GuildID).
		Str("container_id", evt.ContainerID).
		Int64("pair_id", candidate.pairID).
		Logger()

	_, err := r.store.CreatePairingReply(ctx, &store.PairingReply{
		Responded:    false,
		Status:       store.StatusInactive,
		GuildID:      evt.GuildID,
		ChannelID:    evt.ContainerID,
		ParentKind:   candidate.kind,
		ParentPairID: candidate.pairID,
		MessageOwner: evt.OwnerID,
	})
	if apperr.IsType(err, apperr.BadRequest) {
		// Another event for the same container won the insert.
		log.Debug().Msg("Pairing reply already created concurrently")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to create pairing reply")
		return
	}

	prompt := fmt.Sprintf(
		"This %s can be linked with `%s` in guild `%s`. "+
			"React :%s: to accept or :%s: to decline. Only the owner may decide.",
		evt.Kind, candidate.targetContainer, candidate.targetGuild,
		r.config.AcceptEmoji, r.config.RejectEmoji,
	)
	messageID, err := r.gateway.SendText(ctx, evt.GuildID, evt.ContainerID, prompt)
	if err != nil {
		// The row stays behind with no message ID and cannot be reached
		// by any reaction. Needs manual cleanup via unlink.
		log.Error().Err(err).Msg("Failed to send pairing prompt, proposal is stuck")
		return
	}
	if err := r.store.UpdatePairingReplyMessageID(ctx, evt.GuildID, evt.ContainerID, messageID); err != nil {
		log.Error().Err(err).Msg("Failed to record prompt message id")
		return
	}

	// Affordances are secondary effects: the prompt still works through
	// manually typed reactions if attaching them fails.
	for _, emoji := range []string{r.config.AcceptEmoji, r.config.RejectEmoji} {
		if err := r.gateway.React(ctx, evt.GuildID, evt.ContainerID, messageID, emoji); err != nil {
			log.Warn().Err(err).Str("emoji", emoji).Msg("Failed to attach confirmation affordance")
		}
	}
	log.Info().Str("message_id", messageID).Msg("Pairing proposed")
}

// handleReactionAdded resolves a reaction against the tracked prompt
// message and dispatches the accept or reject transition. Reactions on
// untracked messages, from the bot itself, or with unknown emoji are
// ignored.
func (r *Relayer) handleReactionAdded(ctx context.Context, evt *ReactionAdded) {
	if evt.FromSelf {
		return
	}
	reply, ok := r.lookupPrompt(ctx, evt.GuildID, evt.ContainerID, evt.MessageID, evt.UserID)
	if !ok {
		return
	}
	switch evt.Emoji {
	case r.config.AcceptEmoji:
		r.acceptPairing(ctx, reply, evt.GuildID, evt.ContainerID, evt.MessageID)
	case r.config.RejectEmoji:
		r.rejectPairing(ctx, reply, evt.GuildID, evt.ContainerID)
	}
}

// handleReactionRemoved treats the owner withdrawing either affordance as
// a decline. It shares the reject path, so once a proposal is resolved a
// retraction matches zero rows and changes nothing.
func (r *Relayer) handleReactionRemoved(ctx context.Context, evt *ReactionRemoved) {
	if evt.FromSelf {
		return
	}
	if evt.Emoji != r.config.AcceptEmoji && evt.Emoji != r.config.RejectEmoji {
		return
	}
	reply, ok := r.lookupPrompt(ctx, evt.GuildID, evt.ContainerID, evt.MessageID, evt.UserID)
	if !ok {
		return
	}
	r.rejectPairing(ctx, reply, evt.GuildID, evt.ContainerID)
}

// lookupPrompt finds the pairing reply a reaction refers to and enforces
// that only the recorded owner may cause a transition.
func (r *Relayer) lookupPrompt(ctx context.Context, guildID, containerID, messageID, userID string) (*store.PairingReply, bool) {
	log := zerolog.Ctx(ctx).With().
		Str("guild_id", guildID).
		Str("container_id", containerID).
		Str("message_id", messageID).
		Logger()

	reply, err := r.store.GetPairingReplyByMessage(ctx, guildID, containerID, messageID)
	if apperr.IsType(err, apperr.NotFound) {
		// Not a tracked prompt.
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up pairing reply")
		return nil, false
	}
	if reply.MessageOwner != userID {
		log.Debug().Str("user_id", userID).Msg("Reaction from non-owner ignored")
		r.reply(ctx, guildID, containerID, "Only the message owner may respond to this pairing request.")
		return nil, false
	}
	return reply, true
}

// acceptPairing drives PROPOSED -> ACTIVE. For forum-origin proposals it
// also materializes the remote posts and reciprocal thread pairs; each
// candidate pair fails independently.
func (r *Relayer) acceptPairing(ctx context.Context, reply *store.PairingReply, guildID, containerID, messageID string) {
	log := zerolog.Ctx(ctx).With().
		Str("guild_id", guildID).
		Str("container_id", containerID).
		Int64("reply_id", reply.ID).
		Logger()

	if _, err := r.store.UpdatePairingReplyStatus(ctx, guildID, containerID, true, store.StatusActive); err != nil {
		if apperr.IsType(err, apperr.NotFound) {
			log.Info().Msg("Pairing already resolved, accept ignored")
		} else {
			log.Error().Err(err).Msg("Failed to activate pairing")
			r.reply(ctx, guildID, containerID, "Failed to activate the pairing, please try again.")
		}
		return
	}

	if reply.ParentKind == store.ParentForum {
		r.materializeThreadPairs(ctx, reply, guildID, containerID, messageID)
	}

	log.Info().Msg("Pairing activated")
	r.reply(ctx, guildID, containerID, "Pairing activated. New messages here will be relayed.")
}

// materializeThreadPairs recovers the originating forum from the prompt
// message, then creates a remote post and a reciprocal thread pair link
// for every declared forum pair. A failure on one pair is reported and
// the remaining pairs are still attempted.
func (r *Relayer) materializeThreadPairs(ctx context.Context, reply *store.PairingReply, guildID, containerID, messageID string) {
	log := zerolog.Ctx(ctx).With().
		Str("guild_id", guildID).
		Str("container_id", containerID).
		Int64("reply_id", reply.ID).
		Logger()

	forumID, err := r.store.ResolveParentForum(ctx, guildID, messageID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve originating forum")
		r.reply(ctx, guildID, containerID, "Pairing activated but the originating forum could not be resolved.")
		return
	}
	pairs, err := r.store.GetForumPairs(ctx, guildID, forumID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch forum pairs for materialization")
		return
	}

	// The remote post name is derived from the local thread's name;
	// metadata absence is normal, the container ID stands in then.
	title := containerID
	if info, err := r.gateway.ResolveContainer(ctx, guildID, containerID); err == nil && info.Name != "" {
		title = info.Name
	}
	body := fmt.Sprintf("Linked with `%s` in guild `%s`.", title, guildID)

	for _, pair := range pairs {
		created, err := r.gateway.CreateForumPost(ctx, pair.ToGuild, pair.ToForum, title, body)
		if err != nil {
			log.Error().Err(err).Int64("pair_id", pair.ID).Msg("Failed to create remote forum post")
			r.reply(ctx, guildID, containerID, fmt.Sprintf(
				"Could not create the linked post in guild `%s`: remote call failed.", pair.ToGuild))
			continue
		}
		err = r.store.CreateThreadPairs(ctx,
			&store.ThreadPair{
				FromGuild: guildID, FromThread: containerID,
				ToGuild: pair.ToGuild, ToThread: created.ID,
				ReplyID: reply.ID,
			},
			&store.ThreadPair{
				FromGuild: pair.ToGuild, FromThread: created.ID,
				ToGuild: guildID, ToThread: containerID,
				ReplyID: reply.ID,
			},
		)
		if err != nil {
			log.Error().Err(err).Int64("pair_id", pair.ID).Msg("Failed to persist thread pair")
			r.reply(ctx, guildID, containerID, fmt.Sprintf(
				"Created the linked post in guild `%s` but failed to record the link.", pair.ToGuild))
			continue
		}
		log.Info().
			Int64("pair_id", pair.ID).
			Str("remote_thread_id", created.ID).
			Msg("Materialized thread pair")
	}
}

// rejectPairing drives PROPOSED -> REJECTED and removes the prompt
// message. The status update is the primary effect; the prompt deletion
// is best-effort.
func (r *Relayer) rejectPairing(ctx context.Context, reply *store.PairingReply, guildID, containerID string) {
	log := zerolog.Ctx(ctx).With().
		Str("guild_id", guildID).
		Str("container_id", containerID).
		Int64("reply_id", reply.ID).
		Logger()

	if _, err := r.store.UpdatePairingReplyStatus(ctx, guildID, containerID, true, store.StatusRejected); err != nil {
		if apperr.IsType(err, apperr.NotFound) {
			log.Info().Msg("Pairing already resolved, reject ignored")
		} else {
			log.Error().Err(err).Msg("Failed to reject pairing")
			r.reply(ctx, guildID, containerID, "Failed to decline the pairing, please try again.")
		}
		return
	}

	if reply.MessageID != "" {
		if err := r.gateway.DeleteMessage(ctx, guildID, containerID, reply.MessageID); err != nil {
			log.Warn().Err(err).Msg("Failed to delete pairing prompt")
		}
	}
	log.Info().Msg("Pairing rejected")
}

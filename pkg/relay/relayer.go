// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aiku/guildlink/pkg/store"
)

// Relayer is the replication orchestrator: it consumes the inbound event
// union, resolves relay destinations, and drives the confirmation state
// machine. All side effects go back out through the Gateway; no content is
// transformed beyond literal author-name interpolation.
type Relayer struct {
	config  Config
	store   *store.Store
	gateway Gateway
	log     zerolog.Logger
}

// New creates a Relayer. The gateway may deliver events concurrently;
// Relayer holds no per-event state, so HandleEvent is safe to call from
// multiple goroutines. Races on the same pairing reply are resolved by
// the store's conditional update, not by in-process locking.
func New(cfg Config, st *store.Store, gw Gateway, log zerolog.Logger) *Relayer {
	cfg.applyDefaults()
	return &Relayer{
		config:  cfg,
		store:   st,
		gateway: gw,
		log:     log.With().Str("component", "relayer").Logger(),
	}
}

// HandleEvent dispatches one inbound event. Errors never escape: every
// failure is either reported into the originating container or logged, so
// one bad event cannot terminate processing for others.
func (r *Relayer) HandleEvent(ctx context.Context, evt Event) {
	log := r.log.With().Str("event_id", uuid.NewString()).Logger()
	ctx = log.WithContext(ctx)

	switch evt := evt.(type) {
	case *MessageCreated:
		r.handleMessageCreated(ctx, evt)
	case *ContainerCreated:
		r.handleContainerCreated(ctx, evt)
	case *ReactionAdded:
		r.handleReactionAdded(ctx, evt)
	case *ReactionRemoved:
		r.handleReactionRemoved(ctx, evt)
	default:
		log.Warn().Type("event_type", evt).Msg("Unhandled event type")
	}
}

func (r *Relayer) handleMessageCreated(ctx context.Context, evt *MessageCreated) {
	if evt.FromSelf {
		return
	}
	if r.maybeHandleCommand(ctx, evt) {
		return
	}

	log := zerolog.Ctx(ctx).With().
		Str("guild_id", evt.GuildID).
		Str("container_id", evt.ContainerID).
		Str("message_id", evt.MessageID).
		Logger()

	destinations, err := r.resolveDestinations(ctx, evt.GuildID, evt.ContainerID, evt.Kind)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve relay destinations")
		return
	}
	if len(destinations) == 0 {
		return
	}

	copyText := fmt.Sprintf("`%s`: %s", evt.AuthorName, evt.Content)
	for _, dest := range destinations {
		r.relayToDestination(ctx, evt, dest, copyText)
	}
}

// relayToDestination delivers one copy. Outcomes are independent per
// destination: a failure is marked on the source message and does not
// block delivery to the remaining destinations.
func (r *Relayer) relayToDestination(ctx context.Context, evt *MessageCreated, dest Destination, copyText string) {
	log := zerolog.Ctx(ctx).With().
		Str("dest_guild_id", dest.GuildID).
		Str("dest_container_id", dest.ContainerID).
		Logger()

	if info, err := r.gateway.ResolveContainer(ctx, dest.GuildID, dest.ContainerID); err == nil {
		log = log.With().Str("dest_name", info.Name).Logger()
	}

	marker := r.config.SuccessEmoji
	if _, err := r.gateway.SendText(ctx, dest.GuildID, dest.ContainerID, copyText); err != nil {
		log.Error().Err(err).Msg("Failed to relay message")
		marker = r.config.FailureEmoji
	} else {
		log.Debug().Msg("Relayed message")
	}

	// The outcome marker is a secondary effect: log and move on if it
	// cannot be attached.
	if err := r.gateway.React(ctx, evt.GuildID, evt.ContainerID, evt.MessageID, marker); err != nil {
		log.Warn().Err(err).Msg("Failed to mark relay outcome")
	}
}

// reply sends a short operator-facing text into a container. Best-effort.
func (r *Relayer) reply(ctx context.Context, guildID, containerID, text string) {
	if _, err := r.gateway.SendText(ctx, guildID, containerID, text); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("guild_id", guildID).
			Str("container_id", containerID).
			Msg("Failed to send notice")
	}
}

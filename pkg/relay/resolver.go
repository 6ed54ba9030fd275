// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
)

// Destination is one remote container that should receive a relayed copy.
type Destination struct {
	GuildID     string
	ContainerID string
}

// resolveDestinations answers which remote containers are active relay
// targets for content posted in (guild, container). Channel pairs only
// count once their confirmation is active; thread pairs are active by
// existence, because they are only materialized in the confirmed branch.
// Order follows the store's insertion order.
func (r *Relayer) resolveDestinations(ctx context.Context, guildID, containerID string, kind ContainerKind) ([]Destination, error) {
	switch kind {
	case ContainerThread:
		pairs, err := r.store.GetThreadPairs(ctx, guildID, containerID)
		if err != nil {
			return nil, err
		}
		destinations := make([]Destination, len(pairs))
		for i, pair := range pairs {
			destinations[i] = Destination{GuildID: pair.ToGuild, ContainerID: pair.ToThread}
		}
		return destinations, nil
	default:
		pairs, err := r.store.GetActiveChannelPairs(ctx, guildID, containerID)
		if err != nil {
			return nil, err
		}
		destinations := make([]Destination, len(pairs))
		for i, pair := range pairs {
			destinations[i] = Destination{GuildID: pair.ToGuild, ContainerID: pair.ToChannel}
		}
		return destinations, nil
	}
}

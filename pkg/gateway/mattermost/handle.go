// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/guildlink/pkg/relay"
)

// handleEvent dispatches a Mattermost WebSocket event to the appropriate
// translator.
func (c *Client) handleEvent(evt *model.WebSocketEvent) {
	switch evt.EventType() {
	case model.WebsocketEventPosted:
		c.handlePosted(evt)
	case model.WebsocketEventChannelCreated:
		c.handleChannelCreated(evt)
	case model.WebsocketEventReactionAdded:
		c.handleReaction(evt, true)
	case model.WebsocketEventReactionRemoved:
		c.handleReaction(evt, false)
	default:
		c.log.Trace().Str("event_type", string(evt.EventType())).Msg("Unhandled event type")
	}
}

// parsePostedEvent extracts and validates a post from a WebSocket event.
// Returns (nil, "", nil) to skip silently: own posts and system messages
// never reach the sink.
func (c *Client) parsePostedEvent(evt *model.WebSocketEvent) (*model.Post, string, error) {
	postJSON, ok := evt.GetData()["post"].(string)
	if !ok {
		return nil, "", fmt.Errorf("posted event missing post data")
	}

	var post model.Post
	if err := json.Unmarshal([]byte(postJSON), &post); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal post: %w", err)
	}

	// Echo prevention: skip own posts, they are relayed copies or notices.
	if post.UserId == c.userID {
		return nil, "", nil
	}
	// Skip non-default post types (system messages).
	if post.Type != "" && post.Type != model.PostTypeDefault {
		return nil, "", nil
	}

	senderName, _ := evt.GetData()["sender_name"].(string)
	senderName = strings.TrimPrefix(senderName, "@")
	return &post, senderName, nil
}

func (c *Client) handlePosted(evt *model.WebSocketEvent) {
	post, senderName, err := c.parsePostedEvent(evt)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to parse posted event")
		return
	}
	if post == nil {
		return
	}

	ctx := c.baseCtx
	teamID := c.eventTeamID(ctx, evt, post.ChannelId)
	c.rememberChannelTeam(post.ChannelId, teamID)

	c.log.Debug().
		Str("post_id", post.Id).
		Str("channel_id", post.ChannelId).
		Str("user_id", post.UserId).
		Msg("Received new post")

	switch {
	case post.RootId != "":
		// Reply inside a thread.
		c.rememberThread(post.RootId, post.ChannelId)
		c.sink.HandleEvent(ctx, &relay.MessageCreated{
			GuildID:     teamID,
			ContainerID: post.RootId,
			Kind:        relay.ContainerThread,
			MessageID:   post.Id,
			AuthorID:    post.UserId,
			AuthorName:  senderName,
			Content:     post.Message,
		})
	case c.isForum(post.ChannelId):
		// Root post in a forum channel opens a new thread container.
		c.rememberThread(post.Id, post.ChannelId)
		c.sink.HandleEvent(ctx, &relay.ContainerCreated{
			GuildID:     teamID,
			ContainerID: post.Id,
			Kind:        relay.ContainerThread,
			ParentID:    post.ChannelId,
			Name:        threadTitle(post.Message),
			OwnerID:     post.UserId,
		})
	default:
		c.sink.HandleEvent(ctx, &relay.MessageCreated{
			GuildID:     teamID,
			ContainerID: post.ChannelId,
			Kind:        relay.ContainerChannel,
			MessageID:   post.Id,
			AuthorID:    post.UserId,
			AuthorName:  senderName,
			Content:     post.Message,
		})
	}
}

func (c *Client) handleChannelCreated(evt *model.WebSocketEvent) {
	channelID, ok := evt.GetData()["channel_id"].(string)
	if !ok || channelID == "" {
		return
	}
	teamID, _ := evt.GetData()["team_id"].(string)

	ctx := c.baseCtx
	var name, ownerID string
	if channel, _, err := c.client.GetChannel(ctx, channelID, ""); err == nil {
		name = channel.DisplayName
		if name == "" {
			name = channel.Name
		}
		ownerID = channel.CreatorId
		if teamID == "" {
			teamID = channel.TeamId
		}
	} else {
		c.log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to fetch created channel")
	}
	c.rememberChannelTeam(channelID, teamID)

	c.sink.HandleEvent(ctx, &relay.ContainerCreated{
		GuildID:     teamID,
		ContainerID: channelID,
		Kind:        relay.ContainerChannel,
		Name:        name,
		OwnerID:     ownerID,
	})
}

// parseReactionEvent extracts and validates a reaction. Returns (nil, nil)
// to skip: the relay's own affordance reactions never reach the sink.
func (c *Client) parseReactionEvent(evt *model.WebSocketEvent) (*model.Reaction, error) {
	reactionJSON, ok := evt.GetData()["reaction"].(string)
	if !ok {
		return nil, nil
	}

	var reaction model.Reaction
	if err := json.Unmarshal([]byte(reactionJSON), &reaction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reaction: %w", err)
	}
	if reaction.UserId == c.userID {
		return nil, nil
	}
	return &reaction, nil
}

func (c *Client) handleReaction(evt *model.WebSocketEvent, added bool) {
	reaction, err := c.parseReactionEvent(evt)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to parse reaction event")
		return
	}
	if reaction == nil {
		return
	}

	ctx := c.baseCtx
	containerID, teamID, ok := c.containerForPost(ctx, reaction.PostId)
	if !ok {
		return
	}

	if added {
		c.sink.HandleEvent(ctx, &relay.ReactionAdded{
			GuildID:     teamID,
			ContainerID: containerID,
			MessageID:   reaction.PostId,
			UserID:      reaction.UserId,
			Emoji:       reaction.EmojiName,
		})
	} else {
		c.sink.HandleEvent(ctx, &relay.ReactionRemoved{
			GuildID:     teamID,
			ContainerID: containerID,
			MessageID:   reaction.PostId,
			UserID:      reaction.UserId,
			Emoji:       reaction.EmojiName,
		})
	}
}

// containerForPost answers which relay container a post belongs to: its
// thread root when it has one, the post itself when it is a forum thread
// root, otherwise its channel.
func (c *Client) containerForPost(ctx context.Context, postID string) (containerID, teamID string, ok bool) {
	post, _, err := c.client.GetPost(ctx, postID, "")
	if err != nil {
		c.log.Warn().Err(err).Str("post_id", postID).Msg("Failed to fetch reacted post")
		return "", "", false
	}

	switch {
	case post.RootId != "":
		c.rememberThread(post.RootId, post.ChannelId)
		containerID = post.RootId
	case c.isForum(post.ChannelId):
		c.rememberThread(post.Id, post.ChannelId)
		containerID = post.Id
	default:
		containerID = post.ChannelId
	}
	return containerID, c.teamForChannel(ctx, post.ChannelId), true
}

// eventTeamID resolves the team a posted event belongs to, preferring the
// event payload over an API round trip.
func (c *Client) eventTeamID(ctx context.Context, evt *model.WebSocketEvent, channelID string) string {
	if teamID, ok := evt.GetData()["team_id"].(string); ok && teamID != "" {
		return teamID
	}
	return c.teamForChannel(ctx, channelID)
}

// threadTitle derives a container name from a thread's opening post: its
// first line, stripped of bold markers.
func threadTitle(message string) string {
	line := message
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*"))
}

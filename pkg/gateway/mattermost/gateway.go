// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"fmt"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/guildlink/pkg/apperr"
	"github.com/aiku/guildlink/pkg/relay"
)

// SendText posts a text message into a container. For thread containers
// the post carries the thread root; for channels it is a top-level post.
func (c *Client) SendText(ctx context.Context, guildID, containerID, text string) (string, error) {
	channelID, rootID := c.resolveTarget(ctx, containerID)
	post := &model.Post{
		ChannelId: channelID,
		RootId:    rootID,
		Message:   text,
	}
	created, _, err := c.client.CreatePost(ctx, post)
	if err != nil {
		return "", apperr.Wrap(apperr.DistantServer, "failed to create post", err)
	}
	return created.Id, nil
}

// React attaches an emoji reaction to a message as the relay user.
func (c *Client) React(ctx context.Context, _, _, messageID, emoji string) error {
	_, _, err := c.client.SaveReaction(ctx, &model.Reaction{
		UserId:    c.userID,
		PostId:    messageID,
		EmojiName: emoji,
	})
	if err != nil {
		return apperr.Wrap(apperr.DistantServer, "failed to save reaction", err)
	}
	return nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, _, _, messageID string) error {
	if _, err := c.client.DeletePost(ctx, messageID); err != nil {
		return apperr.Wrap(apperr.DistantServer, "failed to delete post", err)
	}
	return nil
}

// CreateForumPost opens a new thread in a forum channel: a root post whose
// first line is the bolded title. The returned container is the root post.
func (c *Client) CreateForumPost(ctx context.Context, guildID, forumID, title, body string) (*relay.ContainerInfo, error) {
	post := &model.Post{
		ChannelId: forumID,
		Message:   fmt.Sprintf("**%s**\n\n%s", title, body),
	}
	created, _, err := c.client.CreatePost(ctx, post)
	if err != nil {
		return nil, apperr.Wrap(apperr.DistantServer, "failed to create forum post", err)
	}
	c.rememberThread(created.Id, forumID)
	return &relay.ContainerInfo{
		ID:       created.Id,
		GuildID:  guildID,
		ParentID: forumID,
		Name:     title,
		Kind:     relay.ContainerThread,
	}, nil
}

// ResolveContainer fetches container metadata. Thread containers resolve
// through their root post, everything else through the channel API.
func (c *Client) ResolveContainer(ctx context.Context, guildID, containerID string) (*relay.ContainerInfo, error) {
	if channelID, ok := c.cachedThreadChannel(containerID); ok {
		return c.resolveThread(ctx, guildID, containerID, channelID)
	}

	channel, _, err := c.client.GetChannel(ctx, containerID, "")
	if err == nil {
		c.rememberChannelTeam(channel.Id, channel.TeamId)
		name := channel.DisplayName
		if name == "" {
			name = channel.Name
		}
		return &relay.ContainerInfo{
			ID:      channel.Id,
			GuildID: channel.TeamId,
			Name:    name,
			Kind:    relay.ContainerChannel,
		}, nil
	}

	// Not a channel; try it as a thread root post.
	post, _, err := c.client.GetPost(ctx, containerID, "")
	if err != nil {
		return nil, apperr.Wrap(apperr.DistantServer, "failed to resolve container", err)
	}
	c.rememberThread(post.Id, post.ChannelId)
	return c.resolveThread(ctx, guildID, containerID, post.ChannelId)
}

func (c *Client) resolveThread(ctx context.Context, guildID, rootID, channelID string) (*relay.ContainerInfo, error) {
	post, _, err := c.client.GetPost(ctx, rootID, "")
	if err != nil {
		return nil, apperr.Wrap(apperr.DistantServer, "failed to resolve thread root", err)
	}
	return &relay.ContainerInfo{
		ID:       rootID,
		GuildID:  guildID,
		ParentID: channelID,
		Name:     threadTitle(post.Message),
		Kind:     relay.ContainerThread,
	}, nil
}

// resolveTarget answers where a post into a container must land: the
// containing channel plus the thread root for threads, or the container
// itself as the channel.
func (c *Client) resolveTarget(ctx context.Context, containerID string) (channelID, rootID string) {
	if ch, ok := c.cachedThreadChannel(containerID); ok {
		return ch, containerID
	}
	if _, ok := c.cachedChannelTeam(containerID); ok {
		return containerID, ""
	}
	// Unknown ID: a post resolving means it is a thread root.
	if post, _, err := c.client.GetPost(ctx, containerID, ""); err == nil {
		c.rememberThread(containerID, post.ChannelId)
		return post.ChannelId, containerID
	}
	return containerID, ""
}

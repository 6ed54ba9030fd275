// Copyright 2024-2026 Aiku AI

package relay

import "context"

// ContainerInfo is best-effort container metadata from the transport's
// caches. Absence of a container is a normal, handled case.
type ContainerInfo struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	Kind     ContainerKind
}

// Gateway carries the relay's outbound effects to the chat transport. No
// call is expected to block longer than a single network round trip;
// failures surface as errors and are never retried here.
type Gateway interface {
	// SendText posts a message into a container and returns the new
	// message's ID.
	SendText(ctx context.Context, guildID, containerID, text string) (messageID string, err error)
	// React attaches an emoji to a message.
	React(ctx context.Context, guildID, containerID, messageID, emoji string) error
	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, guildID, containerID, messageID string) error
	// CreateForumPost creates a new post (thread) under a forum and
	// returns the resulting container.
	CreateForumPost(ctx context.Context, guildID, forumID, title, body string) (*ContainerInfo, error)
	// ResolveContainer looks up container metadata. Best-effort.
	ResolveContainer(ctx context.Context, guildID, containerID string) (*ContainerInfo, error)
}

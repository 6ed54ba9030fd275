// Copyright 2024-2026 Aiku AI

package mattermost

// Config holds the Mattermost gateway configuration.
type Config struct {
	ServerURL string `yaml:"server_url"`
	// Token authenticates the relay's own Mattermost user. All outbound
	// posts and reactions are made as this user.
	Token string `yaml:"token"`
	// ForumChannels lists channel IDs treated as forums: every root post
	// in one of them opens a new thread container instead of relaying as
	// a plain channel message.
	ForumChannels []string `yaml:"forum_channels"`
}

func (c *Config) forumSet() map[string]bool {
	set := make(map[string]bool, len(c.ForumChannels))
	for _, id := range c.ForumChannels {
		set[id] = true
	}
	return set
}

// Copyright 2024-2026 Aiku AI

package relay

// ContainerKind distinguishes the two container shapes the relay cares
// about: plain channels and threads/posts under a forum.
type ContainerKind string

const (
	ContainerChannel ContainerKind = "channel"
	ContainerThread  ContainerKind = "thread"
)

// Event is the inbound event union delivered by a gateway adapter. One
// dispatcher consumes it per event kind; there is no behavior on the
// variants themselves.
type Event interface {
	relayEvent()
}

// MessageCreated is new content posted in a channel or thread.
type MessageCreated struct {
	GuildID     string
	ContainerID string
	Kind        ContainerKind
	MessageID   string
	AuthorID    string
	AuthorName  string
	Content     string
	// FromSelf marks content authored by the gateway's own user. The
	// adapter normally filters these, the dispatcher drops any stragglers.
	FromSelf bool
}

func (*MessageCreated) relayEvent() {}

// ContainerCreated is a new container appearing: a thread/post under a
// forum (ParentID set) or a fresh plain channel (ParentID empty).
type ContainerCreated struct {
	GuildID     string
	ContainerID string
	Kind        ContainerKind
	ParentID    string
	Name        string
	OwnerID     string
}

func (*ContainerCreated) relayEvent() {}

// ReactionAdded is an emoji reaction placed on a message.
type ReactionAdded struct {
	GuildID     string
	ContainerID string
	MessageID   string
	UserID      string
	Emoji       string
	FromSelf    bool
}

func (*ReactionAdded) relayEvent() {}

// ReactionRemoved is an emoji reaction withdrawn from a message.
type ReactionRemoved struct {
	GuildID     string
	ContainerID string
	MessageID   string
	UserID      string
	Emoji       string
	FromSelf    bool
}

func (*ReactionRemoved) relayEvent() {}

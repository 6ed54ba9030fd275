// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	"github.com/aiku/guildlink/pkg/store"
)

var testDBCounter atomic.Int64

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	uri := fmt.Sprintf("file:relay_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := dbutil.NewWithDialect(uri, "sqlite3")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	st := store.New(db, zerolog.Nop())
	if err := st.Upgrade(context.Background()); err != nil {
		t.Fatalf("failed to upgrade test database: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

type sentMessage struct {
	Guild     string
	Container string
	Text      string
	MessageID string
}

type reactionCall struct {
	Guild     string
	Container string
	MessageID string
	Emoji     string
}

type deleteCall struct {
	Guild     string
	Container string
	MessageID string
}

type createdPost struct {
	Guild string
	Forum string
	Title string
	Body  string
	ID    string
}

// mockGateway records outbound calls for assertions and serves canned
// container metadata. Failures are switchable per call type.
type mockGateway struct {
	mu        sync.Mutex
	sent      []sentMessage
	reactions []reactionCall
	deletes   []deleteCall
	created   []createdPost

	containers map[string]*ContainerInfo

	failSend        bool
	failReact       bool
	failCreateForum bool

	nextMessageID int
	nextPostID    int
}

func newMockGateway() *mockGateway {
	return &mockGateway{containers: make(map[string]*ContainerInfo)}
}

func containerKey(guildID, containerID string) string {
	return guildID + "/" + containerID
}

func (g *mockGateway) addContainer(info *ContainerInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.containers[containerKey(info.GuildID, info.ID)] = info
}

func (g *mockGateway) SendText(_ context.Context, guildID, containerID, text string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSend {
		return "", errors.New("send failed")
	}
	g.nextMessageID++
	id := fmt.Sprintf("msg-%d", g.nextMessageID)
	g.sent = append(g.sent, sentMessage{Guild: guildID, Container: containerID, Text: text, MessageID: id})
	return id, nil
}

func (g *mockGateway) React(_ context.Context, guildID, containerID, messageID, emoji string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failReact {
		return errors.New("react failed")
	}
	g.reactions = append(g.reactions, reactionCall{Guild: guildID, Container: containerID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (g *mockGateway) DeleteMessage(_ context.Context, guildID, containerID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes = append(g.deletes, deleteCall{Guild: guildID, Container: containerID, MessageID: messageID})
	return nil
}

func (g *mockGateway) CreateForumPost(_ context.Context, guildID, forumID, title, body string) (*ContainerInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreateForum {
		return nil, errors.New("create post failed")
	}
	g.nextPostID++
	id := fmt.Sprintf("post-%d", g.nextPostID)
	g.created = append(g.created, createdPost{Guild: guildID, Forum: forumID, Title: title, Body: body, ID: id})
	info := &ContainerInfo{ID: id, GuildID: guildID, ParentID: forumID, Name: title, Kind: ContainerThread}
	g.containers[containerKey(guildID, id)] = info
	return info, nil
}

func (g *mockGateway) ResolveContainer(_ context.Context, guildID, containerID string) (*ContainerInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	info, ok := g.containers[containerKey(guildID, containerID)]
	if !ok {
		return nil, errors.New("unknown container")
	}
	return info, nil
}

func (g *mockGateway) Sent() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]sentMessage, len(g.sent))
	copy(cp, g.sent)
	return cp
}

func (g *mockGateway) Reactions() []reactionCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]reactionCall, len(g.reactions))
	copy(cp, g.reactions)
	return cp
}

func (g *mockGateway) Deletes() []deleteCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]deleteCall, len(g.deletes))
	copy(cp, g.deletes)
	return cp
}

func (g *mockGateway) Created() []createdPost {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]createdPost, len(g.created))
	copy(cp, g.created)
	return cp
}

// newTestRelayer wires a Relayer to an in-memory store and a mock gateway.
func newTestRelayer(t *testing.T) (*Relayer, *store.Store, *mockGateway) {
	t.Helper()
	st := newTestStore(t)
	gw := newMockGateway()
	r := New(Config{Admins: []string{"admin"}}, st, gw, zerolog.Nop())
	return r, st, gw
}

// proposeForumThread runs the standard scenario setup: a declared forum
// pair g1/f10 -> g2/f20 and a new thread "foo" in f10 owned by owner.
// Returns the prompt's message ID.
func proposeForumThread(t *testing.T, r *Relayer, st *store.Store, gw *mockGateway, owner string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := st.CreateForumPair(ctx, &store.ForumPair{
		FromGuild: "g1", FromForum: "f10", ToGuild: "g2", ToForum: "f20",
	}); err != nil {
		t.Fatalf("failed to declare forum pair: %v", err)
	}
	gw.addContainer(&ContainerInfo{ID: "foo", GuildID: "g1", ParentID: "f10", Name: "foo", Kind: ContainerThread})

	r.HandleEvent(ctx, &ContainerCreated{
		GuildID: "g1", ContainerID: "foo", Kind: ContainerThread,
		ParentID: "f10", Name: "foo", OwnerID: owner,
	})

	sent := gw.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 prompt message, got %d", len(sent))
	}
	return sent[0].MessageID
}

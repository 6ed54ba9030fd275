// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/guildlink/pkg/relay"
)

// mockSink captures translated relay events for test assertions.
type mockSink struct {
	mu     sync.Mutex
	events []relay.Event
}

func (m *mockSink) HandleEvent(_ context.Context, evt relay.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockSink) Events() []relay.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]relay.Event, len(m.events))
	copy(cp, m.events)
	return cp
}

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Body   string
}

// fakeMM wraps an httptest.Server simulating the Mattermost API. It
// records calls and serves canned channels and posts.
type fakeMM struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// Channels maps channel ID to model.Channel.
	Channels map[string]*model.Channel
	// Posts maps post ID to model.Post.
	Posts map[string]*model.Post
	// FailEndpoints causes matching path prefixes to return 500.
	FailEndpoints map[string]bool
}

func newFakeMM() *fakeMM {
	f := &fakeMM{
		Channels:      make(map[string]*model.Channel),
		Posts:         make(map[string]*model.Post),
		FailEndpoints: make(map[string]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeMM) Close() {
	f.Server.Close()
}

func (f *fakeMM) record(method, path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: method, Path: path, Body: body})
}

func (f *fakeMM) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func (f *fakeMM) CalledPath(path string) bool {
	for _, c := range f.Calls() {
		if strings.Contains(c.Path, path) {
			return true
		}
	}
	return false
}

func (f *fakeMM) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.record(r.Method, r.URL.Path, string(body))

	for prefix := range f.FailEndpoints {
		if strings.Contains(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "fake error"})
			return
		}
	}

	path := r.URL.Path

	switch {
	// GET /api/v4/users/me
	case r.Method == "GET" && path == "/api/v4/users/me":
		_ = json.NewEncoder(w).Encode(&model.User{Id: "bot", Username: "guildlink"})

	// POST /api/v4/posts
	case r.Method == "POST" && path == "/api/v4/posts":
		var post model.Post
		_ = json.Unmarshal(body, &post)
		post.Id = "created-post-id"
		_ = json.NewEncoder(w).Encode(&post)

	// DELETE /api/v4/posts/{post_id}
	case r.Method == "DELETE" && strings.HasPrefix(path, "/api/v4/posts/"):
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	// GET /api/v4/posts/{post_id}
	case r.Method == "GET" && strings.HasPrefix(path, "/api/v4/posts/"):
		postID := path[len("/api/v4/posts/"):]
		if p, ok := f.Posts[postID]; ok {
			_ = json.NewEncoder(w).Encode(p)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found"})

	// POST /api/v4/reactions
	case r.Method == "POST" && path == "/api/v4/reactions":
		var reaction model.Reaction
		_ = json.Unmarshal(body, &reaction)
		_ = json.NewEncoder(w).Encode(&reaction)

	// GET /api/v4/channels/{channel_id}
	case r.Method == "GET" && strings.HasPrefix(path, "/api/v4/channels/") && !strings.Contains(path[len("/api/v4/channels/"):], "/"):
		chID := path[len("/api/v4/channels/"):]
		if ch, ok := f.Channels[chID]; ok {
			_ = json.NewEncoder(w).Encode(ch)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found"})

	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "unhandled: " + path})
	}
}

// newTestClient builds a Client wired to a fakeMM and a mockSink,
// authenticated as user "bot", with fc1 configured as a forum channel.
func newTestClient(t *testing.T) (*Client, *fakeMM, *mockSink) {
	t.Helper()
	fake := newFakeMM()
	t.Cleanup(fake.Close)

	sink := &mockSink{}
	c := New(Config{
		ServerURL:     fake.Server.URL,
		Token:         "test-token",
		ForumChannels: []string{"fc1"},
	}, zerolog.Nop())
	c.client = model.NewAPIv4Client(fake.Server.URL)
	c.client.SetToken("test-token")
	c.userID = "bot"
	c.sink = sink
	c.baseCtx = context.Background()
	return c, fake, sink
}

func postedEvent(t *testing.T, post *model.Post, teamID, senderName string) *model.WebSocketEvent {
	t.Helper()
	raw, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("failed to marshal post: %v", err)
	}
	evt := model.NewWebSocketEvent(model.WebsocketEventPosted, "", post.ChannelId, "", nil, "")
	return evt.SetData(map[string]any{
		"post":        string(raw),
		"team_id":     teamID,
		"sender_name": "@" + senderName,
	})
}

func reactionEvent(t *testing.T, eventType model.WebsocketEventType, reaction *model.Reaction) *model.WebSocketEvent {
	t.Helper()
	raw, err := json.Marshal(reaction)
	if err != nil {
		t.Fatalf("failed to marshal reaction: %v", err)
	}
	evt := model.NewWebSocketEvent(eventType, "", "", "", nil, "")
	return evt.SetData(map[string]any{"reaction": string(raw)})
}

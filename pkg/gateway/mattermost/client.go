// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/guildlink/pkg/relay"
)

// EventSink consumes the translated inbound events. The relay core
// implements it; tests inject a recorder.
type EventSink interface {
	HandleEvent(ctx context.Context, evt relay.Event)
}

// Client is the Mattermost gateway. It holds one authenticated connection,
// translates WebSocket traffic into the relay event union and implements
// the outbound relay.Gateway operations. Guilds map to Mattermost teams,
// forums to the configured forum channels and threads to root posts.
type Client struct {
	config Config
	sink   EventSink

	client   *model.Client4
	wsClient *model.WebSocketClient
	userID   string
	forums   map[string]bool

	// threadChannel maps a thread root post ID to its channel;
	// channelTeam maps a channel ID to its team. Both are fed by events
	// and lazily backfilled from the API.
	cacheMu       sync.Mutex
	threadChannel map[string]string
	channelTeam   map[string]string

	baseCtx  context.Context
	stopOnce sync.Once
	stopChan chan struct{}
	log      zerolog.Logger
}

var _ relay.Gateway = (*Client)(nil)

// New creates a Client. Connect must be called before use.
func New(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		config:        cfg,
		forums:        cfg.forumSet(),
		threadChannel: make(map[string]string),
		channelTeam:   make(map[string]string),
		stopChan:      make(chan struct{}),
		log:           log.With().Str("component", "mm_gateway").Logger(),
	}
}

// Connect verifies the session, opens the WebSocket and starts delivering
// events to the sink. The context is kept as the base for all inbound
// event handling.
func (c *Client) Connect(ctx context.Context, sink EventSink) error {
	c.sink = sink
	c.baseCtx = c.log.WithContext(ctx)

	c.client = model.NewAPIv4Client(c.config.ServerURL)
	c.client.SetToken(c.config.Token)

	c.log.Info().Str("server_url", c.config.ServerURL).Msg("Connecting to Mattermost")

	me, _, err := c.client.GetMe(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to verify Mattermost session: %w", err)
	}
	c.userID = me.Id
	c.log.Info().Str("user_id", me.Id).Str("username", me.Username).Msg("Authenticated")

	if err := c.connectWebSocket(); err != nil {
		return err
	}
	return nil
}

func (c *Client) connectWebSocket() error {
	wsURL := httpToWS(c.config.ServerURL)
	var err error
	c.wsClient, err = model.NewWebSocketClient4(wsURL, c.client.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to create websocket client: %w", err)
	}
	c.wsClient.Listen()

	go c.listenWebSocket()

	c.log.Info().Str("ws_url", wsURL).Msg("WebSocket connected")
	return nil
}

// httpToWS converts an HTTP(S) URL to a WS(S) URL.
func httpToWS(url string) string {
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	if strings.HasPrefix(url, "http://") {
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func (c *Client) listenWebSocket() {
	for {
		select {
		case <-c.stopChan:
			return
		case event, ok := <-c.wsClient.EventChannel:
			if !ok {
				c.log.Warn().Msg("WebSocket event channel closed, reconnecting")
				c.handleWebSocketDisconnect()
				return
			}
			if event == nil {
				continue
			}
			c.handleEvent(event)
		}
	}
}

func (c *Client) handleWebSocketDisconnect() {
	select {
	case <-c.stopChan:
		return
	default:
	}
	if err := c.connectWebSocket(); err != nil {
		c.log.Error().Err(err).Msg("Failed to reconnect WebSocket")
	}
}

// Disconnect closes the WebSocket connection and stops the event loop.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
}

func (c *Client) isForum(channelID string) bool {
	return c.forums[channelID]
}

func (c *Client) rememberThread(rootID, channelID string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.threadChannel[rootID] = channelID
}

func (c *Client) rememberChannelTeam(channelID, teamID string) {
	if teamID == "" {
		return
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.channelTeam[channelID] = teamID
}

func (c *Client) cachedThreadChannel(rootID string) (string, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	channelID, ok := c.threadChannel[rootID]
	return channelID, ok
}

func (c *Client) cachedChannelTeam(channelID string) (string, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	teamID, ok := c.channelTeam[channelID]
	return teamID, ok
}

// teamForChannel answers which team (guild) a channel belongs to, going to
// the API on a cache miss.
func (c *Client) teamForChannel(ctx context.Context, channelID string) string {
	if teamID, ok := c.cachedChannelTeam(channelID); ok {
		return teamID
	}
	channel, _, err := c.client.GetChannel(ctx, channelID, "")
	if err != nil {
		c.log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to resolve channel team")
		return ""
	}
	c.rememberChannelTeam(channelID, channel.TeamId)
	return channel.TeamId
}

// Package gateway is the real-time signaling endpoint. Each process
// terminates websocket connections for the users it happens to hold,
// registers them in the local presence directory, and delivers bus events
// addressed to them. Inbound client messages are convenience signals; the
// authoritative state transition always goes through the coordinator.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"temandifa-backend/internal/auth"
	"temandifa-backend/internal/calls"
	"temandifa-backend/internal/events"
	"temandifa-backend/internal/presence"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Gateway struct {
	auth     *auth.Manager
	registry *presence.Registry
	coord    *calls.Coordinator
	bus      events.Bus
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(authMgr *auth.Manager, registry *presence.Registry, coord *calls.Coordinator, bus events.Bus, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		auth:     authMgr,
		registry: registry,
		coord:    coord,
		bus:      bus,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Mobile clients connect from app webviews and native code;
			// auth is the bearer token, not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start subscribes the gateway to the event bus. Must be called once
// before serving connections.
func (g *Gateway) Start(ctx context.Context) error {
	return g.bus.Subscribe(ctx, g.deliver)
}

// deliver routes one bus event to the target user's connection, if this
// process holds it. Other processes receive the same event and do the
// same check against their own registries.
func (g *Gateway) deliver(_ context.Context, e events.Event) {
	conn, ok := g.registry.Lookup(e.Target)
	if !ok {
		return
	}
	frame, err := json.Marshal(outboundFrame{Event: e.Name, Data: e.Data})
	if err != nil {
		g.log.Error("event frame marshal failed", "event", e.Name, "err", err)
		return
	}
	conn.Send(frame)
	g.log.Debug("signaling event delivered", "event", e.Name, "user", e.Target)
}

// Handle upgrades an authenticated HTTP request to a signaling
// connection. The handshake must carry a valid access token; there is no
// partially-authenticated connection state.
func (g *Gateway) Handle(c *gin.Context) {
	tok := auth.TokenFromRequest(c.Request)
	if tok == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	claims, err := g.auth.Verify(tok, auth.TokenTypeAccess, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		g.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	cl := newClient(claims.UserID, conn, g.log)
	g.registry.Register(cl.userID, cl)
	g.log.Info("websocket connected", "user", cl.userID)

	go cl.writePump()
	go func() {
		cl.readPump(g.handleInbound)
		// Conditional unregister: a reconnect may already have replaced
		// this handle.
		g.registry.Unregister(cl.userID, cl)
		cl.shutdown()
		g.log.Info("websocket disconnected", "user", cl.userID)
	}()
}

// handleInbound processes one client signaling message. Every teardown
// message runs the coordinator's End so the call record never outlives
// both clients hanging up; the bus event it emits performs delivery. Only
// when the record is already gone does the gateway fall back to relaying
// directly to the named peer, so a late hangup still clears the peer's UI.
func (g *Gateway) handleInbound(cl *client, msg inboundMessage) {
	var eventName string
	switch msg.Type {
	case "cancel-call":
		eventName = events.CallCancelled
	case "decline-call":
		eventName = events.CallDeclined
	case "end-call":
		eventName = events.CallEnded
	default:
		g.log.Warn("dropping unknown websocket message", "type", msg.Type, "user", cl.userID)
		return
	}
	if msg.Data.CallID == "" {
		g.log.Warn("dropping websocket message without callId", "type", msg.Type, "user", cl.userID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := g.coord.End(ctx, msg.Data.CallID, cl.userID)
	if err != nil {
		g.log.Warn("socket-initiated end rejected", "type", msg.Type, "call_id", msg.Data.CallID, "user", cl.userID, "err", err)
		return
	}
	if res.Action != calls.ActionNoop {
		return
	}

	// Record already expired or ended; best-effort local relay.
	peerID := msg.Data.peer()
	if peerID == "" {
		return
	}
	peer, ok := g.registry.Lookup(peerID)
	if !ok {
		return
	}
	data, err := json.Marshal(map[string]string{"callId": msg.Data.CallID})
	if err != nil {
		return
	}
	frame, err := json.Marshal(outboundFrame{Event: eventName, Data: data})
	if err != nil {
		return
	}
	peer.Send(frame)
}

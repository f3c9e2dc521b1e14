package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
	"github.com/HsiangNianian/AMonItor/bridge/internal/packet"
	"github.com/HsiangNianian/AMonItor/bridge/internal/protocol"
	"github.com/HsiangNianian/AMonItor/bridge/internal/store"
)

const processedTTL = 24 * time.Hour

var (
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrDuplicateID     = errors.New("endpoint already connected")
)

type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *clientConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// wsPipeline is a session's outbound pipeline: every native packet written to
// it goes out as a packet envelope.
type wsPipeline struct {
	endpointID string
	version    string
	client     *clientConn
}

func (p *wsPipeline) WriteAndFlush(msg any) error {
	env := protocol.Envelope{
		MsgID:     uuid.NewString(),
		Type:      protocol.TypePacket,
		TargetID:  p.endpointID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(protocol.PacketPayload{
			Type:    nativeName(msg),
			Version: p.version,
			Data:    msg,
		}),
	}
	return p.client.WriteJSON(env)
}

func nativeName(msg any) string {
	t := reflect.TypeOf(msg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

type session struct {
	client   *clientConn
	endpoint host.Endpoint
}

type Options struct {
	PanelAuthToken   string
	SessionAuthToken string
	Logger           *slog.Logger
}

type Hub struct {
	store        store.Store
	env          *packet.Env
	runtime      host.Runtime
	panelToken   string
	sessionToken string
	log          *slog.Logger

	upgrader websocket.Upgrader

	panelMu sync.RWMutex
	panels  map[*clientConn]struct{}

	sessionMu sync.RWMutex
	sessions  map[string]*session
}

func NewHub(st store.Store, env *packet.Env, rt host.Runtime, opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		store:        st,
		env:          env,
		runtime:      rt,
		panelToken:   opts.PanelAuthToken,
		sessionToken: opts.SessionAuthToken,
		log:          logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		panels:   make(map[*clientConn]struct{}),
		sessions: make(map[string]*session),
	}
}

// Endpoints returns the connected endpoints with the given ids, in order.
func (h *Hub) Endpoints(ids ...string) ([]host.Endpoint, error) {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	out := make([]host.Endpoint, 0, len(ids))
	for _, id := range ids {
		s, ok := h.sessions[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
		}
		out = append(out, s.endpoint)
	}
	return out, nil
}

// StartManagedUpstream keeps a dialed session to a game server connected,
// redialing every reconnectInterval after it drops.
func (h *Hub) StartManagedUpstream(ctx context.Context, endpointID, targetURL, authToken string, reconnectInterval time.Duration) {
	if reconnectInterval <= 0 {
		reconnectInterval = 5 * time.Second
	}

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}

			done, err := h.dialSession(ctx, endpointID, targetURL, authToken)
			if err != nil {
				h.log.Warn("connect upstream failed", "endpoint_id", endpointID, "url", targetURL, "err", err)
				if !sleepCtx(ctx, reconnectInterval) {
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				h.dropSession(endpointID)
				return
			case <-done:
			}
			if !sleepCtx(ctx, reconnectInterval) {
				return
			}
		}
	}()
}

func (h *Hub) dialSession(ctx context.Context, endpointID, targetURL, authToken string) (<-chan struct{}, error) {
	header := http.Header{}
	if authToken == "" {
		authToken = h.sessionToken
	}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}
	h.log.Info("dial upstream", "endpoint_id", endpointID, "url", targetURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, targetURL, header)
	if err != nil {
		return nil, err
	}
	client := &clientConn{conn: conn}
	if err := h.addSession(ctx, endpointID, targetURL, client); err != nil {
		_ = conn.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readSession(endpointID, client)
	}()
	return done, nil
}

func (h *Hub) HandleSession(w http.ResponseWriter, r *http.Request) {
	if h.sessionToken != "" && r.Header.Get("Authorization") != "Bearer "+h.sessionToken {
		h.log.Warn("session unauthorized", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	endpointID := r.URL.Query().Get("id")
	if endpointID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	h.sessionMu.RLock()
	_, exists := h.sessions[endpointID]
	h.sessionMu.RUnlock()
	if exists {
		http.Error(w, ErrDuplicateID.Error(), http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade session ws failed", "err", err)
		return
	}
	client := &clientConn{conn: conn}
	if err := h.addSession(r.Context(), endpointID, r.RemoteAddr, client); err != nil {
		h.log.Warn("register session failed", "endpoint_id", endpointID, "err", err)
		_ = conn.Close()
		return
	}
	h.readSession(endpointID, client)
}

func (h *Hub) addSession(ctx context.Context, endpointID, addr string, client *clientConn) error {
	pipeline := &wsPipeline{endpointID: endpointID, version: h.runtime.Version(), client: client}
	s := &session{client: client, endpoint: h.runtime.NewEndpoint(endpointID, pipeline)}

	h.sessionMu.Lock()
	if _, ok := h.sessions[endpointID]; ok {
		h.sessionMu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, endpointID)
	}
	h.sessions[endpointID] = s
	count := len(h.sessions)
	h.sessionMu.Unlock()

	if err := h.store.SetSession(ctx, endpointID, addr); err != nil {
		h.log.Warn("store session failed", "endpoint_id", endpointID, "err", err)
	}
	h.log.Info("session connected", "endpoint_id", endpointID, "addr", addr, "active_sessions", count)

	welcome := protocol.Envelope{
		MsgID:     uuid.NewString(),
		Type:      protocol.TypeWelcome,
		TargetID:  endpointID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(protocol.WelcomePayload{
			EndpointID: endpointID,
			Version:    h.runtime.Version(),
			Kinds:      packet.Kinds(),
		}),
	}
	return client.WriteJSON(welcome)
}

func (h *Hub) dropSession(endpointID string) {
	h.sessionMu.Lock()
	s, ok := h.sessions[endpointID]
	if ok {
		delete(h.sessions, endpointID)
	}
	h.sessionMu.Unlock()
	if ok {
		_ = s.client.conn.Close()
	}
}

func (h *Hub) readSession(endpointID string, client *clientConn) {
	defer func() {
		h.sessionMu.Lock()
		if cur, ok := h.sessions[endpointID]; ok && cur.client == client {
			delete(h.sessions, endpointID)
		}
		h.sessionMu.Unlock()
		_ = client.conn.Close()
		_ = h.store.DeleteSession(context.Background(), endpointID)
		h.log.Info("session disconnected", "endpoint_id", endpointID)
	}()

	for {
		var env protocol.Envelope
		if err := client.conn.ReadJSON(&env); err != nil {
			h.log.Debug("recv session->bridge failed", "endpoint_id", endpointID, "err", err)
			return
		}
		h.logEvent("recv session->bridge", env)
		if env.Type != protocol.TypePacketAck {
			continue
		}
		if err := h.store.SetAckStatus(context.Background(), env.MsgID, "done", processedTTL); err != nil {
			h.log.Warn("ack status update failed", "msg_id", env.MsgID, "err", err)
		}
		if env.TargetID == "" {
			env.TargetID = endpointID
		}
		h.broadcast(env)
	}
}

func (h *Hub) HandlePanel(w http.ResponseWriter, r *http.Request) {
	if h.panelToken != "" && r.Header.Get("Authorization") != "Bearer "+h.panelToken {
		h.log.Warn("panel unauthorized", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade panel ws failed", "err", err)
		return
	}
	client := &clientConn{conn: conn}

	h.panelMu.Lock()
	h.panels[client] = struct{}{}
	panelCount := len(h.panels)
	h.panelMu.Unlock()

	h.log.Info("panel connected", "remote", r.RemoteAddr, "active_panels", panelCount)
	h.readPanel(client)
}

func (h *Hub) readPanel(client *clientConn) {
	defer func() {
		h.panelMu.Lock()
		delete(h.panels, client)
		panelCount := len(h.panels)
		h.panelMu.Unlock()
		_ = client.conn.Close()
		h.log.Info("panel disconnected", "active_panels", panelCount)
	}()

	for {
		var env protocol.Envelope
		if err := client.conn.ReadJSON(&env); err != nil {
			h.log.Debug("recv panel->bridge failed", "err", err)
			return
		}
		h.logEvent("recv panel->bridge", env)
		if env.Type != protocol.TypeSendPacket {
			h.log.Debug("ignore non-send from panel", "type", env.Type, "msg_id", env.MsgID)
			continue
		}
		if err := h.handleSend(context.Background(), env); err != nil {
			h.log.Warn("handle send failed", "msg_id", env.MsgID, "err", err)
			errEnv := protocol.Envelope{
				MsgID:     env.MsgID,
				TraceID:   env.TraceID,
				Type:      protocol.TypeError,
				TargetID:  env.TargetID,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(protocol.ErrorPayload{Code: "SEND_FAILED", Message: err.Error()}),
			}
			h.broadcast(errEnv)
		}
	}
}

func (h *Hub) handleSend(ctx context.Context, env protocol.Envelope) error {
	if env.MsgID == "" {
		return errors.New("missing msg_id")
	}

	seen, err := h.store.IsProcessed(ctx, env.MsgID)
	if err != nil {
		return err
	}
	if seen {
		h.broadcast(h.sendAck(env, true, "duplicate ignored"))
		return nil
	}

	var payload protocol.SendPacketPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("parse send payload failed: %w", err)
	}
	ids := payload.EndpointIDs
	if len(ids) == 0 && env.TargetID != "" {
		ids = []string{env.TargetID}
	}
	endpoints, err := h.Endpoints(ids...)
	if err != nil {
		return err
	}
	p, err := packet.Decode(h.env, payload.Kind, payload.Params)
	if err != nil {
		return err
	}

	ok, err := p.Send(endpoints...)
	if err != nil {
		return err
	}
	if err := h.store.MarkProcessed(ctx, env.MsgID, processedTTL); err != nil {
		return err
	}
	msg := ""
	if !ok {
		msg = "packet not delivered"
	}
	h.broadcast(h.sendAck(env, ok, msg))
	return nil
}

func (h *Hub) sendAck(env protocol.Envelope, success bool, message string) protocol.Envelope {
	return protocol.Envelope{
		MsgID:     uuid.NewString(),
		TraceID:   env.TraceID,
		Type:      protocol.TypeSendAck,
		TargetID:  env.TargetID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(protocol.SendAckPayload{
			SendMsgID: env.MsgID,
			Success:   success,
			Message:   message,
		}),
	}
}

func (h *Hub) broadcast(env protocol.Envelope) {
	h.panelMu.RLock()
	defer h.panelMu.RUnlock()
	h.log.Debug("broadcast to panels", "count", len(h.panels), "type", env.Type, "msg_id", env.MsgID)
	for panel := range h.panels {
		if err := panel.WriteJSON(env); err != nil {
			h.log.Warn("broadcast to panel failed", "err", err)
		}
	}
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (h *Hub) logEvent(prefix string, env protocol.Envelope) {
	h.log.Debug(prefix, "type", env.Type, "msg_id", env.MsgID, "trace_id", env.TraceID, "target_id", env.TargetID, "timestamp", env.Timestamp)
}

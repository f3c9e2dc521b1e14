package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/dispatch"
	"github.com/HsiangNianian/AMonItor/bridge/internal/event"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host/v110r1"
	"github.com/HsiangNianian/AMonItor/bridge/internal/packet"
	"github.com/HsiangNianian/AMonItor/bridge/internal/protocol"
	"github.com/HsiangNianian/AMonItor/bridge/internal/resolver"
	"github.com/HsiangNianian/AMonItor/bridge/internal/store"
	"github.com/HsiangNianian/AMonItor/bridge/internal/ws"
)

const (
	panelToken   = "panel-secret"
	sessionToken = "session-secret"
)

type fixture struct {
	srv   *httptest.Server
	hub   *ws.Hub
	store *store.MemoryStore
	bus   *event.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rt := v110r1.Runtime{}
	reg := host.NewRegistry()
	require.NoError(t, rt.Install(reg))
	profile := rt.DefaultProfile()

	bus := event.NewBus(nil)
	env := &packet.Env{
		Types:       resolver.New(reg, profile.Namespaces, nil),
		Builder:     construct.New(nil),
		Channel:     dispatch.New(profile.PipelinePath, nil),
		Interceptor: bus,
	}
	st := store.NewMemoryStore()
	hub := ws.NewHub(st, env, rt, ws.Options{PanelAuthToken: panelToken, SessionAuthToken: sessionToken})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/session", hub.HandleSession)
	mux.HandleFunc("/ws/panel", hub.HandlePanel)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, hub: hub, store: st, bus: bus}
}

func (f *fixture) url(path string) string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + path
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env protocol.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// connectSession dials a session and waits for its welcome, after which the
// hub has it registered.
func (f *fixture) connectSession(t *testing.T, id string) *websocket.Conn {
	t.Helper()
	conn := dial(t, f.url("/ws/session?id="+id), sessionToken)
	welcome := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeWelcome, welcome.Type)

	var p protocol.WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &p))
	assert.Equal(t, id, p.EndpointID)
	assert.Equal(t, v110r1.Version, p.Version)
	assert.Equal(t, packet.Kinds(), p.Kinds)
	return conn
}

func sendPacket(t *testing.T, conn *websocket.Conn, msgID, kind string, params any, ids ...string) {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	payload, err := json.Marshal(protocol.SendPacketPayload{Kind: kind, Params: raw, EndpointIDs: ids})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(protocol.Envelope{
		MsgID:     msgID,
		Type:      protocol.TypeSendPacket,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}))
}

func readAck(t *testing.T, conn *websocket.Conn) protocol.SendAckPayload {
	t.Helper()
	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeSendAck, env.Type)
	var ack protocol.SendAckPayload
	require.NoError(t, json.Unmarshal(env.Payload, &ack))
	return ack
}

func TestHub_SendPacketReachesSession(t *testing.T) {
	f := newFixture(t)
	sess := f.connectSession(t, "alex")
	panel := dial(t, f.url("/ws/panel"), panelToken)

	sendPacket(t, panel, "m-1", packet.KindHeldItemSlot, map[string]int{"slot": 8}, "alex")

	env := readEnvelope(t, sess)
	require.Equal(t, protocol.TypePacket, env.Type)
	assert.Equal(t, "alex", env.TargetID)
	assert.NotEmpty(t, env.MsgID)
	var pkt struct {
		Type    string         `json:"type"`
		Version string         `json:"version"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &pkt))
	assert.Equal(t, "PacketPlayOutHeldItemSlot", pkt.Type)
	assert.Equal(t, v110r1.Version, pkt.Version)
	assert.Equal(t, float64(8), pkt.Data["a"])

	ack := readAck(t, panel)
	assert.Equal(t, "m-1", ack.SendMsgID)
	assert.True(t, ack.Success)

	sendPacket(t, panel, "m-1", packet.KindHeldItemSlot, map[string]int{"slot": 8}, "alex")
	dup := readAck(t, panel)
	assert.True(t, dup.Success)
	assert.Equal(t, "duplicate ignored", dup.Message)
}

func TestHub_PacketAckStored(t *testing.T) {
	f := newFixture(t)
	sess := f.connectSession(t, "alex")
	panel := dial(t, f.url("/ws/panel"), panelToken)

	require.NoError(t, sess.WriteJSON(protocol.Envelope{
		MsgID:     "pkt-1",
		Type:      protocol.TypePacketAck,
		Timestamp: time.Now().UnixMilli(),
	}))

	require.Eventually(t, func() bool {
		status, err := f.store.AckStatus(context.Background(), "pkt-1")
		return err == nil && status == "done"
	}, 5*time.Second, 10*time.Millisecond)

	env := readEnvelope(t, panel)
	assert.Equal(t, protocol.TypePacketAck, env.Type)
	assert.Equal(t, "alex", env.TargetID)
}

func TestHub_UnknownEndpointReportsError(t *testing.T) {
	f := newFixture(t)
	panel := dial(t, f.url("/ws/panel"), panelToken)

	sendPacket(t, panel, "m-2", packet.KindEntityDestroy, map[string][]int32{"ids": {1}}, "nobody")

	env := readEnvelope(t, panel)
	require.Equal(t, protocol.TypeError, env.Type)
	var p protocol.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "SEND_FAILED", p.Code)
	assert.Contains(t, p.Message, "nobody")
}

func TestHub_UnknownKindReportsError(t *testing.T) {
	f := newFixture(t)
	f.connectSession(t, "alex")
	panel := dial(t, f.url("/ws/panel"), panelToken)

	sendPacket(t, panel, "m-3", "title", map[string]string{}, "alex")

	env := readEnvelope(t, panel)
	require.Equal(t, protocol.TypeError, env.Type)
}

func TestHub_CancelledSendAcksSuccessWithoutPacket(t *testing.T) {
	f := newFixture(t)
	f.bus.Register(event.BlockKinds(packet.KindExplosion))
	f.connectSession(t, "alex")
	panel := dial(t, f.url("/ws/panel"), panelToken)

	sendPacket(t, panel, "m-4", packet.KindExplosion, map[string]float64{"x": 1, "radius": 2}, "alex")

	ack := readAck(t, panel)
	assert.True(t, ack.Success)
}

func TestHub_SessionRejections(t *testing.T) {
	f := newFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url("/ws/session?id=alex"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+sessionToken)
	_, resp, err = websocket.DefaultDialer.Dial(f.url("/ws/session"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.connectSession(t, "alex")
	_, resp, err = websocket.DefaultDialer.Dial(f.url("/ws/session?id=alex"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHub_SessionDisconnectForgetsEndpoint(t *testing.T) {
	f := newFixture(t)
	sess := f.connectSession(t, "alex")

	_, err := f.hub.Endpoints("alex")
	require.NoError(t, err)
	addr, err := f.store.GetSession(context.Background(), "alex")
	require.NoError(t, err)
	assert.NotEmpty(t, addr)

	require.NoError(t, sess.Close())
	require.Eventually(t, func() bool {
		_, err := f.hub.Endpoints("alex")
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)
	_, err = f.hub.Endpoints("alex")
	assert.ErrorIs(t, err, ws.ErrUnknownEndpoint)
}

func TestHub_ManagedUpstream(t *testing.T) {
	f := newFixture(t)

	received := make(chan protocol.Envelope, 4)
	upgrader := websocket.Upgrader{}
	game := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer up-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var env protocol.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			received <- env
		}
	}))
	t.Cleanup(game.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.hub.StartManagedUpstream(ctx, "lobby", "ws"+strings.TrimPrefix(game.URL, "http"), "up-token", 50*time.Millisecond)

	select {
	case env := <-received:
		assert.Equal(t, protocol.TypeWelcome, env.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("upstream never received welcome")
	}

	_, err := f.hub.Endpoints("lobby")
	require.NoError(t, err)

	panel := dial(t, f.url("/ws/panel"), panelToken)
	sendPacket(t, panel, "m-5", packet.KindEntityDestroy, map[string][]int32{"ids": {7, 9}}, "lobby")

	select {
	case env := <-received:
		require.Equal(t, protocol.TypePacket, env.Type)
		var pkt protocol.PacketPayload
		require.NoError(t, json.Unmarshal(env.Payload, &pkt))
		assert.Equal(t, "PacketPlayOutEntityDestroy", pkt.Type)
		assert.Equal(t, map[string]any{"a": []any{float64(7), float64(9)}}, pkt.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("upstream never received packet")
	}
	assert.True(t, readAck(t, panel).Success)
}

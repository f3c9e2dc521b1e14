package packet_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/dispatch"
	"github.com/HsiangNianian/AMonItor/bridge/internal/event"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
	"github.com/HsiangNianian/AMonItor/bridge/internal/packet"
	"github.com/HsiangNianian/AMonItor/bridge/internal/resolver"
)

// spyBuilder records every Build call and every top-level strategy attempt.
type spyBuilder struct {
	inner    *construct.Constructor
	builds   []string
	attempts []string
}

func (s *spyBuilder) Build(h *resolver.TypeHandle, strategies ...construct.Strategy) (construct.Instance, error) {
	s.builds = append(s.builds, h.Name())
	wrapped := make([]construct.Strategy, len(strategies))
	for i, st := range strategies {
		i, st := i, st
		wrapped[i] = construct.Lazy{Name: st.String(), Prepare: func() (construct.Strategy, error) {
			s.attempts = append(s.attempts, fmt.Sprintf("%s#%d", h.Name(), i))
			return st, nil
		}}
	}
	return s.inner.Build(h, wrapped...)
}

func (s *spyBuilder) attemptsFor(name string) []string {
	var out []string
	prefix := name + "#"
	for _, a := range s.attempts {
		if len(a) > len(prefix) && a[:len(prefix)] == prefix {
			out = append(out, a)
		}
	}
	return out
}

type spyChannel struct {
	inner *dispatch.Channel
	calls int
	msgs  []any
}

func (s *spyChannel) Transmit(endpoints []host.Endpoint, msg any) (dispatch.Report, error) {
	s.calls++
	s.msgs = append(s.msgs, msg)
	return s.inner.Transmit(endpoints, msg)
}

type recorder struct {
	msgs []any
}

func (r *recorder) WriteAndFlush(msg any) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

type providerEndpoint struct {
	id string
	ch host.Channel
}

func (p providerEndpoint) ID() string { return p.id }

func (p providerEndpoint) OutboundPipeline() (host.Channel, error) { return p.ch, nil }

type harness struct {
	env     *packet.Env
	bus     *event.Bus
	builder *spyBuilder
	channel *spyChannel
}

func newHarness(t *testing.T, reg *host.Registry, profile host.Profile) *harness {
	t.Helper()
	h := &harness{
		bus:     event.NewBus(nil),
		builder: &spyBuilder{inner: construct.New(nil)},
		channel: &spyChannel{inner: dispatch.New(profile.PipelinePath, nil)},
	}
	h.env = &packet.Env{
		Types:       resolver.New(reg, profile.Namespaces, nil),
		Builder:     h.builder,
		Channel:     h.channel,
		Interceptor: h.bus,
	}
	return h
}

func runtimeHarness(t *testing.T, rt host.Runtime) *harness {
	t.Helper()
	reg := host.NewRegistry()
	require.NoError(t, rt.Install(reg))
	return newHarness(t, reg, rt.DefaultProfile())
}

func allKinds(env *packet.Env) []packet.Packet {
	return []packet.Packet{
		packet.NewExplosion(env, 0, 0, 0, 0, nil, packet.Vector{}),
		packet.NewHeldItemSlot(env, 0),
		packet.NewEntityDestroy(env),
		packet.NewMultiBlockChange(env, 0, 0, nil),
	}
}

func nativeName(kind string) string {
	switch kind {
	case packet.KindExplosion:
		return "PacketPlayOutExplosion"
	case packet.KindHeldItemSlot:
		return "PacketPlayOutHeldItemSlot"
	case packet.KindEntityDestroy:
		return "PacketPlayOutEntityDestroy"
	case packet.KindMultiBlockChange:
		return "PacketPlayOutMultiBlockChange"
	}
	return ""
}

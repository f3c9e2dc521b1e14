// Package packet holds the typed packet wrappers. A wrapper keeps the logical
// fields of one packet kind and knows how to turn them into the running host's
// native packet, whatever constructor or field layout that host version has.
//
// Send never fails because a construction strategy did not fit the host: it
// reports false and logs why. The only error it returns is a
// *dispatch.DispatchError, when the first endpoint has no pipeline at all.
package packet

import (
	"log/slog"

	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/dispatch"
	"github.com/HsiangNianian/AMonItor/bridge/internal/event"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
	"github.com/HsiangNianian/AMonItor/bridge/internal/resolver"
)

const (
	KindExplosion        = "explosion"
	KindHeldItemSlot     = "held_item_slot"
	KindEntityDestroy    = "entity_destroy"
	KindMultiBlockChange = "multi_block_change"
)

type TypeResolver interface {
	Resolve(namespace, name string) (*resolver.TypeHandle, error)
}

type Builder interface {
	Build(h *resolver.TypeHandle, strategies ...construct.Strategy) (construct.Instance, error)
}

type Transmitter interface {
	Transmit(endpoints []host.Endpoint, msg any) (dispatch.Report, error)
}

type Interceptor interface {
	BeforeSend(p event.Packet, endpoints []host.Endpoint) bool
}

// Env is what every wrapper needs to send. Interceptor and Log are optional.
type Env struct {
	Types       TypeResolver
	Builder     Builder
	Channel     Transmitter
	Interceptor Interceptor
	Log         *slog.Logger
}

// Packet is a wrapper of any kind.
type Packet interface {
	Kind() string
	Send(endpoints ...host.Endpoint) (bool, error)
}

// native is implemented by every wrapper.
type native interface {
	event.Packet
	nativeType() string
	// snapshot copies the wrapper so later mutation cannot reach a send in
	// progress.
	snapshot() native
	strategies(env *Env) []construct.Strategy
}

func (e *Env) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Env) send(p native, endpoints []host.Endpoint) (bool, error) {
	snap := p.snapshot()
	if e.Interceptor != nil && e.Interceptor.BeforeSend(snap, endpoints) {
		return true, nil
	}
	if len(endpoints) == 0 {
		return true, nil
	}

	log := e.logger().With("kind", snap.Kind(), "endpoints", len(endpoints))
	h, err := e.Types.Resolve(host.NamespaceServer, snap.nativeType())
	if err != nil {
		log.Warn("packet type unavailable on host", "type", snap.nativeType(), "err", err)
		return false, nil
	}
	inst, err := e.Builder.Build(h, snap.strategies(e)...)
	if err != nil {
		log.Warn("packet construction failed", "type", h.String(), "err", err)
		return false, nil
	}
	report, err := e.Channel.Transmit(endpoints, inst.Value())
	if err != nil {
		return false, err
	}
	if !report.OK() {
		log.Warn("packet not delivered to every endpoint", "failed", len(report.Failed()))
		return false, nil
	}
	return true, nil
}

// nested builds a native value type such as Vec3D or BlockPosition.
func (e *Env) nested(name string, args ...any) (construct.Instance, error) {
	h, err := e.Types.Resolve(host.NamespaceServer, name)
	if err != nil {
		return construct.Instance{}, err
	}
	return e.Builder.Build(h, construct.Direct{Args: args})
}

func (e *Env) nativeBlockPositions(records []BlockPosition) ([]any, error) {
	out := make([]any, 0, len(records))
	for _, r := range records {
		inst, err := e.nested("BlockPosition", r.X, r.Y, r.Z)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

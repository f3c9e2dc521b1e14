package packet

import (
	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

// EntityDestroy removes entities from the receiving client.
type EntityDestroy struct {
	env *Env
	ids []int32
}

func NewEntityDestroy(env *Env, ids ...int32) *EntityDestroy {
	return &EntityDestroy{env: env, ids: append([]int32{}, ids...)}
}

func (p *EntityDestroy) Kind() string { return KindEntityDestroy }

func (p *EntityDestroy) IDs() []int32 { return append([]int32{}, p.ids...) }

func (p *EntityDestroy) SetIDs(ids ...int32) *EntityDestroy {
	p.ids = append([]int32{}, ids...)
	return p
}

func (p *EntityDestroy) AddID(id int32) *EntityDestroy {
	p.ids = append(p.ids, id)
	return p
}

func (p *EntityDestroy) Send(endpoints ...host.Endpoint) (bool, error) {
	return p.env.send(p, endpoints)
}

func (p *EntityDestroy) nativeType() string { return "PacketPlayOutEntityDestroy" }

func (p *EntityDestroy) snapshot() native {
	cp := *p
	cp.ids = append([]int32{}, p.ids...)
	return &cp
}

func (p *EntityDestroy) strategies(*Env) []construct.Strategy {
	return []construct.Strategy{
		construct.Direct{Args: []any{p.ids}},
		construct.FieldInject{Values: []any{p.ids}},
	}
}

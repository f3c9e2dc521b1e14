package packet

import (
	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

// MultiBlockChange replaces several blocks of one chunk at once.
type MultiBlockChange struct {
	env            *Env
	chunkX, chunkZ int32
	changes        []BlockChange
}

func NewMultiBlockChange(env *Env, chunkX, chunkZ int32, changes []BlockChange) *MultiBlockChange {
	return &MultiBlockChange{env: env, chunkX: chunkX, chunkZ: chunkZ, changes: append([]BlockChange{}, changes...)}
}

func (p *MultiBlockChange) Kind() string { return KindMultiBlockChange }

func (p *MultiBlockChange) ChunkX() int32          { return p.chunkX }
func (p *MultiBlockChange) ChunkZ() int32          { return p.chunkZ }
func (p *MultiBlockChange) Changes() []BlockChange { return append([]BlockChange{}, p.changes...) }

func (p *MultiBlockChange) SetChunk(x, z int32) *MultiBlockChange {
	p.chunkX, p.chunkZ = x, z
	return p
}

func (p *MultiBlockChange) SetChanges(changes []BlockChange) *MultiBlockChange {
	p.changes = append([]BlockChange{}, changes...)
	return p
}

func (p *MultiBlockChange) AddChange(c BlockChange) *MultiBlockChange {
	p.changes = append(p.changes, c)
	return p
}

func (p *MultiBlockChange) Send(endpoints ...host.Endpoint) (bool, error) {
	return p.env.send(p, endpoints)
}

func (p *MultiBlockChange) nativeType() string { return "PacketPlayOutMultiBlockChange" }

func (p *MultiBlockChange) snapshot() native {
	cp := *p
	cp.changes = append([]BlockChange{}, p.changes...)
	return &cp
}

func (p *MultiBlockChange) nativeInfos(env *Env) ([]any, error) {
	out := make([]any, 0, len(p.changes))
	for _, c := range p.changes {
		inst, err := env.nested("MultiBlockChangeInfo", c.Offset, c.BlockID)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (p *MultiBlockChange) strategies(env *Env) []construct.Strategy {
	return []construct.Strategy{
		construct.Lazy{Name: "constructor", Prepare: func() (construct.Strategy, error) {
			infos, err := p.nativeInfos(env)
			if err != nil {
				return nil, err
			}
			return construct.Direct{Args: []any{p.chunkX, p.chunkZ, infos}}, nil
		}},
		construct.Lazy{Name: "fields", Prepare: func() (construct.Strategy, error) {
			infos, err := p.nativeInfos(env)
			if err != nil {
				return nil, err
			}
			return construct.FieldInject{Values: []any{p.chunkX, p.chunkZ, infos}}, nil
		}},
	}
}

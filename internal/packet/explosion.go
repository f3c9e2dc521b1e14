package packet

import (
	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

// Explosion shows an explosion at a point, destroying the listed blocks
// client-side and pushing the receiving player by the knockback vector.
type Explosion struct {
	env       *Env
	x, y, z   float64
	radius    float32
	records   []BlockPosition
	knockback Vector
}

func NewExplosion(env *Env, x, y, z float64, radius float32, records []BlockPosition, knockback Vector) *Explosion {
	return &Explosion{
		env:       env,
		x:         x,
		y:         y,
		z:         z,
		radius:    radius,
		records:   append([]BlockPosition{}, records...),
		knockback: knockback,
	}
}

// ExplosionAt is an explosion at loc with no destroyed blocks or knockback.
func ExplosionAt(env *Env, loc Location, radius float32) *Explosion {
	return NewExplosion(env, loc.X, loc.Y, loc.Z, radius, nil, Vector{})
}

func (p *Explosion) Kind() string { return KindExplosion }

func (p *Explosion) X() float64               { return p.x }
func (p *Explosion) Y() float64               { return p.y }
func (p *Explosion) Z() float64               { return p.z }
func (p *Explosion) Radius() float32          { return p.radius }
func (p *Explosion) Knockback() Vector        { return p.knockback }
func (p *Explosion) Records() []BlockPosition { return append([]BlockPosition{}, p.records...) }
func (p *Explosion) Location() Location       { return Location{X: p.x, Y: p.y, Z: p.z} }

func (p *Explosion) SetX(x float64) *Explosion { p.x = x; return p }
func (p *Explosion) SetY(y float64) *Explosion { p.y = y; return p }
func (p *Explosion) SetZ(z float64) *Explosion { p.z = z; return p }

func (p *Explosion) SetLocation(loc Location) *Explosion {
	p.x, p.y, p.z = loc.X, loc.Y, loc.Z
	return p
}

func (p *Explosion) SetRadius(r float32) *Explosion { p.radius = r; return p }

func (p *Explosion) SetKnockback(v Vector) *Explosion { p.knockback = v; return p }

func (p *Explosion) SetRecords(records []BlockPosition) *Explosion {
	p.records = append([]BlockPosition{}, records...)
	return p
}

func (p *Explosion) AddRecord(b BlockPosition) *Explosion {
	p.records = append(p.records, b)
	return p
}

func (p *Explosion) Send(endpoints ...host.Endpoint) (bool, error) {
	return p.env.send(p, endpoints)
}

func (p *Explosion) nativeType() string { return "PacketPlayOutExplosion" }

func (p *Explosion) snapshot() native {
	cp := *p
	cp.records = append([]BlockPosition{}, p.records...)
	return &cp
}

// strategies: the public constructor (x, y, z, radius, records, Vec3D), then
// the eight declared fields (x, y, z, radius, records, knockback x/y/z).
func (p *Explosion) strategies(env *Env) []construct.Strategy {
	return []construct.Strategy{
		construct.Lazy{Name: "constructor", Prepare: func() (construct.Strategy, error) {
			records, err := env.nativeBlockPositions(p.records)
			if err != nil {
				return nil, err
			}
			vec, err := env.nested("Vec3D", p.knockback.X, p.knockback.Y, p.knockback.Z)
			if err != nil {
				return nil, err
			}
			return construct.Direct{Args: []any{p.x, p.y, p.z, p.radius, records, vec}}, nil
		}},
		construct.Lazy{Name: "fields", Prepare: func() (construct.Strategy, error) {
			records, err := env.nativeBlockPositions(p.records)
			if err != nil {
				return nil, err
			}
			return construct.FieldInject{Values: []any{
				p.x, p.y, p.z, p.radius, records,
				p.knockback.X, p.knockback.Y, p.knockback.Z,
			}}, nil
		}},
	}
}

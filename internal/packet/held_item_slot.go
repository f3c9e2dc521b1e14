package packet

import (
	"github.com/HsiangNianian/AMonItor/bridge/internal/construct"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

const (
	MinHotbarSlot = 0
	MaxHotbarSlot = 8
)

// HeldItemSlot changes the receiving player's selected hotbar slot.
type HeldItemSlot struct {
	env  *Env
	slot int
}

// NewHeldItemSlot clamps slot into 0..8.
func NewHeldItemSlot(env *Env, slot int) *HeldItemSlot {
	return (&HeldItemSlot{env: env}).SetSlot(slot)
}

// HeldItemSlotOf copies the slot currently selected by holder.
func HeldItemSlotOf(env *Env, holder SlotHolder) *HeldItemSlot {
	return NewHeldItemSlot(env, holder.HeldItemSlot())
}

func (p *HeldItemSlot) Kind() string { return KindHeldItemSlot }

func (p *HeldItemSlot) Slot() int { return p.slot }

func (p *HeldItemSlot) SetSlot(slot int) *HeldItemSlot {
	switch {
	case slot < MinHotbarSlot:
		slot = MinHotbarSlot
	case slot > MaxHotbarSlot:
		slot = MaxHotbarSlot
	}
	p.slot = slot
	return p
}

func (p *HeldItemSlot) Send(endpoints ...host.Endpoint) (bool, error) {
	return p.env.send(p, endpoints)
}

func (p *HeldItemSlot) nativeType() string { return "PacketPlayOutHeldItemSlot" }

func (p *HeldItemSlot) snapshot() native {
	cp := *p
	return &cp
}

func (p *HeldItemSlot) strategies(*Env) []construct.Strategy {
	return []construct.Strategy{
		construct.Direct{Args: []any{p.slot}},
		construct.FieldInject{Values: []any{p.slot}},
	}
}

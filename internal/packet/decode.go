package packet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownKind = errors.New("unknown packet kind")

type explosionParams struct {
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Z         float64         `json:"z"`
	Radius    float32         `json:"radius"`
	Records   []BlockPosition `json:"records,omitempty"`
	Knockback Vector          `json:"knockback"`
}

type heldItemSlotParams struct {
	Slot int `json:"slot"`
}

type entityDestroyParams struct {
	IDs []int32 `json:"ids"`
}

type blockChangeParams struct {
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Z       int   `json:"z"`
	BlockID int32 `json:"block_id"`
}

type multiBlockChangeParams struct {
	ChunkX  int32               `json:"chunk_x"`
	ChunkZ  int32               `json:"chunk_z"`
	Changes []blockChangeParams `json:"changes"`
}

var decoders = map[string]func(env *Env, raw json.RawMessage) (Packet, error){
	KindExplosion: func(env *Env, raw json.RawMessage) (Packet, error) {
		var p explosionParams
		if err := unmarshalParams(raw, &p); err != nil {
			return nil, err
		}
		return NewExplosion(env, p.X, p.Y, p.Z, p.Radius, p.Records, p.Knockback), nil
	},
	KindHeldItemSlot: func(env *Env, raw json.RawMessage) (Packet, error) {
		var p heldItemSlotParams
		if err := unmarshalParams(raw, &p); err != nil {
			return nil, err
		}
		if p.Slot < MinHotbarSlot || p.Slot > MaxHotbarSlot {
			return nil, fmt.Errorf("slot %d outside %d..%d", p.Slot, MinHotbarSlot, MaxHotbarSlot)
		}
		return NewHeldItemSlot(env, p.Slot), nil
	},
	KindEntityDestroy: func(env *Env, raw json.RawMessage) (Packet, error) {
		var p entityDestroyParams
		if err := unmarshalParams(raw, &p); err != nil {
			return nil, err
		}
		return NewEntityDestroy(env, p.IDs...), nil
	},
	KindMultiBlockChange: func(env *Env, raw json.RawMessage) (Packet, error) {
		var p multiBlockChangeParams
		if err := unmarshalParams(raw, &p); err != nil {
			return nil, err
		}
		changes := make([]BlockChange, 0, len(p.Changes))
		for _, c := range p.Changes {
			bc, err := BlockChangeAt(c.X, c.Y, c.Z, c.BlockID)
			if err != nil {
				return nil, err
			}
			changes = append(changes, bc)
		}
		return NewMultiBlockChange(env, p.ChunkX, p.ChunkZ, changes), nil
	},
}

// Decode builds a wrapper of the given kind from JSON params.
func Decode(env *Env, kind string, params json.RawMessage) (Packet, error) {
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	p, err := dec(env, params)
	if err != nil {
		return nil, fmt.Errorf("decode %s params: %w", kind, err)
	}
	return p, nil
}

// Kinds lists the kinds Decode accepts.
func Kinds() []string {
	out := make([]string, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

package packet

import "fmt"

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Location struct {
	World string  `json:"world,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

type BlockPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// BlockChange is one entry of a multi block change. Offset packs the
// chunk-local position as x<<12 | z<<8 | y.
type BlockChange struct {
	Offset  int16 `json:"offset"`
	BlockID int32 `json:"block_id"`
}

// BlockChangeAt packs a chunk-local position. x and z must be 0..15, y 0..255.
func BlockChangeAt(x, y, z int, blockID int32) (BlockChange, error) {
	if x < 0 || x > 15 || z < 0 || z > 15 || y < 0 || y > 255 {
		return BlockChange{}, fmt.Errorf("block change position %d,%d,%d outside chunk", x, y, z)
	}
	return BlockChange{Offset: int16(uint16(x<<12 | z<<8 | y)), BlockID: blockID}, nil
}

func (c BlockChange) Position() BlockPosition {
	o := uint16(c.Offset)
	return BlockPosition{X: int(o>>12) & 15, Y: int(o & 0xFF), Z: int(o>>8) & 15}
}

// SlotHolder is anything with a selected hotbar slot, such as a host player.
type SlotHolder interface {
	HeldItemSlot() int
}

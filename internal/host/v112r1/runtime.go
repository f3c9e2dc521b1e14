// Package v112r1 is the adapter table for host version v1_12_R1. This release
// changed the explosion and block change constructors and dropped the held
// slot constructor, so those kinds are only reachable by field injection.
package v112r1

import (
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

const (
	Version         = "v1_12_R1"
	ServerNamespace = "net.minecraft.server.v1_12_R1"
	CraftNamespace  = "org.bukkit.craftbukkit.v1_12_R1.entity"
)

type Vec3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func NewVec3D(x, y, z float64) *Vec3D {
	return &Vec3D{X: x, Y: y, Z: z}
}

type BlockPosition struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

func NewBlockPosition(x, y, z int32) BlockPosition {
	return BlockPosition{X: x, Y: y, Z: z}
}

type PacketPlayOutExplosion struct {
	// Serial is bookkeeping added by the host, not part of the packet.
	Serial uint64 `json:"-" host:"synthetic"`

	A float64         `json:"a"`
	B float64         `json:"b"`
	C float64         `json:"c"`
	D float32         `json:"d"`
	E []BlockPosition `json:"e"`
	F float32         `json:"f"`
	G float32         `json:"g"`
	H float32         `json:"h"`
}

func NewPacketPlayOutExplosion(x, y, z float64, radius float32, records []BlockPosition, knockback *Vec3D, destroys bool) *PacketPlayOutExplosion {
	p := &PacketPlayOutExplosion{A: x, B: y, C: z, D: radius}
	if destroys {
		p.E = records
	}
	if knockback != nil {
		p.F = float32(knockback.X)
		p.G = float32(knockback.Y)
		p.H = float32(knockback.Z)
	}
	return p
}

type PacketPlayOutHeldItemSlot struct {
	_ struct{}
	A int32 `json:"a"`
}

type PacketPlayOutEntityDestroy struct {
	A []int32 `json:"a"`
}

func NewPacketPlayOutEntityDestroy(ids []int32) *PacketPlayOutEntityDestroy {
	return &PacketPlayOutEntityDestroy{A: ids}
}

type MultiBlockChangeInfo struct {
	Offset int16 `json:"offset"`
	Block  int32 `json:"block"`
}

func NewMultiBlockChangeInfo(offset int16, block int32) MultiBlockChangeInfo {
	return MultiBlockChangeInfo{Offset: offset, Block: block}
}

type ChunkCoordIntPair struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

type PacketPlayOutMultiBlockChange struct {
	ChunkX int32                  `json:"chunk_x"`
	ChunkZ int32                  `json:"chunk_z"`
	Infos  []MultiBlockChangeInfo `json:"infos"`
}

func NewPacketPlayOutMultiBlockChange(chunk ChunkCoordIntPair, infos []MultiBlockChangeInfo) *PacketPlayOutMultiBlockChange {
	return &PacketPlayOutMultiBlockChange{ChunkX: chunk.X, ChunkZ: chunk.Z, Infos: infos}
}

type Runtime struct{}

func (Runtime) Version() string { return Version }

func (Runtime) DefaultProfile() host.Profile {
	return host.Profile{
		Version: Version,
		Namespaces: map[string]string{
			host.NamespaceServer: ServerNamespace,
			host.NamespaceCraft:  CraftNamespace,
		},
		PipelinePath: []string{"GetHandle", "Connection", "Manager", "Channel"},
	}
}

func (Runtime) Install(r *host.Registry) error {
	defs := []struct {
		ns     string
		sample any
		ctors  []any
	}{
		{ServerNamespace, Vec3D{}, []any{NewVec3D}},
		{ServerNamespace, BlockPosition{}, []any{NewBlockPosition}},
		{ServerNamespace, PacketPlayOutExplosion{}, []any{NewPacketPlayOutExplosion}},
		{ServerNamespace, PacketPlayOutHeldItemSlot{}, nil},
		{ServerNamespace, PacketPlayOutEntityDestroy{}, []any{NewPacketPlayOutEntityDestroy}},
		{ServerNamespace, MultiBlockChangeInfo{}, []any{NewMultiBlockChangeInfo}},
		{ServerNamespace, ChunkCoordIntPair{}, nil},
		{ServerNamespace, PacketPlayOutMultiBlockChange{}, []any{NewPacketPlayOutMultiBlockChange}},
		{ServerNamespace, NetworkManager{}, nil},
		{ServerNamespace, PlayerConnection{}, nil},
		{ServerNamespace, EntityPlayer{}, nil},
		{CraftNamespace, CraftPlayer{}, nil},
	}
	for _, d := range defs {
		if err := r.Define(d.ns, d.sample, d.ctors...); err != nil {
			return err
		}
	}
	return nil
}

func (Runtime) NewEndpoint(id string, ch host.Channel) host.Endpoint {
	return NewCraftPlayer(id, ch)
}

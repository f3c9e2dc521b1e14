package packet_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

// A host whose packet types match none of the wrappers' strategies: every
// constructor takes a string and every layout is a single string field.

const mismatchedNamespace = "net.minecraft.server.mismatched"

type Vec3D struct{ X, Y, Z float64 }

type BlockPosition struct{ X, Y, Z int32 }

type MultiBlockChangeInfo struct {
	Offset int16
	Block  int32
}

type PacketPlayOutExplosion struct{ A string }

type PacketPlayOutHeldItemSlot struct{ A string }

type PacketPlayOutEntityDestroy struct{ A string }

type PacketPlayOutMultiBlockChange struct{ A string }

func mismatchedHost(t *testing.T) (*host.Registry, host.Profile) {
	t.Helper()
	reg := host.NewRegistry()
	defs := []struct {
		sample any
		ctor   any
	}{
		{Vec3D{}, func(x, y, z float64) Vec3D { return Vec3D{x, y, z} }},
		{BlockPosition{}, func(x, y, z int32) BlockPosition { return BlockPosition{x, y, z} }},
		{MultiBlockChangeInfo{}, func(o int16, b int32) MultiBlockChangeInfo { return MultiBlockChangeInfo{o, b} }},
		{PacketPlayOutExplosion{}, func(a string) *PacketPlayOutExplosion { return &PacketPlayOutExplosion{a} }},
		{PacketPlayOutHeldItemSlot{}, func(a string) *PacketPlayOutHeldItemSlot { return &PacketPlayOutHeldItemSlot{a} }},
		{PacketPlayOutEntityDestroy{}, func(a string) *PacketPlayOutEntityDestroy { return &PacketPlayOutEntityDestroy{a} }},
		{PacketPlayOutMultiBlockChange{}, func(a string) *PacketPlayOutMultiBlockChange { return &PacketPlayOutMultiBlockChange{a} }},
	}
	for _, d := range defs {
		require.NoError(t, reg.Define(mismatchedNamespace, d.sample, d.ctor))
	}
	return reg, host.Profile{
		Version:    "mismatched",
		Namespaces: map[string]string{host.NamespaceServer: mismatchedNamespace},
	}
}

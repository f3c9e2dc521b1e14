package host_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host/v110r1"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host/v112r1"
)

type widget struct {
	N int
}

func newWidget(n int) *widget { return &widget{N: n} }

func newWidgetChecked(n int) (widget, error) { return widget{N: n}, nil }

func TestRegistry_DefineLookup(t *testing.T) {
	reg := host.NewRegistry()
	require.NoError(t, reg.Define("ns", widget{}, newWidget, newWidgetChecked))

	desc, ok := reg.Lookup("ns", "widget")
	require.True(t, ok)
	assert.Equal(t, "ns", desc.Namespace)
	assert.Equal(t, "widget", desc.Name)
	assert.Len(t, desc.Constructors, 2)

	_, ok = reg.Lookup("ns", "gadget")
	assert.False(t, ok)
	_, ok = reg.Lookup("other", "widget")
	assert.False(t, ok)

	assert.ErrorIs(t, reg.Define("ns", &widget{}), host.ErrDuplicateType)
	require.NoError(t, reg.Define("other", &widget{}))
}

func TestRegistry_DefineRejects(t *testing.T) {
	reg := host.NewRegistry()
	assert.ErrorIs(t, reg.Define("ns", 42), host.ErrBadDefinition)
	assert.ErrorIs(t, reg.Define("ns", widget{}, "not a func"), host.ErrBadDefinition)
	assert.ErrorIs(t, reg.Define("ns", widget{}, func() int { return 0 }), host.ErrBadDefinition)
	assert.ErrorIs(t, reg.Define("ns", widget{}, func() (widget, int) { return widget{}, 0 }), host.ErrBadDefinition)
	assert.ErrorIs(t, reg.Define("ns", widget{}, func() {}), host.ErrBadDefinition)
}

func TestProfile_ParseMergeValidate(t *testing.T) {
	p, err := host.ParseProfile([]byte(`
version: v1_10_R1
namespaces:
  nms: net.minecraft.server.custom
pipeline_path: [GetHandle, Conn, Channel]
`))
	require.NoError(t, err)
	assert.Equal(t, "v1_10_R1", p.Version)
	assert.Equal(t, []string{"GetHandle", "Conn", "Channel"}, p.PipelinePath)

	merged := v110r1.Runtime{}.DefaultProfile().Merge(p)
	require.NoError(t, merged.Validate())
	assert.Equal(t, "net.minecraft.server.custom", merged.Namespaces[host.NamespaceServer])
	assert.Equal(t, v110r1.CraftNamespace, merged.Namespaces[host.NamespaceCraft])
	assert.Equal(t, []string{"GetHandle", "Conn", "Channel"}, merged.PipelinePath)

	base := v110r1.Runtime{}.DefaultProfile()
	kept := base.Merge(host.Profile{})
	assert.Equal(t, base, kept)
	kept.Namespaces[host.NamespaceServer] = "changed"
	assert.Equal(t, v110r1.ServerNamespace, base.Namespaces[host.NamespaceServer])

	assert.Error(t, host.Profile{}.Validate())
	assert.Error(t, host.Profile{Version: "x"}.Validate())
}

func TestProfile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1_12_R1\n"), 0o644))
	p, err := host.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1_12_R1", p.Version)

	_, err = host.LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = host.ParseProfile([]byte("pipeline_path: {"))
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	rts := []host.Runtime{v110r1.Runtime{}, v112r1.Runtime{}}
	rt, err := host.Select("v1_12_R1", rts...)
	require.NoError(t, err)
	assert.Equal(t, "v1_12_R1", rt.Version())

	_, err = host.Select("v1_8_R3", rts...)
	assert.ErrorIs(t, err, host.ErrUnknownVersion)
}

func TestRuntimes_Install(t *testing.T) {
	for _, rt := range []host.Runtime{v110r1.Runtime{}, v112r1.Runtime{}} {
		t.Run(rt.Version(), func(t *testing.T) {
			reg := host.NewRegistry()
			require.NoError(t, rt.Install(reg))
			require.NoError(t, rt.DefaultProfile().Validate())

			ns := rt.DefaultProfile().Namespaces[host.NamespaceServer]
			for _, name := range []string{
				"PacketPlayOutExplosion",
				"PacketPlayOutHeldItemSlot",
				"PacketPlayOutEntityDestroy",
				"PacketPlayOutMultiBlockChange",
			} {
				_, ok := reg.Lookup(ns, name)
				assert.True(t, ok, name)
			}
			assert.ErrorIs(t, rt.Install(reg), host.ErrDuplicateType)

			ep := rt.NewEndpoint("alex", nil)
			assert.Equal(t, "alex", ep.ID())
		})
	}
}

func TestProfile_ExampleMatchesBuiltin(t *testing.T) {
	p, err := host.LoadProfile(filepath.Join("..", "..", "configs", "host.v1_12_R1.yaml"))
	require.NoError(t, err)
	assert.Equal(t, v112r1.Runtime{}.DefaultProfile(), v112r1.Runtime{}.DefaultProfile().Merge(p))
}

package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HsiangNianian/AMonItor/bridge/internal/event"
	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

type kind string

func (k kind) Kind() string { return string(k) }

func TestBus_RunsInOrderUntilCancelled(t *testing.T) {
	bus := event.NewBus(nil)
	var calls []string
	observe := func(name string, cancel bool) event.Observer {
		return event.ObserverFunc(func(event.Packet, []host.Endpoint) bool {
			calls = append(calls, name)
			return cancel
		})
	}
	bus.Register(observe("first", false))
	bus.Register(observe("second", true))
	bus.Register(observe("third", false))

	assert.True(t, bus.BeforeSend(kind("explosion"), nil))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestBus_NoObservers(t *testing.T) {
	assert.False(t, event.NewBus(nil).BeforeSend(kind("explosion"), nil))
}

func TestBus_Unregister(t *testing.T) {
	bus := event.NewBus(nil)
	off := bus.Register(event.BlockKinds("explosion"))
	bus.Register(event.ObserverFunc(func(event.Packet, []host.Endpoint) bool { return false }))
	assert.Equal(t, 2, bus.Len())
	assert.True(t, bus.BeforeSend(kind("explosion"), nil))

	off()
	off()
	assert.Equal(t, 1, bus.Len())
	assert.False(t, bus.BeforeSend(kind("explosion"), nil))
}

func TestBlockKinds(t *testing.T) {
	obs := event.BlockKinds("held_item_slot", "entity_destroy")
	assert.True(t, obs.BeforeSend(kind("held_item_slot"), nil))
	assert.True(t, obs.BeforeSend(kind("entity_destroy"), nil))
	assert.False(t, obs.BeforeSend(kind("explosion"), nil))
}

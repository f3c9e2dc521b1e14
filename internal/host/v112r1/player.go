package v112r1

import "github.com/HsiangNianian/AMonItor/bridge/internal/host"

type NetworkManager struct {
	Channel host.Channel
}

type PlayerConnection struct {
	Manager *NetworkManager
}

type EntityPlayer struct {
	Name         string
	Connection   *PlayerConnection
	SelectedSlot int32
}

type CraftPlayer struct {
	handle *EntityPlayer
}

func NewCraftPlayer(name string, ch host.Channel) *CraftPlayer {
	return &CraftPlayer{handle: &EntityPlayer{
		Name:       name,
		Connection: &PlayerConnection{Manager: &NetworkManager{Channel: ch}},
	}}
}

func (p *CraftPlayer) ID() string { return p.handle.Name }

func (p *CraftPlayer) GetHandle() *EntityPlayer { return p.handle }

func (p *CraftPlayer) HeldItemSlot() int { return int(p.handle.SelectedSlot) }

func (p *CraftPlayer) SetHeldItemSlot(slot int) { p.handle.SelectedSlot = int32(slot) }

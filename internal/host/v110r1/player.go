package v110r1

import "github.com/HsiangNianian/AMonItor/bridge/internal/host"

type NetworkManager struct {
	Channel host.Channel
}

type PlayerConnection struct {
	NetworkManager *NetworkManager
}

type PlayerInventory struct {
	ItemInHandIndex int32
}

type EntityPlayer struct {
	Name             string
	PlayerConnection *PlayerConnection
	Inventory        PlayerInventory
}

// CraftPlayer is the endpoint handle sessions are represented by.
type CraftPlayer struct {
	handle *EntityPlayer
}

func NewCraftPlayer(name string, ch host.Channel) *CraftPlayer {
	return &CraftPlayer{handle: &EntityPlayer{
		Name:             name,
		PlayerConnection: &PlayerConnection{NetworkManager: &NetworkManager{Channel: ch}},
	}}
}

func (p *CraftPlayer) ID() string { return p.handle.Name }

func (p *CraftPlayer) GetHandle() *EntityPlayer { return p.handle }

func (p *CraftPlayer) HeldItemSlot() int { return int(p.handle.Inventory.ItemInHandIndex) }

func (p *CraftPlayer) SetHeldItemSlot(slot int) { p.handle.Inventory.ItemInHandIndex = int32(slot) }

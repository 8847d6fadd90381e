package world

import (
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity is the common record for everything in World State. Exactly one variant payload is set,
// selected by Kind: Player for KindPlayer, Chest for KindChest, neither for KindStructure.
type Entity struct {
	ID    uint32
	Kind  catalogs.EntityKind
	Type  int
	Pos   Vec2
	Angle int

	// Owner is a player id resolved against live World State at use time; 0 means unowned.
	Owner uint32

	// Action marks the entity as changed since the last render flush.
	Action bool

	Player *Player
	Chest  *Chest
}

type Chest struct {
	Contents *ItemStack
}

type Player struct {
	ID        uint32
	SessionID string
	Nickname  string
	Skin      int

	Direction int

	Inventory Inventory
	Hand      int
	Head      int

	Crafting    bool
	craftRecipe int
	craftGen    uint64
	craftTimer  Timer

	IsAttacking bool
	WillAttack  bool
	attackTimer Timer
	attackGen   uint64

	Source catalogs.Source
	Score  int
}

func (p *Player) Info() protocol.PlayerInfo {
	return protocol.PlayerInfo{ID: int(p.ID), Nickname: p.Nickname, Skin: p.Skin}
}

// session is one network connection. player is 0 until the handshake binds it.
type session struct {
	id     string
	out    chan protocol.Packet
	player uint32
	closed bool
}

// ConnectRequest registers a new connection. The world answers on Resp.
type ConnectRequest struct {
	Out  chan protocol.Packet
	Resp chan ConnectResponse
}

type ConnectResponse struct {
	SessionID string
	Rejected  *Rejection
}

// Envelope carries one raw inbound text frame for a session.
type Envelope struct {
	SessionID string
	Raw       []byte
}

type AuditEntry struct {
	Time    int64  `json:"ts"`
	Session string `json:"session,omitempty"`
	Player  uint32 `json:"player,omitempty"`
	Action  string `json:"action"`
	Item    int    `json:"item,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	Entity  uint32 `json:"entity,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

const (
	AuditJoin        = "JOIN"
	AuditLeave       = "LEAVE"
	AuditCraftStart  = "CRAFT_START"
	AuditCraftEnd    = "CRAFT_END"
	AuditCraftCancel = "CRAFT_CANCEL"
	AuditPlace       = "PLACE"
	AuditDeposit     = "CHEST_DEPOSIT"
	AuditWithdraw    = "CHEST_WITHDRAW"
	AuditReject      = "REJECT"
)

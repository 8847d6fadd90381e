package protocol

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// Server -> client text packets: JSON arrays [opcode, fields...].
const (
	OutChat        = 0
	OutLeaderboard = 1
	OutNewPlayer   = 2
	OutHandshake   = 3
	OutMessage     = 4
	OutEntities    = 5
)

// Server -> client binary packets: [opcode byte, payload...], little endian.
const (
	BinInventory   byte = 16
	BinCraftStart  byte = 17
	BinCraftEnd    byte = 18
	BinCraftCancel byte = 19
	BinLocalized   byte = 20
)

// Localized message ids understood by the client.
type Localized uint8

const (
	LocalizedFull Localized = iota
	LocalizedUnknownCommand
)

const (
	MsgServerStarting = "Server is starting!"
	MsgErrorOccurred  = "Error occurred!"
)

// Packet is one outbound frame. A Close packet asks the writer to close the connection
// after everything queued before it has been written.
type Packet struct {
	Binary bool
	Data   []byte
	Close  bool
}

func ClosePacket() Packet { return Packet{Close: true} }

func text(fields ...any) Packet {
	b, err := json.Marshal(fields)
	if err != nil {
		// Only plain values are passed in here.
		panic(err)
	}
	return Packet{Data: b}
}

type PlayerInfo struct {
	ID       int
	Nickname string
	Skin     int
}

type HandshakeResponse struct {
	PlayerID   int
	MaxPlayers int
	Players    []PlayerInfo
	Night      bool
	TimeOfDay  float64
	Seed       int64
}

func HandshakePacket(r HandshakeResponse) Packet {
	players := make([][]any, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, []any{p.ID, p.Nickname, p.Skin})
	}
	return text(OutHandshake, r.PlayerID, r.MaxPlayers, players, r.Night, round3(r.TimeOfDay), r.Seed)
}

func NewPlayerPacket(p PlayerInfo) Packet {
	return text(OutNewPlayer, p.ID, p.Nickname, p.Skin)
}

type LeaderboardEntry struct {
	ID    int
	Score int
}

func LeaderboardPacket(entries []LeaderboardEntry) Packet {
	rows := make([][2]int, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, [2]int{e.ID, e.Score})
	}
	return text(OutLeaderboard, rows)
}

func ChatPacket(fromID int, msg string) Packet { return text(OutChat, fromID, msg) }

func MessagePacket(msg string) Packet { return text(OutMessage, msg) }

type EntityState struct {
	ID          int
	Type        int
	X, Y        float64
	Angle       int
	Owner       int
	ChestItem   int
	ChestAmount int
}

func EntitiesPacket(states []EntityState) Packet {
	rows := make([][8]int, 0, len(states))
	for _, s := range states {
		rows = append(rows, [8]int{s.ID, s.Type, int(math.Round(s.X)), int(math.Round(s.Y)), s.Angle, s.Owner, s.ChestItem, s.ChestAmount})
	}
	return text(OutEntities, rows)
}

func CraftStartPacket(recipeID int) Packet {
	return Packet{Binary: true, Data: binary.LittleEndian.AppendUint16([]byte{BinCraftStart}, uint16(recipeID))}
}

func CraftEndPacket(recipeID int) Packet {
	return Packet{Binary: true, Data: binary.LittleEndian.AppendUint16([]byte{BinCraftEnd}, uint16(recipeID))}
}

func CraftCancelPacket() Packet {
	return Packet{Binary: true, Data: []byte{BinCraftCancel}}
}

func LocalizedPacket(id Localized) Packet {
	return Packet{Binary: true, Data: []byte{BinLocalized, byte(id)}}
}

type Slot struct {
	Item   int
	Amount int
}

// InventoryPacket: [op, hand u16, head u16, n u8, (item u16, amount u16)*n].
func InventoryPacket(hand, head int, slots []Slot) Packet {
	b := make([]byte, 0, 6+4*len(slots))
	b = append(b, BinInventory)
	b = binary.LittleEndian.AppendUint16(b, uint16(hand))
	b = binary.LittleEndian.AppendUint16(b, uint16(head))
	b = append(b, byte(len(slots)))
	for _, s := range slots {
		b = binary.LittleEndian.AppendUint16(b, uint16(s.Item))
		b = binary.LittleEndian.AppendUint16(b, uint16(s.Amount))
	}
	return Packet{Binary: true, Data: b}
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }

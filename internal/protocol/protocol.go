package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Client -> server opcodes. A bound connection sends JSON arrays whose first element is one of these.
const (
	OpChat          = 0
	OpReserved1     = 1
	OpMove          = 2
	OpAngle         = 3
	OpAttack        = 4
	OpEquip         = 5
	OpDropStack     = 6
	OpCraft         = 7
	OpChestDeposit  = 8
	OpChestWithdraw = 9
	OpPlace         = 10
	OpReserved11    = 11
	OpReserved13    = 13
	OpStopAttack    = 14
	OpDropOne       = 28
	OpCancelCraft   = 31
)

var (
	ErrMalformed = errors.New("protocol: malformed message")
	ErrEmpty     = errors.New("protocol: empty message")
)

// Message is one decoded client frame. Exactly one of Handshake/IsOp is meaningful.
type Message struct {
	Handshake *Handshake

	IsOp bool
	Op   int
	Args []json.RawMessage
}

// Decode classifies a text frame by the JSON type of its first element:
// a string starts a handshake, an integer is an opcode, anything else is malformed.
func Decode(b []byte) (Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(parts) == 0 {
		return Message{}, ErrEmpty
	}
	head := bytes.TrimSpace(parts[0])
	if len(head) == 0 {
		return Message{}, ErrMalformed
	}
	switch {
	case head[0] == '"':
		hs, err := decodeHandshake(parts)
		if err != nil {
			return Message{}, err
		}
		return Message{Handshake: &hs}, nil
	case head[0] == '-' || (head[0] >= '0' && head[0] <= '9'):
		var f float64
		if err := json.Unmarshal(head, &f); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
			return Message{}, fmt.Errorf("%w: opcode %v", ErrMalformed, f)
		}
		return Message{IsOp: true, Op: int(f), Args: parts[1:]}, nil
	default:
		return Message{}, fmt.Errorf("%w: first field is %s", ErrMalformed, string(head))
	}
}

// Int returns argument i (0-based, after the opcode) as an integer.
func (m Message) Int(i int) (int, error) {
	if i < 0 || i >= len(m.Args) {
		return 0, fmt.Errorf("%w: op %d missing arg %d", ErrMalformed, m.Op, i)
	}
	var f float64
	if err := json.Unmarshal(m.Args[i], &f); err != nil {
		return 0, fmt.Errorf("%w: op %d arg %d: %v", ErrMalformed, m.Op, i, err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: op %d arg %d not an integer", ErrMalformed, m.Op, i)
	}
	return int(f), nil
}

func (m Message) Text(i int) (string, error) {
	if i < 0 || i >= len(m.Args) {
		return "", fmt.Errorf("%w: op %d missing arg %d", ErrMalformed, m.Op, i)
	}
	var s string
	if err := json.Unmarshal(m.Args[i], &s); err != nil {
		return "", fmt.Errorf("%w: op %d arg %d: %v", ErrMalformed, m.Op, i, err)
	}
	return s, nil
}

// Handshake is the unbound client's first frame: [version, nickname, skin].
type Handshake struct {
	ClientVersion string
	Nickname      string
	Skin          int
}

func decodeHandshake(parts []json.RawMessage) (Handshake, error) {
	var hs Handshake
	if err := json.Unmarshal(parts[0], &hs.ClientVersion); err != nil {
		return hs, fmt.Errorf("%w: handshake version: %v", ErrMalformed, err)
	}
	if len(parts) > 1 {
		// cosmetic fields are best effort
		_ = json.Unmarshal(parts[1], &hs.Nickname)
	}
	if len(parts) > 2 {
		var skin float64
		if err := json.Unmarshal(parts[2], &skin); err == nil && skin >= 0 && skin <= math.MaxUint8 {
			hs.Skin = int(skin)
		}
	}
	return hs, nil
}

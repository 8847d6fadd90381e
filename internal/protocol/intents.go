package protocol

// Typed payloads for the opcodes that carry arguments.

type Chat struct{ Text string }

func (m Message) Chat() (Chat, error) {
	s, err := m.Text(0)
	return Chat{Text: s}, err
}

// Move.Direction is the client's key bitmask (left/right/down/up).
type Move struct{ Direction int }

func (m Message) Move() (Move, error) {
	d, err := m.Int(0)
	return Move{Direction: d}, err
}

// Angle is a binary angle in [0, 255].
func (m Message) Angle() (int, error) {
	a, err := m.Int(0)
	if err != nil {
		return 0, err
	}
	return a & 0xff, nil
}

func (m Message) ItemID() (int, error) { return m.Int(0) }

func (m Message) RecipeID() (int, error) { return m.Int(0) }

type ChestDeposit struct {
	Item   int
	Amount int
	Owner  int
	Entity int
}

func (m Message) ChestDeposit() (ChestDeposit, error) {
	var (
		d   ChestDeposit
		err error
	)
	if d.Item, err = m.Int(0); err != nil {
		return d, err
	}
	if d.Amount, err = m.Int(1); err != nil {
		return d, err
	}
	if d.Owner, err = m.Int(2); err != nil {
		return d, err
	}
	d.Entity, err = m.Int(3)
	return d, err
}

type ChestWithdraw struct {
	Owner  int
	Entity int
}

func (m Message) ChestWithdraw() (ChestWithdraw, error) {
	var (
		w   ChestWithdraw
		err error
	)
	if w.Owner, err = m.Int(0); err != nil {
		return w, err
	}
	w.Entity, err = m.Int(1)
	return w, err
}

type Place struct {
	Item  int
	Angle int
}

func (m Message) Place() (Place, error) {
	var (
		p   Place
		err error
	)
	if p.Item, err = m.Int(0); err != nil {
		return p, err
	}
	a, err := m.Int(1)
	p.Angle = a & 0xff
	return p, err
}

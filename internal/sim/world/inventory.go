package world

import "privatestarving.io/internal/protocol"

type ItemStack struct {
	Item   int
	Amount int
}

// Inventory is an ordered list of stacks with at most one stack per item id.
// Amounts are always >= 1; a removal that reaches zero deletes the slot.
type Inventory struct {
	Slots []ItemStack
}

func (inv *Inventory) index(item int) int {
	for i, s := range inv.Slots {
		if s.Item == item {
			return i
		}
	}
	return -1
}

func (inv *Inventory) Count(item int) int {
	if i := inv.index(item); i >= 0 {
		return inv.Slots[i].Amount
	}
	return 0
}

func (inv *Inventory) Contains(item, amount int) bool {
	return amount > 0 && inv.Count(item) >= amount
}

// CanAdd reports whether amount of item fits without exceeding stackLimit or maxSlots.
func (inv *Inventory) CanAdd(item, amount, stackLimit, maxSlots int) bool {
	if amount <= 0 {
		return false
	}
	if i := inv.index(item); i >= 0 {
		return inv.Slots[i].Amount+amount <= stackLimit
	}
	return len(inv.Slots) < maxSlots && amount <= stackLimit
}

// Add merges into the existing stack or appends a new slot. Callers check CanAdd first.
func (inv *Inventory) Add(item, amount int) {
	if amount <= 0 {
		return
	}
	if i := inv.index(item); i >= 0 {
		inv.Slots[i].Amount += amount
		return
	}
	inv.Slots = append(inv.Slots, ItemStack{Item: item, Amount: amount})
}

// Remove takes amount units of item. Callers check Contains first; the amount is clamped to what is held.
// It returns the number of units removed.
func (inv *Inventory) Remove(item, amount int) int {
	i := inv.index(item)
	if i < 0 || amount <= 0 {
		return 0
	}
	s := &inv.Slots[i]
	if amount >= s.Amount {
		n := s.Amount
		inv.Slots = append(inv.Slots[:i], inv.Slots[i+1:]...)
		return n
	}
	s.Amount -= amount
	return amount
}

func (inv *Inventory) RemoveOne(item int) int { return inv.Remove(item, 1) }

func (inv *Inventory) RemoveAll(item int) int { return inv.Remove(item, inv.Count(item)) }

func (inv *Inventory) Clone() Inventory {
	return Inventory{Slots: append([]ItemStack(nil), inv.Slots...)}
}

func (inv *Inventory) wire() []protocol.Slot {
	out := make([]protocol.Slot, 0, len(inv.Slots))
	for _, s := range inv.Slots {
		out = append(out, protocol.Slot{Item: s.Item, Amount: s.Amount})
	}
	return out
}

package world

import (
	"testing"
	"time"

	"privatestarving.io/internal/config"
	"privatestarving.io/internal/protocol"
)

const (
	itemWood      = 7
	itemStone     = 8
	itemWoodWall  = 40
	itemFire      = 41
	itemChest     = 43
	itemMeat      = 45
	itemCooked    = 44
	itemWell      = 48
	itemSpear     = 26
	itemHelm      = 102
	recipeWall    = 1
	recipeCooked  = 5
	recipeChest   = 4
	wallCraftTime = 500 * time.Millisecond
)

func TestCraft_WoodWallScenario(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 5)
	drain(c)

	tw.send(c, protocol.OpCraft, recipeWall)
	p := tw.player(c)
	if p.Inventory.Count(itemWood) != 0 || !p.Crafting {
		t.Fatalf("after start: wood=%d crafting=%v", p.Inventory.Count(itemWood), p.Crafting)
	}
	if !hasBinary(drain(c), protocol.BinCraftStart) {
		t.Fatalf("no craft start notice")
	}

	tw.advance(wallCraftTime - time.Millisecond)
	if p.Inventory.Count(itemWoodWall) != 0 || !p.Crafting {
		t.Fatalf("granted early")
	}
	tw.advance(time.Millisecond)
	if p.Inventory.Count(itemWoodWall) != 1 || p.Crafting {
		t.Fatalf("after delay: walls=%d crafting=%v", p.Inventory.Count(itemWoodWall), p.Crafting)
	}
	if !hasBinary(drain(c), protocol.BinCraftEnd) {
		t.Fatalf("no craft end notice")
	}

	tw.advance(10 * time.Second)
	if p.Inventory.Count(itemWoodWall) != 1 {
		t.Fatalf("result granted more than once")
	}
}

func TestCraft_RejectedStartsAreNoops(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	p := tw.player(c)

	// Insufficient ingredients.
	tw.w.DebugAddInventory(c.player, itemWood, 4)
	before := inventorySnapshot(p)
	tw.send(c, protocol.OpCraft, recipeWall)
	if p.Crafting || !sameStacks(inventorySnapshot(p), before) {
		t.Fatalf("craft with 4/5 wood changed state")
	}

	// Unknown recipe and malformed payload.
	tw.send(c, protocol.OpCraft, 999)
	tw.send(c, protocol.OpCraft, "one")
	tw.send(c, protocol.OpCraft)
	if p.Crafting || !sameStacks(inventorySnapshot(p), before) {
		t.Fatalf("bad recipe changed state")
	}

	// Missing workbench.
	tw.w.DebugAddInventory(c.player, itemWood, 30)
	before = inventorySnapshot(p)
	tw.send(c, protocol.OpCraft, recipeChest)
	if p.Crafting || !sameStacks(inventorySnapshot(p), before) {
		t.Fatalf("workbench recipe started without a workbench")
	}

	// Already crafting.
	tw.send(c, protocol.OpCraft, recipeWall)
	if !p.Crafting {
		t.Fatalf("valid craft did not start")
	}
	before = inventorySnapshot(p)
	tw.send(c, protocol.OpCraft, recipeWall)
	if !sameStacks(inventorySnapshot(p), before) {
		t.Fatalf("second craft while crafting deducted ingredients")
	}
	if n := tw.sched.Pending(); n != 1 {
		t.Fatalf("pending timers=%d want=1", n)
	}
}

func TestCraft_CancelNeverGrants(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 5)
	p := tw.player(c)
	drain(c)

	tw.send(c, protocol.OpCancelCraft)
	if len(drain(c)) != 0 {
		t.Fatalf("cancel while idle produced output")
	}

	tw.send(c, protocol.OpCraft, recipeWall)
	tw.advance(wallCraftTime / 2)
	tw.send(c, protocol.OpCancelCraft)
	if p.Crafting {
		t.Fatalf("cancel did not clear crafting")
	}
	if !hasBinary(drain(c), protocol.BinCraftCancel) {
		t.Fatalf("no cancel notice")
	}
	tw.advance(time.Minute)
	if p.Inventory.Count(itemWoodWall) != 0 || p.Inventory.Count(itemWood) != 0 {
		t.Fatalf("cancelled craft granted or refunded: %+v", p.Inventory.Slots)
	}
}

func TestCraft_StaleFireAfterCancelAndRestartIsIgnored(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 10)
	p := tw.player(c)

	tw.send(c, protocol.OpCraft, recipeWall)
	staleGen := p.craftGen
	tw.send(c, protocol.OpCancelCraft)
	tw.send(c, protocol.OpCraft, recipeWall)

	// A completion queued for the first craft must not finish the second one.
	tw.w.handleFire(timerFire{kind: timerCraft, player: p.ID, gen: staleGen})
	if !p.Crafting || p.Inventory.Count(itemWoodWall) != 0 {
		t.Fatalf("stale fire completed the new craft")
	}
	tw.advance(wallCraftTime)
	if p.Inventory.Count(itemWoodWall) != 1 {
		t.Fatalf("walls=%d want=1", p.Inventory.Count(itemWoodWall))
	}
}

func TestCraft_RequiresNearbySource(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemMeat, 1)
	tw.w.DebugAddInventory(c.player, itemFire, 1)
	p := tw.player(c)

	tw.send(c, protocol.OpCraft, recipeCooked)
	if p.Crafting {
		t.Fatalf("fire recipe started without a fire")
	}

	tw.send(c, protocol.OpPlace, itemFire, 0)
	tw.send(c, protocol.OpCraft, recipeCooked)
	if !p.Crafting {
		t.Fatalf("fire recipe did not start next to a fire")
	}
	tw.advance(250 * time.Millisecond)
	if p.Inventory.Count(itemCooked) != 1 {
		t.Fatalf("cooked=%d", p.Inventory.Count(itemCooked))
	}

	// Walk away from the fire.
	tw.w.DebugAddInventory(c.player, itemMeat, 1)
	pos := tw.w.entities[p.ID].Pos
	tw.w.DebugSetPos(p.ID, Vec2{X: pos.X + 1000, Y: pos.Y})
	tw.send(c, protocol.OpCraft, recipeCooked)
	if p.Crafting {
		t.Fatalf("fire recipe started far from the fire")
	}
}

func TestCraft_CompletionWithoutRoomEndsAsCancel(t *testing.T) {
	tw := newTestWorld(t, func(c *config.Config) { c.InventorySlots = 4 })
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 5)
	p := tw.player(c)
	drain(c)

	tw.send(c, protocol.OpCraft, recipeWall)
	if !p.Crafting {
		t.Fatalf("craft did not start")
	}
	// Fill the last free slot while crafting.
	tw.w.DebugAddInventory(c.player, itemStone, 1)
	tw.advance(wallCraftTime)
	if p.Crafting || p.Inventory.Count(itemWoodWall) != 0 {
		t.Fatalf("crafting=%v walls=%d", p.Crafting, p.Inventory.Count(itemWoodWall))
	}
	if !hasBinary(drain(c), protocol.BinCraftCancel) {
		t.Fatalf("no cancel notice")
	}
}

func TestCraft_StartRejectedWhenResultCannotFit(t *testing.T) {
	tw := newTestWorld(t, func(c *config.Config) { c.InventorySlots = 5 })
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 10)
	tw.w.DebugAddInventory(c.player, itemStone, 1)
	p := tw.player(c)
	before := inventorySnapshot(p)

	tw.send(c, protocol.OpCraft, recipeWall)
	if p.Crafting || !sameStacks(inventorySnapshot(p), before) {
		t.Fatalf("craft started with no room for the result")
	}
}

package game

import (
	"fmt"

	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// TradeState tracks the two-party confirmation machine.
type TradeState int

const (
	TradeInitiated TradeState = iota
	TradeProposed
	TradeAccepted
	TradeRejected
	TradeCancelled
)

// Trade is one pending exchange between two sessions. Both parties must
// confirm the exact offered sets before the swap; changing an offer clears
// both confirmations.
type Trade struct {
	A, B           string // session ids
	OfferA, OfferB []string
	ConfirmA       bool
	ConfirmB       bool
	State          TradeState
}

// NewTrade opens a trade between two sessions.
func NewTrade(a, b string) *Trade {
	return &Trade{A: a, B: b, State: TradeInitiated}
}

// Involves reports whether the session is a party to this trade.
func (t *Trade) Involves(sid string) bool { return sid == t.A || sid == t.B }

// other returns the counterparty session.
func (t *Trade) other(sid string) string {
	if sid == t.A {
		return t.B
	}
	return t.A
}

// Offer adds an object (by UUID, already validated to be in the offering
// party's inventory) to that party's side. Any change reopens confirmation.
func (t *Trade) Offer(sid, objUUID string) error {
	if t.State == TradeCancelled || t.State == TradeRejected || t.State == TradeAccepted {
		return fmt.Errorf("this trade is closed")
	}
	if sid == t.A {
		t.OfferA = append(t.OfferA, objUUID)
	} else {
		t.OfferB = append(t.OfferB, objUUID)
	}
	t.ConfirmA, t.ConfirmB = false, false
	t.State = TradeProposed
	return nil
}

// Confirm marks one party's agreement to the current sets.
func (t *Trade) Confirm(sid string) {
	if sid == t.A {
		t.ConfirmA = true
	} else {
		t.ConfirmB = true
	}
}

// Ready reports whether both parties have confirmed a proposed trade.
func (t *Trade) Ready() bool {
	return t.State == TradeProposed && t.ConfirmA && t.ConfirmB
}

// Cancel closes the trade without exchange.
func (t *Trade) Cancel() { t.State = TradeCancelled }

// Reject closes the trade as refused by one party.
func (t *Trade) Reject() { t.State = TradeRejected }

// ExecuteTrade performs the swap atomically: every offered object leaves
// its owner and lands in the counterparty's inventory, or nothing moves
// at all.
func ExecuteTrade(w *world.World, t *Trade) service.Result {
	if !t.Ready() {
		return service.Fail("Both sides must confirm the trade first.")
	}
	pa, pb := w.Players[t.A], w.Players[t.B]
	if pa == nil || pb == nil {
		t.Cancel()
		return service.Fail("The other trader is gone.")
	}

	// Snapshot both inventories so any constraint failure unwinds cleanly.
	backupA, backupB := pa.Sheet.Inventory, pb.Sheet.Inventory

	giveA, err := extractAll(&pa.Sheet.Inventory, t.OfferA)
	if err == nil {
		var giveB []*world.Object
		giveB, err = extractAll(&pb.Sheet.Inventory, t.OfferB)
		if err == nil {
			err = placeAll(&pb.Sheet.Inventory, giveA)
			if err == nil {
				err = placeAll(&pa.Sheet.Inventory, giveB)
			}
		}
	}
	if err != nil {
		pa.Sheet.Inventory, pb.Sheet.Inventory = backupA, backupB
		restoreStowTags(&pa.Sheet.Inventory)
		restoreStowTags(&pb.Sheet.Inventory)
		t.Cancel()
		return service.Fail(fmt.Sprintf("The trade falls through: %v. Nothing changed hands.", err))
	}

	reassignOwners(pa)
	reassignOwners(pb)
	t.State = TradeAccepted

	r := service.OKText("The trade is done. Check your belongings.")
	return r.WithEmit(service.System(fmt.Sprintf("You traded with [b]%s[/b].", pb.Sheet.DisplayName)))
}

func extractAll(inv *world.Inventory, uuids []string) ([]*world.Object, error) {
	var out []*world.Object
	for _, id := range uuids {
		idx := inv.FindByUUID(id)
		if idx < 0 {
			return nil, fmt.Errorf("an offered item is no longer held")
		}
		out = append(out, inv.Remove(idx))
	}
	return out, nil
}

func placeAll(inv *world.Inventory, objs []*world.Object) error {
	for _, o := range objs {
		if inv.PlaceAuto(o) < 0 {
			return fmt.Errorf("no room for the %s", o.DisplayName)
		}
	}
	return nil
}

// restoreStowTags re-normalizes the stowed marker after a snapshot restore,
// since extraction may have toggled tags on objects the restore re-seated.
func restoreStowTags(inv *world.Inventory) {
	for i, o := range inv {
		if o == nil {
			continue
		}
		if i <= world.SlotRightHand {
			o.RemoveTag(world.TagStowed)
		} else {
			o.AddTag(world.TagStowed)
		}
	}
}

func reassignOwners(p *world.Player) {
	for _, o := range p.Sheet.Inventory.Objects() {
		o.OwnerUserID = p.UserID
	}
}

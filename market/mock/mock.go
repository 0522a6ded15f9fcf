// Package mock provides in-memory stand-ins for the external collaborators
// of the marketplace engine: the asset registry and the value ledger. They
// back the unit and integration tests and the simnet daemon.
package mock

import (
	"context"
	"sync"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/tradepost-labs/tradepost/market"
)

type assetKey struct {
	collection address.Address
	asset      market.AssetID
}

// Transfer records one executed custody movement.
type Transfer struct {
	Collection address.Address
	Asset      market.AssetID
	From       address.Address
	To         address.Address
}

// Registry is an in-memory market.AssetRegistry.
type Registry struct {
	lk sync.Mutex

	owners    map[assetKey]address.Address
	operators map[[2]address.Address]bool // owner, operator
	approved  map[assetKey]address.Address

	transfers []Transfer

	// OnTransfer, when set, runs before a transfer applies; returning an
	// error rejects the transfer. It runs unlocked, so tests can use it to
	// re-enter the engine from inside a custody movement.
	OnTransfer func(collection address.Address, asset market.AssetID, from, to address.Address) error
}

var _ market.AssetRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		owners:    make(map[assetKey]address.Address),
		operators: make(map[[2]address.Address]bool),
		approved:  make(map[assetKey]address.Address),
	}
}

// Mint creates the asset with the given owner.
func (r *Registry) Mint(collection address.Address, asset market.AssetID, owner address.Address) {
	r.lk.Lock()
	defer r.lk.Unlock()

	r.owners[assetKey{collection, asset}] = owner
}

// Approve grants operator per-asset transfer approval. The approval clears
// on the next transfer of the asset.
func (r *Registry) Approve(collection address.Address, asset market.AssetID, operator address.Address) {
	r.lk.Lock()
	defer r.lk.Unlock()

	r.approved[assetKey{collection, asset}] = operator
}

// SetApprovalForAll grants or revokes operator blanket approval over all of
// owner's assets.
func (r *Registry) SetApprovalForAll(owner, operator address.Address, approved bool) {
	r.lk.Lock()
	defer r.lk.Unlock()

	if approved {
		r.operators[[2]address.Address{owner, operator}] = true
	} else {
		delete(r.operators, [2]address.Address{owner, operator})
	}
}

// Transfers returns a copy of the executed transfer log.
func (r *Registry) Transfers() []Transfer {
	r.lk.Lock()
	defer r.lk.Unlock()

	out := make([]Transfer, len(r.transfers))
	copy(out, r.transfers)
	return out
}

func (r *Registry) OwnerOf(ctx context.Context, collection address.Address, asset market.AssetID) (address.Address, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	owner, ok := r.owners[assetKey{collection, asset}]
	if !ok {
		return address.Undef, xerrors.Errorf("unknown asset %d in collection %s", asset, collection)
	}
	return owner, nil
}

func (r *Registry) IsApprovedForAll(ctx context.Context, owner, operator address.Address) (bool, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	return r.operators[[2]address.Address{owner, operator}], nil
}

func (r *Registry) GetApproved(ctx context.Context, collection address.Address, asset market.AssetID) (address.Address, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	appr, ok := r.approved[assetKey{collection, asset}]
	if !ok {
		return address.Undef, nil
	}
	return appr, nil
}

func (r *Registry) Transfer(ctx context.Context, collection address.Address, asset market.AssetID, from, to address.Address) error {
	if hook := r.OnTransfer; hook != nil {
		if err := hook(collection, asset, from, to); err != nil {
			return err
		}
	}

	r.lk.Lock()
	defer r.lk.Unlock()

	key := assetKey{collection, asset}
	owner, ok := r.owners[key]
	if !ok {
		return xerrors.Errorf("unknown asset %d in collection %s", asset, collection)
	}
	if owner != from {
		return xerrors.Errorf("%s does not hold asset %d in collection %s", from, asset, collection)
	}

	r.owners[key] = to
	delete(r.approved, key) // per-asset approval does not survive a transfer
	r.transfers = append(r.transfers, Transfer{Collection: collection, Asset: asset, From: from, To: to})
	return nil
}

// Credit records one executed value movement out of the marketplace.
type Credit struct {
	To     address.Address
	Amount abi.TokenAmount
}

// Ledger is an in-memory market.ValueLedger.
type Ledger struct {
	lk sync.Mutex

	credits []Credit
	rejects map[address.Address]error

	// OnTransfer, when set, runs before a transfer applies; returning an
	// error rejects the transfer. It runs unlocked, so tests can use it to
	// re-enter the engine from inside a payout.
	OnTransfer func(to address.Address, amt abi.TokenAmount) error
}

var _ market.ValueLedger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		rejects: make(map[address.Address]error),
	}
}

// RejectFunds makes every transfer to addr fail with err, simulating a
// recipient that refuses funds.
func (l *Ledger) RejectFunds(addr address.Address, err error) {
	l.lk.Lock()
	defer l.lk.Unlock()

	l.rejects[addr] = err
}

// Credits returns a copy of the executed payout log.
func (l *Ledger) Credits() []Credit {
	l.lk.Lock()
	defer l.lk.Unlock()

	out := make([]Credit, len(l.credits))
	copy(out, l.credits)
	return out
}

// Balance sums all credits paid to addr.
func (l *Ledger) Balance(addr address.Address) abi.TokenAmount {
	l.lk.Lock()
	defer l.lk.Unlock()

	sum := big.Zero()
	for _, c := range l.credits {
		if c.To == addr {
			sum = big.Add(sum, c.Amount)
		}
	}
	return sum
}

func (l *Ledger) TransferValue(ctx context.Context, to address.Address, amt abi.TokenAmount) error {
	if hook := l.OnTransfer; hook != nil {
		if err := hook(to, amt); err != nil {
			return err
		}
	}

	l.lk.Lock()
	defer l.lk.Unlock()

	if err := l.rejects[to]; err != nil {
		return err
	}

	l.credits = append(l.credits, Credit{To: to, Amount: amt})
	return nil
}

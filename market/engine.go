package market

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hannahhoward/go-pubsub"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/tradepost-labs/tradepost/build"
	"github.com/tradepost-labs/tradepost/journal"
	"github.com/tradepost-labs/tradepost/metrics"
)

var log = logging.Logger("market")

const (
	// MaxFeeBps is the fee governance ceiling: 10%.
	MaxFeeBps = 1000

	// DefaultFeeBps applies until governance sets a rate: 2.5%.
	DefaultFeeBps = 250

	feeDenominator = 10000
)

// AssetRegistry is the external registry holding the assets traded on the
// marketplace. The engine uses it to verify ownership and transfer
// authorization, and to move asset custody.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, collection address.Address, asset AssetID) (address.Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator address.Address) (bool, error)
	// GetApproved returns the identity approved to transfer the single
	// asset, or address.Undef when there is none.
	GetApproved(ctx context.Context, collection address.Address, asset AssetID) (address.Address, error)
	// Transfer moves the asset between identities. It fails if from does not
	// currently hold the asset or authorization is insufficient.
	Transfer(ctx context.Context, collection address.Address, asset AssetID, from, to address.Address) error
}

// ValueLedger is the external substrate that moves value out of the
// marketplace's account. A transfer may fail, e.g. when the recipient
// rejects funds, and then must not have partially applied.
type ValueLedger interface {
	TransferValue(ctx context.Context, to address.Address, amt abi.TokenAmount) error
}

// Addresses are the governance identities of a marketplace.
type Addresses struct {
	// Owner administers the fee rate and sweeps accumulated fees.
	Owner address.Address
	// Beneficiary receives the marketplace's cut of each sale.
	Beneficiary address.Address
	// Escrow is the identity the registry sees as the custody holder of
	// listed assets.
	Escrow address.Address
}

const (
	evtTypeListingListed = iota
	evtTypeListingSold
	evtTypeListingDelisted
	evtTypeFeeChanged
	evtTypeFeesWithdrawn
)

// Engine implements the marketplace state transitions: listing an asset into
// escrow, the atomic settle-on-purchase exchange, and withdrawal. All
// mutating operations execute one at a time; a second mutating call while
// one is in flight, including one made from inside an external transfer
// callback, is rejected with ErrOperationInProgress.
type Engine struct {
	store    *Store
	registry AssetRegistry
	ledger   ValueLedger

	addrs      Addresses
	feeDefault uint64

	// inflight implements the non-reentrancy guard.
	inflight atomic.Bool

	// lk orders reads against the mutating operation in flight.
	lk sync.RWMutex

	events   evtListeners
	journal  journal.Journal
	evtTypes [5]journal.EventType
}

func NewEngine(store *Store, registry AssetRegistry, ledger ValueLedger, j journal.Journal, addrs Addresses) (*Engine, error) {
	if addrs.Owner == address.Undef || addrs.Beneficiary == address.Undef || addrs.Escrow == address.Undef {
		return nil, xerrors.Errorf("all governance addresses must be set")
	}
	if j == nil {
		j = journal.NilJournal()
	}

	return &Engine{
		store:      store,
		registry:   registry,
		ledger:     ledger,
		addrs:      addrs,
		feeDefault: DefaultFeeBps,
		events:     newEvtListeners(),
		journal:    j,
		evtTypes: [...]journal.EventType{
			evtTypeListingListed:   j.RegisterEventType("market", "listed"),
			evtTypeListingSold:     j.RegisterEventType("market", "sold"),
			evtTypeListingDelisted: j.RegisterEventType("market", "delisted"),
			evtTypeFeeChanged:      j.RegisterEventType("market", "fee_changed"),
			evtTypeFeesWithdrawn:   j.RegisterEventType("market", "fees_withdrawn"),
		},
	}, nil
}

// Addresses returns the governance identities the engine was built with.
func (e *Engine) Addresses() Addresses {
	return e.addrs
}

// SubscribeEvents registers cb to receive a ListedEvt, SoldEvt or
// DelistedEvt for every successful state transition. The returned function
// unsubscribes it.
func (e *Engine) SubscribeEvents(cb func(evt interface{})) pubsub.Unsubscribe {
	return e.events.subscribe(cb)
}

// begin flags a mutating operation as in progress. There is no waiting: an
// overlapping call fails deterministically, which is what closes the
// reentrancy window during calls out to the registry and the ledger.
func (e *Engine) begin() (func(), error) {
	if !e.inflight.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	return func() { e.inflight.Store(false) }, nil
}

// List escrows the caller's asset with the marketplace and creates a listing
// offering it at price.
func (e *Engine) List(ctx context.Context, caller, collection address.Address, asset AssetID, price abi.TokenAmount) (ListingID, error) {
	id, err := e.list(ctx, caller, collection, asset, price)
	e.recordFailure(ctx, "list", err)
	return id, err
}

func (e *Engine) list(ctx context.Context, caller, collection address.Address, asset AssetID, price abi.TokenAmount) (ListingID, error) {
	done, err := e.begin()
	if err != nil {
		return 0, err
	}
	defer done()

	if price.Nil() || !price.GreaterThan(big.Zero()) {
		return 0, ErrInvalidPrice
	}

	owner, err := e.registry.OwnerOf(ctx, collection, asset)
	if err != nil {
		return 0, xerrors.Errorf("checking asset owner: %w", err)
	}
	if owner != caller {
		return 0, ErrNotOwner
	}

	approved, err := e.marketApproved(ctx, caller, collection, asset)
	if err != nil {
		return 0, xerrors.Errorf("checking transfer approval: %w", err)
	}
	if !approved {
		return 0, ErrNotApproved
	}

	e.lk.Lock()
	defer e.lk.Unlock()

	id, err := e.store.NextID(ctx)
	if err != nil {
		return 0, err
	}

	l := &Listing{
		ID:         id,
		Collection: collection,
		Asset:      asset,
		Seller:     caller,
		Price:      price,
		CreatedAt:  build.Clock.Now().Unix(),
	}

	if err := e.store.CreateListing(ctx, l); err != nil {
		return 0, err
	}

	// The asset is pulled into escrow only after the record exists; if the
	// registry rejects the pull, the record is removed again. The consumed
	// id is not reissued.
	if err := e.registry.Transfer(ctx, collection, asset, caller, e.addrs.Escrow); err != nil {
		if rerr := e.store.RemoveListing(ctx, id); rerr != nil {
			log.Errorw("failed to unwind listing after rejected custody transfer", "listing", id, "err", rerr)
		}
		return 0, &TransferError{What: "asset", Err: err}
	}

	stats.Record(ctx, metrics.ListingsCreated.M(1))

	evt := ListedEvt{ID: id, Collection: collection, Asset: asset, Seller: caller, Price: price}
	e.journal.RecordEvent(e.evtTypes[evtTypeListingListed], func() interface{} { return evt })
	e.events.fire(evt)

	return id, nil
}

// marketApproved reports whether the registry lets the marketplace move the
// asset, either through blanket operator approval or per-asset approval.
func (e *Engine) marketApproved(ctx context.Context, owner, collection address.Address, asset AssetID) (bool, error) {
	ok, err := e.registry.IsApprovedForAll(ctx, owner, e.addrs.Escrow)
	if err != nil || ok {
		return ok, err
	}

	appr, err := e.registry.GetApproved(ctx, collection, asset)
	if err != nil {
		return false, err
	}
	return appr == e.addrs.Escrow, nil
}

// Buy settles listing id: the caller pays exactly the listing price, custody
// of the asset moves to the caller, the seller receives the price minus the
// marketplace fee, and the fee goes to the beneficiary. A rejected asset or
// seller transfer unwinds the settlement entirely; a beneficiary rejecting
// the fee does not, the fee is retained in the market balance for a later
// sweep.
func (e *Engine) Buy(ctx context.Context, caller address.Address, id ListingID, payment abi.TokenAmount) error {
	err := e.buy(ctx, caller, id, payment)
	e.recordFailure(ctx, "buy", err)
	return err
}

func (e *Engine) buy(ctx context.Context, caller address.Address, id ListingID, payment abi.TokenAmount) error {
	done, err := e.begin()
	if err != nil {
		return err
	}
	defer done()

	e.lk.Lock()
	defer e.lk.Unlock()

	l, err := e.store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if l.Settled {
		return ErrAlreadySettled
	}
	if caller == l.Seller {
		return ErrSelfPurchase
	}
	if payment.Nil() || !payment.Equals(l.Price) {
		return ErrWrongPaymentAmount
	}

	// The rate at this instant governs this settlement; a concurrent SetFee
	// only affects later ones.
	feeBps, err := e.store.FeeBps(ctx, e.feeDefault)
	if err != nil {
		return err
	}
	fee := big.Div(big.Mul(l.Price, big.NewInt(int64(feeBps))), big.NewInt(feeDenominator))
	sellerAmt := big.Sub(l.Price, fee)

	prev := *l
	prevSettled, err := e.store.TotalSettled(ctx)
	if err != nil {
		return err
	}
	prevBal, err := e.store.MarketBalance(ctx)
	if err != nil {
		return err
	}

	// Checks done. All state mutation happens before any external transfer,
	// so a callback re-entering the engine cannot observe or exploit a
	// half-settled listing.
	buyer := caller
	if err := e.store.UpdateListing(ctx, id, func(l *Listing) {
		l.Settled = true
		l.Owner = &buyer
	}); err != nil {
		return err
	}
	if err := e.store.IncrementSettled(ctx); err != nil {
		e.unwindSettlement(ctx, &prev, prevSettled, prevBal)
		return err
	}
	// the payment is in the market's custody until the payouts disburse it
	if err := e.store.SetMarketBalance(ctx, big.Add(prevBal, payment)); err != nil {
		e.unwindSettlement(ctx, &prev, prevSettled, prevBal)
		return err
	}

	// External legs. A rejected asset or seller leg unwinds the whole
	// settlement; custody is handed back with a compensating transfer where
	// one is expressible. The fee leg is handled below.
	if err := e.registry.Transfer(ctx, l.Collection, l.Asset, e.addrs.Escrow, buyer); err != nil {
		e.unwindSettlement(ctx, &prev, prevSettled, prevBal)
		return &TransferError{What: "asset", Err: err}
	}

	if err := e.ledger.TransferValue(ctx, l.Seller, sellerAmt); err != nil {
		if rerr := e.registry.Transfer(ctx, l.Collection, l.Asset, buyer, e.addrs.Escrow); rerr != nil {
			log.Errorw("failed to return custody while unwinding settlement", "listing", id, "err", rerr)
		}
		e.unwindSettlement(ctx, &prev, prevSettled, prevBal)
		return &TransferError{What: "value", Err: err}
	}

	finalBal := prevBal
	if fee.GreaterThan(big.Zero()) {
		if err := e.ledger.TransferValue(ctx, e.addrs.Beneficiary, fee); err != nil {
			// The seller payout is already disbursed and the ledger cannot
			// claw it back, so the settlement stands. The fee stays in the
			// market balance until a WithdrawFees sweep.
			log.Warnw("fee transfer rejected, retaining fee in market balance",
				"listing", id, "fee", fee.String(), "err", err)
			finalBal = big.Add(prevBal, fee)
		}
	}

	if err := e.store.SetMarketBalance(ctx, finalBal); err != nil {
		log.Errorw("failed to settle market balance after disbursement", "listing", id, "err", err)
	}

	stats.Record(ctx, metrics.ListingsSettled.M(1))

	evt := SoldEvt{
		ID:         id,
		Collection: l.Collection,
		Asset:      l.Asset,
		Seller:     l.Seller,
		Buyer:      buyer,
		Price:      l.Price,
		Fee:        fee,
	}
	e.journal.RecordEvent(e.evtTypes[evtTypeListingSold], func() interface{} { return evt })
	e.events.fire(evt)

	return nil
}

// unwindSettlement restores the listing record, the settled counter and the
// market balance to their pre-settlement values.
func (e *Engine) unwindSettlement(ctx context.Context, prev *Listing, prevSettled uint64, prevBal abi.TokenAmount) {
	if err := e.store.UpdateListing(ctx, prev.ID, func(l *Listing) { *l = *prev }); err != nil {
		log.Errorw("failed to unwind listing record", "listing", prev.ID, "err", err)
	}
	if err := e.store.SetTotalSettled(ctx, prevSettled); err != nil {
		log.Errorw("failed to unwind settled counter", "listing", prev.ID, "err", err)
	}
	if err := e.store.SetMarketBalance(ctx, prevBal); err != nil {
		log.Errorw("failed to unwind market balance", "listing", prev.ID, "err", err)
	}
}

// Delist withdraws an unsettled listing: custody of the asset returns to the
// seller and the record is removed entirely. The id stays dead.
func (e *Engine) Delist(ctx context.Context, caller address.Address, id ListingID) error {
	err := e.delist(ctx, caller, id)
	e.recordFailure(ctx, "delist", err)
	return err
}

func (e *Engine) delist(ctx context.Context, caller address.Address, id ListingID) error {
	done, err := e.begin()
	if err != nil {
		return err
	}
	defer done()

	e.lk.Lock()
	defer e.lk.Unlock()

	l, err := e.store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if l.Settled {
		return ErrAlreadySettled
	}
	if caller != l.Seller {
		return ErrNotSeller
	}

	// record removal first, custody transfer after; re-insert on rejection
	if err := e.store.RemoveListing(ctx, id); err != nil {
		return err
	}

	if err := e.registry.Transfer(ctx, l.Collection, l.Asset, e.addrs.Escrow, l.Seller); err != nil {
		if rerr := e.store.CreateListing(ctx, l); rerr != nil {
			log.Errorw("failed to restore listing after rejected custody return", "listing", id, "err", rerr)
		}
		return &TransferError{What: "asset", Err: err}
	}

	stats.Record(ctx, metrics.ListingsDelisted.M(1))

	evt := DelistedEvt{ID: id, Collection: l.Collection, Asset: l.Asset, Seller: l.Seller}
	e.journal.RecordEvent(e.evtTypes[evtTypeListingDelisted], func() interface{} { return evt })
	e.events.fire(evt)

	return nil
}

// SetFee updates the marketplace fee rate, in basis points, applied to
// future settlements. Owner-only; capped at MaxFeeBps.
func (e *Engine) SetFee(ctx context.Context, caller address.Address, bps uint64) error {
	done, err := e.begin()
	if err != nil {
		return err
	}
	defer done()

	if caller != e.addrs.Owner {
		return ErrNotAdmin
	}
	if bps > MaxFeeBps {
		return ErrFeeTooHigh
	}

	e.lk.Lock()
	defer e.lk.Unlock()

	if err := e.store.SetFeeBps(ctx, bps); err != nil {
		return err
	}

	evt := FeeChangedEvt{Bps: bps}
	e.journal.RecordEvent(e.evtTypes[evtTypeFeeChanged], func() interface{} { return evt })
	e.events.fire(evt)

	return nil
}

// WithdrawFees sweeps the marketplace's accumulated undistributed balance to
// the beneficiary and returns the swept amount. Owner-only.
func (e *Engine) WithdrawFees(ctx context.Context, caller address.Address) (abi.TokenAmount, error) {
	done, err := e.begin()
	if err != nil {
		return big.Zero(), err
	}
	defer done()

	if caller != e.addrs.Owner {
		return big.Zero(), ErrNotAdmin
	}

	e.lk.Lock()
	defer e.lk.Unlock()

	bal, err := e.store.MarketBalance(ctx)
	if err != nil {
		return big.Zero(), err
	}
	if !bal.GreaterThan(big.Zero()) {
		return big.Zero(), ErrNothingToWithdraw
	}

	if err := e.store.SetMarketBalance(ctx, big.Zero()); err != nil {
		return big.Zero(), err
	}

	if err := e.ledger.TransferValue(ctx, e.addrs.Beneficiary, bal); err != nil {
		if rerr := e.store.SetMarketBalance(ctx, bal); rerr != nil {
			log.Errorw("failed to restore market balance after rejected sweep", "err", rerr)
		}
		return big.Zero(), &TransferError{What: "value", Err: err}
	}

	evt := FeesWithdrawnEvt{Amount: bal, Beneficiary: e.addrs.Beneficiary}
	e.journal.RecordEvent(e.evtTypes[evtTypeFeesWithdrawn], func() interface{} { return evt })
	e.events.fire(evt)

	return bal, nil
}

func (e *Engine) recordFailure(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(metrics.Operation, op),
		tag.Upsert(metrics.FailureType, string(Kind(err))),
	}, metrics.OperationFailures.M(1))
}

package market

import (
	"context"

	"github.com/filecoin-project/go-address"
)

// Read-only views over the listing store. None of these mutate state, and
// each reflects every transition applied before it ran.

// GetListing returns the record for id, or ErrListingNotFound for ids never
// issued as well as ids whose listing was withdrawn.
func (e *Engine) GetListing(ctx context.Context, id ListingID) (*Listing, error) {
	e.lk.RLock()
	defer e.lk.RUnlock()

	return e.store.GetListing(ctx, id)
}

// AvailableListings returns all unsettled listings, in increasing id order.
func (e *Engine) AvailableListings(ctx context.Context) ([]*Listing, error) {
	e.lk.RLock()
	defer e.lk.RUnlock()

	return e.store.ListListings(ctx, func(l *Listing) bool {
		return l.Available()
	})
}

// ListingsOwnedBy returns the listings bought by who, in increasing id
// order.
func (e *Engine) ListingsOwnedBy(ctx context.Context, who address.Address) ([]*Listing, error) {
	e.lk.RLock()
	defer e.lk.RUnlock()

	return e.store.ListListings(ctx, func(l *Listing) bool {
		return l.Owner != nil && *l.Owner == who
	})
}

// ActiveListingsBySeller returns who's listings that have not sold yet, in
// increasing id order.
func (e *Engine) ActiveListingsBySeller(ctx context.Context, who address.Address) ([]*Listing, error) {
	e.lk.RLock()
	defer e.lk.RUnlock()

	return e.store.ListListings(ctx, func(l *Listing) bool {
		return l.Seller == who && !l.Settled
	})
}

// Stats returns the aggregate counters and the current fee rate.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	e.lk.RLock()
	defer e.lk.RUnlock()

	issued, err := e.store.TotalIssued(ctx)
	if err != nil {
		return nil, err
	}
	settled, err := e.store.TotalSettled(ctx)
	if err != nil {
		return nil, err
	}
	feeBps, err := e.store.FeeBps(ctx, e.feeDefault)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalIssued:    issued,
		TotalSettled:   settled,
		TotalAvailable: issued - settled,
		FeeBps:         feeBps,
	}, nil
}

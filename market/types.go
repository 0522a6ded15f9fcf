package market

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
)

// ListingID identifies a listing. IDs are issued sequentially starting at 1
// and are never reused, not even after a listing is withdrawn.
type ListingID uint64

// AssetID identifies a single asset unit within a collection.
type AssetID uint64

// Listing records one asset offered for sale at a fixed price. The record is
// created when the seller escrows the asset, mutated exactly once on
// settlement, and deleted on withdrawal.
type Listing struct {
	ID         ListingID
	Collection address.Address
	Asset      AssetID
	Seller     address.Address

	// Owner is nil while the listing is unsold, and holds the buyer after
	// settlement.
	Owner *address.Address

	Price   abi.TokenAmount
	Settled bool

	// CreatedAt is the unix time the listing was created, informational only.
	CreatedAt int64
}

// Available reports whether the listing can still be bought.
func (l *Listing) Available() bool {
	return !l.Settled
}

// Stats is a point-in-time summary of marketplace activity.
type Stats struct {
	TotalIssued    uint64
	TotalSettled   uint64
	TotalAvailable uint64
	FeeBps         uint64
}

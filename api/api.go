package api

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/tradepost-labs/tradepost/build"
	"github.com/tradepost-labs/tradepost/market"
)

// APIVersion provides various build-time information
type APIVersion struct {
	Version string

	// APIVersion is a binary encoded semver version of the remote api
	APIVersion build.Version
}

func (v APIVersion) String() string {
	return v.Version
}

// Marketplace is the RPC surface a tradepost daemon exposes.
//
// All mutating operations carry an explicit caller identity: the daemon
// trusts its callers to identify themselves, there is no signature scheme on
// this surface.
type Marketplace interface {
	Version(context.Context) (APIVersion, error)

	// MarketList escrows the caller's asset with the marketplace and offers
	// it at a fixed price, returning the fresh listing id.
	MarketList(ctx context.Context, caller, collection address.Address, asset market.AssetID, price abi.TokenAmount) (market.ListingID, error)

	// MarketBuy settles a listing. Payment must match the listing price
	// exactly.
	MarketBuy(ctx context.Context, caller address.Address, id market.ListingID, payment abi.TokenAmount) error

	// MarketDelist withdraws an unsettled listing and returns the asset to
	// the seller.
	MarketDelist(ctx context.Context, caller address.Address, id market.ListingID) error

	// MarketSetFee updates the marketplace fee rate, in basis points,
	// applied to future settlements. Owner-only.
	MarketSetFee(ctx context.Context, caller address.Address, bps uint64) error

	// MarketWithdrawFees sweeps the accumulated undistributed balance to
	// the beneficiary, returning the swept amount. Owner-only.
	MarketWithdrawFees(ctx context.Context, caller address.Address) (abi.TokenAmount, error)

	MarketGetListing(ctx context.Context, id market.ListingID) (*market.Listing, error)
	MarketAvailableListings(ctx context.Context) ([]*market.Listing, error)
	MarketListingsOwnedBy(ctx context.Context, who address.Address) ([]*market.Listing, error)
	MarketActiveListingsBySeller(ctx context.Context, who address.Address) ([]*market.Listing, error)
	MarketStats(ctx context.Context) (*market.Stats, error)
}

package api

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/tradepost-labs/tradepost/market"
)

// MarketplaceStruct implements Marketplace passing calls to user-provided
// function values.
type MarketplaceStruct struct {
	Internal struct {
		Version func(context.Context) (APIVersion, error)

		MarketList         func(context.Context, address.Address, address.Address, market.AssetID, abi.TokenAmount) (market.ListingID, error)
		MarketBuy          func(context.Context, address.Address, market.ListingID, abi.TokenAmount) error
		MarketDelist       func(context.Context, address.Address, market.ListingID) error
		MarketSetFee       func(context.Context, address.Address, uint64) error
		MarketWithdrawFees func(context.Context, address.Address) (abi.TokenAmount, error)

		MarketGetListing             func(context.Context, market.ListingID) (*market.Listing, error)
		MarketAvailableListings      func(context.Context) ([]*market.Listing, error)
		MarketListingsOwnedBy        func(context.Context, address.Address) ([]*market.Listing, error)
		MarketActiveListingsBySeller func(context.Context, address.Address) ([]*market.Listing, error)
		MarketStats                  func(context.Context) (*market.Stats, error)
	}
}

func (c *MarketplaceStruct) Version(ctx context.Context) (APIVersion, error) {
	return c.Internal.Version(ctx)
}

func (c *MarketplaceStruct) MarketList(ctx context.Context, caller, collection address.Address, asset market.AssetID, price abi.TokenAmount) (market.ListingID, error) {
	return c.Internal.MarketList(ctx, caller, collection, asset, price)
}

func (c *MarketplaceStruct) MarketBuy(ctx context.Context, caller address.Address, id market.ListingID, payment abi.TokenAmount) error {
	return c.Internal.MarketBuy(ctx, caller, id, payment)
}

func (c *MarketplaceStruct) MarketDelist(ctx context.Context, caller address.Address, id market.ListingID) error {
	return c.Internal.MarketDelist(ctx, caller, id)
}

func (c *MarketplaceStruct) MarketSetFee(ctx context.Context, caller address.Address, bps uint64) error {
	return c.Internal.MarketSetFee(ctx, caller, bps)
}

func (c *MarketplaceStruct) MarketWithdrawFees(ctx context.Context, caller address.Address) (abi.TokenAmount, error) {
	return c.Internal.MarketWithdrawFees(ctx, caller)
}

func (c *MarketplaceStruct) MarketGetListing(ctx context.Context, id market.ListingID) (*market.Listing, error) {
	return c.Internal.MarketGetListing(ctx, id)
}

func (c *MarketplaceStruct) MarketAvailableListings(ctx context.Context) ([]*market.Listing, error) {
	return c.Internal.MarketAvailableListings(ctx)
}

func (c *MarketplaceStruct) MarketListingsOwnedBy(ctx context.Context, who address.Address) ([]*market.Listing, error) {
	return c.Internal.MarketListingsOwnedBy(ctx, who)
}

func (c *MarketplaceStruct) MarketActiveListingsBySeller(ctx context.Context, who address.Address) ([]*market.Listing, error) {
	return c.Internal.MarketActiveListingsBySeller(ctx, who)
}

func (c *MarketplaceStruct) MarketStats(ctx context.Context) (*market.Stats, error) {
	return c.Internal.MarketStats(ctx)
}

var _ Marketplace = &MarketplaceStruct{}

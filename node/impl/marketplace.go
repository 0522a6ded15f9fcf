package impl

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/tradepost-labs/tradepost/api"
	"github.com/tradepost-labs/tradepost/build"
	"github.com/tradepost-labs/tradepost/market"
)

var log = logging.Logger("node")

// MarketplaceAPI exposes the marketplace engine over the api.Marketplace
// surface. Assembled via fx.
type MarketplaceAPI struct {
	fx.In

	Engine *market.Engine
}

func (a *MarketplaceAPI) Version(context.Context) (api.APIVersion, error) {
	return api.APIVersion{
		Version:    build.UserVersion(),
		APIVersion: build.MarketplaceAPIVersion,
	}, nil
}

func (a *MarketplaceAPI) MarketList(ctx context.Context, caller, collection address.Address, asset market.AssetID, price abi.TokenAmount) (market.ListingID, error) {
	id, err := a.Engine.List(ctx, caller, collection, asset, price)
	if err != nil {
		log.Debugw("list rejected", "caller", caller, "asset", asset, "err", err)
	}
	return id, err
}

func (a *MarketplaceAPI) MarketBuy(ctx context.Context, caller address.Address, id market.ListingID, payment abi.TokenAmount) error {
	return a.Engine.Buy(ctx, caller, id, payment)
}

func (a *MarketplaceAPI) MarketDelist(ctx context.Context, caller address.Address, id market.ListingID) error {
	return a.Engine.Delist(ctx, caller, id)
}

func (a *MarketplaceAPI) MarketSetFee(ctx context.Context, caller address.Address, bps uint64) error {
	return a.Engine.SetFee(ctx, caller, bps)
}

func (a *MarketplaceAPI) MarketWithdrawFees(ctx context.Context, caller address.Address) (abi.TokenAmount, error) {
	return a.Engine.WithdrawFees(ctx, caller)
}

func (a *MarketplaceAPI) MarketGetListing(ctx context.Context, id market.ListingID) (*market.Listing, error) {
	return a.Engine.GetListing(ctx, id)
}

func (a *MarketplaceAPI) MarketAvailableListings(ctx context.Context) ([]*market.Listing, error) {
	return a.Engine.AvailableListings(ctx)
}

func (a *MarketplaceAPI) MarketListingsOwnedBy(ctx context.Context, who address.Address) ([]*market.Listing, error) {
	return a.Engine.ListingsOwnedBy(ctx, who)
}

func (a *MarketplaceAPI) MarketActiveListingsBySeller(ctx context.Context, who address.Address) ([]*market.Listing, error) {
	return a.Engine.ActiveListingsBySeller(ctx, who)
}

func (a *MarketplaceAPI) MarketStats(ctx context.Context) (*market.Stats, error) {
	return a.Engine.Stats(ctx)
}

var _ api.Marketplace = &MarketplaceAPI{}

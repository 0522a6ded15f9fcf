package itests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/tradepost-labs/tradepost/build"
	"github.com/tradepost-labs/tradepost/itests/kit"
	"github.com/tradepost-labs/tradepost/market"
)

func TestVersionHandshake(t *testing.T) {
	ctx := context.Background()
	n := kit.StartNode(t)

	v, err := n.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, build.UserVersion(), v.Version)
	require.True(t, v.APIVersion.EqMajorMinor(build.MarketplaceAPIVersion))
}

func TestSettlementOverRPC(t *testing.T) {
	ctx := context.Background()
	n := kit.StartNode(t)

	collection := kit.IDAddr(t, 1000)
	seller := kit.IDAddr(t, 200)
	buyer := kit.IDAddr(t, 201)

	n.MintAsset(t, collection, 7, seller)

	id, err := n.MarketList(ctx, seller, collection, 7, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, market.ListingID(1), id)

	// the asset is now in escrow
	holder, err := n.Registry.OwnerOf(ctx, collection, 7)
	require.NoError(t, err)
	require.Equal(t, n.Escrow, holder)

	listings, err := n.MarketAvailableListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, big.NewInt(1000), listings[0].Price)
	require.False(t, listings[0].Settled)

	require.NoError(t, n.MarketBuy(ctx, buyer, id, big.NewInt(1000)))

	// default fee is 250 bps: 1000 splits into 975 + 25
	require.Equal(t, big.NewInt(975), n.Ledger.Balance(seller))
	require.Equal(t, big.NewInt(25), n.Ledger.Balance(n.Beneficiary))

	holder, err = n.Registry.OwnerOf(ctx, collection, 7)
	require.NoError(t, err)
	require.Equal(t, buyer, holder)

	got, err := n.MarketGetListing(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Settled)
	require.NotNil(t, got.Owner)
	require.Equal(t, buyer, *got.Owner)

	owned, err := n.MarketListingsOwnedBy(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	st, err := n.MarketStats(ctx)
	require.NoError(t, err)
	require.Equal(t, &market.Stats{
		TotalIssued:    1,
		TotalSettled:   1,
		TotalAvailable: 0,
		FeeBps:         market.DefaultFeeBps,
	}, st)
}

func TestDelistOverRPC(t *testing.T) {
	ctx := context.Background()
	n := kit.StartNode(t)

	collection := kit.IDAddr(t, 1000)
	seller := kit.IDAddr(t, 200)

	n.MintAsset(t, collection, 1, seller)

	id, err := n.MarketList(ctx, seller, collection, 1, big.NewInt(500))
	require.NoError(t, err)

	active, err := n.MarketActiveListingsBySeller(ctx, seller)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, n.MarketDelist(ctx, seller, id))

	holder, err := n.Registry.OwnerOf(ctx, collection, 1)
	require.NoError(t, err)
	require.Equal(t, seller, holder)

	_, err = n.MarketGetListing(ctx, id)
	require.ErrorContains(t, err, "listing not found")
}

func TestRejectionsSurfaceOverRPC(t *testing.T) {
	ctx := context.Background()
	n := kit.StartNode(t)

	collection := kit.IDAddr(t, 1000)
	seller := kit.IDAddr(t, 200)
	stranger := kit.IDAddr(t, 999)

	n.MintAsset(t, collection, 1, seller)

	// pricing is validated before anything touches the registry
	_, err := n.MarketList(ctx, seller, collection, 1, big.Zero())
	require.ErrorContains(t, err, "price must be greater than zero")

	_, err = n.MarketList(ctx, stranger, collection, 1, big.NewInt(10))
	require.ErrorContains(t, err, "does not own the asset")

	id, err := n.MarketList(ctx, seller, collection, 1, big.NewInt(10))
	require.NoError(t, err)

	err = n.MarketBuy(ctx, seller, id, big.NewInt(10))
	require.ErrorContains(t, err, "cannot buy their own listing")

	err = n.MarketBuy(ctx, stranger, id, big.NewInt(9))
	require.ErrorContains(t, err, "does not match the listing price")

	err = n.MarketDelist(ctx, stranger, id)
	require.ErrorContains(t, err, "not the listing seller")
}

func TestTransferErrorRoundtrip(t *testing.T) {
	ctx := context.Background()
	n := kit.StartNode(t)

	collection := kit.IDAddr(t, 1000)
	seller := kit.IDAddr(t, 200)
	buyer := kit.IDAddr(t, 201)

	n.MintAsset(t, collection, 1, seller)

	id, err := n.MarketList(ctx, seller, collection, 1, big.NewInt(100))
	require.NoError(t, err)

	n.Ledger.RejectFunds(seller, errors.New("account frozen"))

	err = n.MarketBuy(ctx, buyer, id, big.NewInt(100))
	require.Error(t, err)

	// the registered error class survives the JSON-RPC hop
	var te *market.TransferError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "value", te.What)

	// settlement was unwound: the listing is still buyable
	n.Ledger.RejectFunds(seller, nil)
	require.NoError(t, n.MarketBuy(ctx, buyer, id, big.NewInt(100)))
}

func TestFeeGovernanceOverRPC(t *testing.T) {
	ctx := context.Background()
	n := kit.StartNode(t)

	collection := kit.IDAddr(t, 1000)
	seller := kit.IDAddr(t, 200)
	buyer := kit.IDAddr(t, 201)
	stranger := kit.IDAddr(t, 999)

	err := n.MarketSetFee(ctx, stranger, 100)
	require.ErrorContains(t, err, "not the marketplace owner")

	err = n.MarketSetFee(ctx, n.Owner, market.MaxFeeBps+1)
	require.ErrorContains(t, err, "above the allowed maximum")

	require.NoError(t, n.MarketSetFee(ctx, n.Owner, 1000))

	n.MintAsset(t, collection, 1, seller)
	id, err := n.MarketList(ctx, seller, collection, 1, big.NewInt(1000))
	require.NoError(t, err)
	require.NoError(t, n.MarketBuy(ctx, buyer, id, big.NewInt(1000)))

	require.Equal(t, big.NewInt(900), n.Ledger.Balance(seller))
	require.Equal(t, big.NewInt(100), n.Ledger.Balance(n.Beneficiary))

	st, err := n.MarketStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1000, st.FeeBps)

	// nothing is retained after settlement pays out both legs
	_, err = n.MarketWithdrawFees(ctx, n.Owner)
	require.ErrorContains(t, err, "no accumulated balance")
}

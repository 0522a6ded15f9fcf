package market_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/tradepost-labs/tradepost/market"
)

func TestQueryViews(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	other := tAddr(t, 202)
	env.registry.SetApprovalForAll(other, env.escrow, true)

	// seller lists 1, 2, 3; another party lists 4
	for asset := market.AssetID(1); asset <= 3; asset++ {
		env.mintApproved(asset)
		env.list(t, asset, int64(asset)*100)
	}
	env.registry.Mint(env.collection, 4, other)
	id4, err := env.engine.List(ctx, other, env.collection, 4, big.NewInt(400))
	require.NoError(t, err)

	// buyer takes listing 2; seller withdraws listing 3
	require.NoError(t, env.engine.Buy(ctx, env.buyer, 2, big.NewInt(200)))
	require.NoError(t, env.engine.Delist(ctx, env.seller, 3))

	// available: 1 and 4, in id order
	avail, err := env.engine.AvailableListings(ctx)
	require.NoError(t, err)
	require.Len(t, avail, 2)
	require.Equal(t, market.ListingID(1), avail[0].ID)
	require.Equal(t, id4, avail[1].ID)

	// the buyer owns exactly the settled listing
	owned, err := env.engine.ListingsOwnedBy(ctx, env.buyer)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, market.ListingID(2), owned[0].ID)
	require.True(t, owned[0].Settled)

	owned, err = env.engine.ListingsOwnedBy(ctx, env.seller)
	require.NoError(t, err)
	require.Empty(t, owned)

	// active by seller excludes the settled and the withdrawn listing
	active, err := env.engine.ActiveListingsBySeller(ctx, env.seller)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, market.ListingID(1), active[0].ID)

	active, err = env.engine.ActiveListingsBySeller(ctx, other)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, id4, active[0].ID)

	st, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), st.TotalIssued)
	require.Equal(t, uint64(1), st.TotalSettled)
	require.Equal(t, uint64(3), st.TotalAvailable)
	require.Equal(t, uint64(market.DefaultFeeBps), st.FeeBps)
}

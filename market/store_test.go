package market

import (
	"context"
	"testing"

	ds "github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"
)

func testAddr(t *testing.T, id uint64) address.Address {
	a, err := address.NewIDAddress(id)
	require.NoError(t, err)
	return a
}

func TestStoreIDsAreMonotonic(t *testing.T) {
	ctx := context.Background()

	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))

	issued, err := store.TotalIssued(ctx)
	require.NoError(t, err)
	require.Zero(t, issued)

	for want := ListingID(1); want <= 5; want++ {
		id, err := store.NextID(ctx)
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	issued, err = store.TotalIssued(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), issued)
}

func TestStoreListingRoundtrip(t *testing.T) {
	ctx := context.Background()

	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))

	l := &Listing{
		ID:         1,
		Collection: testAddr(t, 1000),
		Asset:      7,
		Seller:     testAddr(t, 100),
		Price:      big.NewInt(1000),
		CreatedAt:  1234567890,
	}

	require.NoError(t, store.CreateListing(ctx, l))

	// creating the same id again should error
	require.Error(t, store.CreateListing(ctx, l))

	got, err := store.GetListing(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, l, got)
	require.Nil(t, got.Owner)
	require.False(t, got.Settled)

	// settlement transition
	buyer := testAddr(t, 101)
	require.NoError(t, store.UpdateListing(ctx, 1, func(l *Listing) {
		l.Settled = true
		l.Owner = &buyer
	}))

	got, err = store.GetListing(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.Settled)
	require.Equal(t, buyer, *got.Owner)

	// removal: the id reads as never created afterwards
	require.NoError(t, store.RemoveListing(ctx, 1))
	_, err = store.GetListing(ctx, 1)
	require.Equal(t, ErrListingNotFound, err)
	require.Equal(t, ErrListingNotFound, store.RemoveListing(ctx, 1))

	// never-issued ids are equally not found
	_, err = store.GetListing(ctx, 42)
	require.Equal(t, ErrListingNotFound, err)
}

func TestStoreListIsInIDOrder(t *testing.T) {
	ctx := context.Background()

	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))

	// insert out of order, past one decimal digit to catch key ordering slip-ups
	for _, id := range []ListingID{11, 3, 1, 12, 2, 7, 10} {
		require.NoError(t, store.CreateListing(ctx, &Listing{
			ID:         id,
			Collection: testAddr(t, 1000),
			Seller:     testAddr(t, 100),
			Price:      big.NewInt(int64(id) * 10),
		}))
	}

	all, err := store.ListListings(ctx, nil)
	require.NoError(t, err)

	var ids []ListingID
	for _, l := range all {
		ids = append(ids, l.ID)
	}
	require.Equal(t, []ListingID{1, 2, 3, 7, 10, 11, 12}, ids)

	// filtered listing keeps the order
	some, err := store.ListListings(ctx, func(l *Listing) bool {
		return l.ID > 3
	})
	require.NoError(t, err)
	require.Len(t, some, 4)
	require.Equal(t, ListingID(7), some[0].ID)
}

func TestStoreCounters(t *testing.T) {
	ctx := context.Background()

	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))

	settled, err := store.TotalSettled(ctx)
	require.NoError(t, err)
	require.Zero(t, settled)

	require.NoError(t, store.IncrementSettled(ctx))
	require.NoError(t, store.IncrementSettled(ctx))

	settled, err = store.TotalSettled(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), settled)

	require.NoError(t, store.SetTotalSettled(ctx, 1))
	settled, err = store.TotalSettled(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), settled)
}

func TestStoreFeeAndBalance(t *testing.T) {
	ctx := context.Background()

	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))

	// unset fee reads as the supplied default
	bps, err := store.FeeBps(ctx, 250)
	require.NoError(t, err)
	require.Equal(t, uint64(250), bps)

	require.NoError(t, store.SetFeeBps(ctx, 100))
	bps, err = store.FeeBps(ctx, 250)
	require.NoError(t, err)
	require.Equal(t, uint64(100), bps)

	bal, err := store.MarketBalance(ctx)
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	require.NoError(t, store.AddBalance(ctx, big.NewInt(500)))
	require.NoError(t, store.AddBalance(ctx, big.NewInt(25)))

	bal, err = store.MarketBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(525), bal)

	require.NoError(t, store.SetMarketBalance(ctx, big.Zero()))
	bal, err = store.MarketBalance(ctx)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

// Package kit provides test helpers booting a full marketplace node and
// dialing it over its JSON-RPC surface.
package kit

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-address"

	"github.com/tradepost-labs/tradepost/api"
	"github.com/tradepost-labs/tradepost/api/client"
	"github.com/tradepost-labs/tradepost/market"
	"github.com/tradepost-labs/tradepost/market/mock"
	"github.com/tradepost-labs/tradepost/node"
	"github.com/tradepost-labs/tradepost/node/config"
)

// TestNode is a marketplace daemon running in-process, exposed over a real
// HTTP JSON-RPC transport, plus handles to the mock clients backing it.
type TestNode struct {
	api.Marketplace

	Registry *mock.Registry
	Ledger   *mock.Ledger

	Owner       address.Address
	Beneficiary address.Address
	Escrow      address.Address
}

// Addr parses s as an address, failing the test on error.
func Addr(t *testing.T, s string) address.Address {
	t.Helper()
	a, err := address.NewFromString(s)
	require.NoError(t, err)
	return a
}

// IDAddr returns the ID address for id.
func IDAddr(t *testing.T, id uint64) address.Address {
	t.Helper()
	a, err := address.NewIDAddress(id)
	require.NoError(t, err)
	return a
}

// StartNode assembles a node with mock registry and ledger clients, serves
// it over an httptest server, and returns an RPC client dialed into it.
// Everything is torn down via t.Cleanup.
func StartNode(t *testing.T) *TestNode {
	ctx := context.Background()

	registry := mock.NewRegistry()
	ledger := mock.NewLedger()

	cfg := config.DefaultMarketplace()

	a, stop, err := node.New(ctx, cfg, node.WithClients(registry, ledger))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, stop(context.Background()))
	})

	handler, err := node.Handler(a)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rpc, closer, err := client.NewMarketplaceRPC(ctx, srv.URL+"/rpc/v0", nil)
	require.NoError(t, err)
	t.Cleanup(closer)

	return &TestNode{
		Marketplace: rpc,

		Registry: registry,
		Ledger:   ledger,

		Owner:       Addr(t, cfg.Market.Owner),
		Beneficiary: Addr(t, cfg.Market.Beneficiary),
		Escrow:      Addr(t, cfg.Market.Escrow),
	}
}

// MintAsset mints an asset to holder and approves the marketplace escrow
// for it, ready to be listed.
func (n *TestNode) MintAsset(t *testing.T, collection address.Address, asset market.AssetID, holder address.Address) {
	t.Helper()
	n.Registry.Mint(collection, asset, holder)
	n.Registry.Approve(collection, asset, n.Escrow)
}

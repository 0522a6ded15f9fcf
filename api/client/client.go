package client

import (
	"context"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/tradepost-labs/tradepost/api"
)

// NewMarketplaceRPC creates a new http jsonrpc client.
func NewMarketplaceRPC(ctx context.Context, addr string, requestHeader http.Header) (api.Marketplace, jsonrpc.ClientCloser, error) {
	var res api.MarketplaceStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Tradepost",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
		jsonrpc.WithErrors(api.RPCErrors),
	)

	return &res, closer, err
}

package api

import (
	"github.com/filecoin-project/go-jsonrpc"

	"github.com/tradepost-labs/tradepost/market"
)

const (
	ETransferFailed = iota + jsonrpc.FirstUserCode
)

// RPCErrors carries the error types that survive the RPC boundary with
// their identity intact; everything else arrives as a plain string error.
var RPCErrors = jsonrpc.NewErrors()

func init() {
	RPCErrors.Register(ETransferFailed, new(*market.TransferError))
}

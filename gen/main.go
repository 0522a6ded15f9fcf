package main

import (
	"fmt"
	"os"

	gen "github.com/whyrusleeping/cbor-gen"

	"github.com/tradepost-labs/tradepost/market"
)

func main() {
	err := gen.WriteTupleEncodersToFile("./market/cbor_gen.go", "market",
		market.Listing{},
	)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

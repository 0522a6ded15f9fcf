package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/tradepost-labs/tradepost/build"
)

var log = logging.Logger("main")

func main() {
	app := &cli.App{
		Name:    "tradepost",
		Usage:   "Fixed-price asset marketplace with escrowed custody",
		Version: build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "RPC endpoint of a running tradepost daemon",
				Value:   "http://127.0.0.1:3453/rpc/v0",
				EnvVars: []string{"TRADEPOST_API"},
			},
		},
		Commands: []*cli.Command{
			daemonCmd,

			listCmd,
			buyCmd,
			delistCmd,
			getCmd,
			listingsCmd,
			ownedCmd,
			sellerCmd,
			statsCmd,
			setFeeCmd,
			withdrawFeesCmd,
			versionCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}

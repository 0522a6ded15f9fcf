package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/tradepost-labs/tradepost/api"
	"github.com/tradepost-labs/tradepost/api/client"
	"github.com/tradepost-labs/tradepost/market"
)

func getAPI(cctx *cli.Context) (api.Marketplace, jsonrpc.ClientCloser, error) {
	return client.NewMarketplaceRPC(cctx.Context, cctx.String("api"), nil)
}

func argAddr(cctx *cli.Context, i int) (address.Address, error) {
	a, err := address.NewFromString(cctx.Args().Get(i))
	if err != nil {
		return address.Undef, xerrors.Errorf("parsing address argument %d: %w", i, err)
	}
	return a, nil
}

func argUint(cctx *cli.Context, i int) (uint64, error) {
	n, err := strconv.ParseUint(cctx.Args().Get(i), 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("parsing numeric argument %d: %w", i, err)
	}
	return n, nil
}

func argAmount(cctx *cli.Context, i int) (big.Int, error) {
	amt, err := big.FromString(cctx.Args().Get(i))
	if err != nil {
		return big.Zero(), xerrors.Errorf("parsing amount argument %d: %w", i, err)
	}
	return amt, nil
}

func printListings(listings []*market.Listing) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCollection\tAsset\tSeller\tPrice\tStatus\tCreated")
	for _, l := range listings {
		status := "available"
		if l.Settled {
			status = fmt.Sprintf("sold to %s", l.Owner)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			l.ID, l.Collection, l.Asset, l.Seller, l.Price, status,
			time.Unix(l.CreatedAt, 0).UTC().Format(time.RFC3339))
	}
	w.Flush() //nolint:errcheck
}

var listCmd = &cli.Command{
	Name:      "list",
	Usage:     "Escrow an asset and offer it at a fixed price",
	ArgsUsage: "<seller> <collection> <assetID> <price>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 4 {
			return xerrors.New("usage: list <seller> <collection> <assetID> <price>")
		}

		seller, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}
		collection, err := argAddr(cctx, 1)
		if err != nil {
			return err
		}
		asset, err := argUint(cctx, 2)
		if err != nil {
			return err
		}
		price, err := argAmount(cctx, 3)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		id, err := a.MarketList(cctx.Context, seller, collection, market.AssetID(asset), price)
		if err != nil {
			return err
		}

		fmt.Printf("listed as %d\n", id)
		return nil
	},
}

var buyCmd = &cli.Command{
	Name:      "buy",
	Usage:     "Buy a listing at its asking price",
	ArgsUsage: "<buyer> <listingID> <payment>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 3 {
			return xerrors.New("usage: buy <buyer> <listingID> <payment>")
		}

		buyer, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}
		id, err := argUint(cctx, 1)
		if err != nil {
			return err
		}
		payment, err := argAmount(cctx, 2)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := a.MarketBuy(cctx.Context, buyer, market.ListingID(id), payment); err != nil {
			return err
		}

		fmt.Printf("listing %d settled\n", id)
		return nil
	},
}

var delistCmd = &cli.Command{
	Name:      "delist",
	Usage:     "Withdraw an unsold listing and reclaim the asset",
	ArgsUsage: "<seller> <listingID>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return xerrors.New("usage: delist <seller> <listingID>")
		}

		seller, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}
		id, err := argUint(cctx, 1)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := a.MarketDelist(cctx.Context, seller, market.ListingID(id)); err != nil {
			return err
		}

		fmt.Printf("listing %d delisted\n", id)
		return nil
	},
}

var getCmd = &cli.Command{
	Name:      "get",
	Usage:     "Print a single listing",
	ArgsUsage: "<listingID>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return xerrors.New("usage: get <listingID>")
		}

		id, err := argUint(cctx, 0)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		l, err := a.MarketGetListing(cctx.Context, market.ListingID(id))
		if err != nil {
			return err
		}

		printListings([]*market.Listing{l})
		return nil
	},
}

var listingsCmd = &cli.Command{
	Name:  "listings",
	Usage: "Print all available listings",
	Action: func(cctx *cli.Context) error {
		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		listings, err := a.MarketAvailableListings(cctx.Context)
		if err != nil {
			return err
		}

		printListings(listings)
		return nil
	},
}

var ownedCmd = &cli.Command{
	Name:      "owned",
	Usage:     "Print settled listings bought by an address",
	ArgsUsage: "<address>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return xerrors.New("usage: owned <address>")
		}

		who, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		listings, err := a.MarketListingsOwnedBy(cctx.Context, who)
		if err != nil {
			return err
		}

		printListings(listings)
		return nil
	},
}

var sellerCmd = &cli.Command{
	Name:      "seller",
	Usage:     "Print an address' active listings",
	ArgsUsage: "<address>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return xerrors.New("usage: seller <address>")
		}

		who, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		listings, err := a.MarketActiveListingsBySeller(cctx.Context, who)
		if err != nil {
			return err
		}

		printListings(listings)
		return nil
	},
}

var statsCmd = &cli.Command{
	Name:  "stats",
	Usage: "Print marketplace totals and the current fee rate",
	Action: func(cctx *cli.Context) error {
		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		st, err := a.MarketStats(cctx.Context)
		if err != nil {
			return err
		}

		fmt.Printf("Issued:    %d\n", st.TotalIssued)
		fmt.Printf("Settled:   %d\n", st.TotalSettled)
		fmt.Printf("Available: %d\n", st.TotalAvailable)
		fmt.Printf("Fee:       %d bps\n", st.FeeBps)
		return nil
	},
}

var setFeeCmd = &cli.Command{
	Name:      "set-fee",
	Usage:     "Update the marketplace fee rate (owner only)",
	ArgsUsage: "<owner> <bps>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return xerrors.New("usage: set-fee <owner> <bps>")
		}

		owner, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}
		bps, err := argUint(cctx, 1)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := a.MarketSetFee(cctx.Context, owner, bps); err != nil {
			return err
		}

		fmt.Printf("fee set to %d bps\n", bps)
		return nil
	},
}

var withdrawFeesCmd = &cli.Command{
	Name:      "withdraw-fees",
	Usage:     "Sweep the accumulated marketplace balance to the beneficiary (owner only)",
	ArgsUsage: "<owner>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return xerrors.New("usage: withdraw-fees <owner>")
		}

		owner, err := argAddr(cctx, 0)
		if err != nil {
			return err
		}

		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		amt, err := a.MarketWithdrawFees(cctx.Context, owner)
		if err != nil {
			return err
		}

		fmt.Printf("swept %s\n", amt)
		return nil
	},
}

var versionCmd = &cli.Command{
	Name:  "version",
	Usage: "Print the daemon's version",
	Action: func(cctx *cli.Context) error {
		a, closer, err := getAPI(cctx)
		if err != nil {
			return err
		}
		defer closer()

		v, err := a.Version(cctx.Context)
		if err != nil {
			return err
		}

		fmt.Printf("Daemon: %s, API: %s\n", v.Version, v.APIVersion)
		return nil
	},
}

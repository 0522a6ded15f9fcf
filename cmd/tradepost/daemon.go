package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	levelds "github.com/ipfs/go-ds-leveldb"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"

	"github.com/tradepost-labs/tradepost/build"
	"github.com/tradepost-labs/tradepost/journal"
	"github.com/tradepost-labs/tradepost/journal/fsjournal"
	"github.com/tradepost-labs/tradepost/market"
	"github.com/tradepost-labs/tradepost/market/mock"
	"github.com/tradepost-labs/tradepost/metrics"
	"github.com/tradepost-labs/tradepost/node"
	"github.com/tradepost-labs/tradepost/node/config"
)

var daemonCmd = &cli.Command{
	Name:  "daemon",
	Usage: "Start a tradepost marketplace daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Usage:   "repo directory holding the datastore, config and journal",
			Value:   "~/.tradepost",
			EnvVars: []string{"TRADEPOST_PATH"},
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "override the configured RPC listen address",
		},
		&cli.StringSliceFlag{
			Name:  "seed-asset",
			Usage: "mint an asset into the simnet registry, as <collection>:<assetID>:<owner> (repeatable)",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, cancel := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		repo, err := homedir.Expand(cctx.String("repo"))
		if err != nil {
			return xerrors.Errorf("expanding repo path: %w", err)
		}
		if err := os.MkdirAll(repo, 0755); err != nil {
			return xerrors.Errorf("creating repo: %w", err)
		}

		cfgPath := filepath.Join(repo, "config.toml")
		cfg, err := config.FromFile(cfgPath, config.DefaultMarketplace())
		if err != nil {
			return xerrors.Errorf("loading config: %w", err)
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := config.WriteFile(cfgPath, cfg); err != nil {
				return xerrors.Errorf("persisting default config: %w", err)
			}
		}
		if addr := cctx.String("listen"); addr != "" {
			cfg.API.ListenAddress = addr
		}

		ds, err := levelds.NewDatastore(filepath.Join(repo, "datastore"), nil)
		if err != nil {
			return xerrors.Errorf("opening datastore: %w", err)
		}
		defer ds.Close() //nolint:errcheck

		jrnl, err := fsjournal.OpenFSJournal(repo, journal.EnvDisabledEvents())
		if err != nil {
			return xerrors.Errorf("opening journal: %w", err)
		}
		journal.J = jrnl

		if err := view.Register(metrics.DefaultViews...); err != nil {
			return xerrors.Errorf("registering metric views: %w", err)
		}
		ctx, _ = tag.New(ctx,
			tag.Insert(metrics.Version, build.BuildVersion),
			tag.Insert(metrics.Commit, build.CurrentCommit),
		)
		stats.Record(ctx, metrics.TradepostInfo.M(1))

		// the daemon runs simnet: mock collaborators stand in for the
		// external registry and ledger
		registry := mock.NewRegistry()
		ledger := mock.NewLedger()
		if err := seedRegistry(cfg, registry, cctx.StringSlice("seed-asset")); err != nil {
			return err
		}

		a, stop, err := node.New(ctx, cfg,
			node.WithDatastore(ds),
			node.WithJournal(jrnl),
			node.WithClients(registry, ledger),
		)
		if err != nil {
			return xerrors.Errorf("assembling node: %w", err)
		}
		defer func() {
			if err := stop(context.Background()); err != nil {
				log.Errorf("shutting down node: %s", err)
			}
		}()

		h, err := node.Handler(a)
		if err != nil {
			return err
		}

		log.Infow("starting marketplace daemon",
			"version", build.UserVersion(),
			"repo", repo,
			"listen", cfg.API.ListenAddress)

		return node.ServeRPC(ctx, h, cfg.API.ListenAddress)
	},
}

// seedRegistry mints the --seed-asset entries and grants the configured
// escrow identity blanket transfer approval for each owner, so the assets
// are listable right away.
func seedRegistry(cfg *config.Marketplace, registry *mock.Registry, seeds []string) error {
	escrow, err := address.NewFromString(cfg.Market.Escrow)
	if err != nil {
		return xerrors.Errorf("parsing Market.Escrow: %w", err)
	}

	for _, seed := range seeds {
		parts := strings.SplitN(seed, ":", 3)
		if len(parts) != 3 {
			return xerrors.Errorf("malformed seed-asset %q, want <collection>:<assetID>:<owner>", seed)
		}

		collection, err := address.NewFromString(parts[0])
		if err != nil {
			return xerrors.Errorf("parsing seed-asset collection %q: %w", parts[0], err)
		}
		asset, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return xerrors.Errorf("parsing seed-asset id %q: %w", parts[1], err)
		}
		owner, err := address.NewFromString(parts[2])
		if err != nil {
			return xerrors.Errorf("parsing seed-asset owner %q: %w", parts[2], err)
		}

		registry.Mint(collection, market.AssetID(asset), owner)
		registry.SetApprovalForAll(owner, escrow, true)
		log.Infow("seeded simnet asset", "collection", collection, "asset", asset, "owner", owner)
	}

	return nil
}

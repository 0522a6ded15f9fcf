package node

import (
	"context"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"

	"github.com/tradepost-labs/tradepost/api"
	"github.com/tradepost-labs/tradepost/journal"
	"github.com/tradepost-labs/tradepost/market"
	"github.com/tradepost-labs/tradepost/market/mock"
	"github.com/tradepost-labs/tradepost/node/config"
	"github.com/tradepost-labs/tradepost/node/impl"
)

var log = logging.Logger("builder")

// StopFunc tears a node down.
type StopFunc func(context.Context) error

// Option customises the collaborators a node is assembled with.
type Option func(*settings)

type settings struct {
	ds       datastore.Batching
	journal  journal.Journal
	registry market.AssetRegistry
	ledger   market.ValueLedger
}

// WithDatastore overrides the default in-memory datastore.
func WithDatastore(ds datastore.Batching) Option {
	return func(s *settings) { s.ds = ds }
}

// WithJournal overrides the default nil journal.
func WithJournal(j journal.Journal) Option {
	return func(s *settings) { s.journal = j }
}

// WithClients overrides the asset registry and value ledger clients the
// engine settles through. Either may be nil to keep its simnet default.
func WithClients(registry market.AssetRegistry, ledger market.ValueLedger) Option {
	return func(s *settings) {
		if registry != nil {
			s.registry = registry
		}
		if ledger != nil {
			s.ledger = ledger
		}
	}
}

// New assembles a marketplace node from cfg and returns its API handle
// together with a StopFunc the caller must invoke on shutdown.
//
// Without overrides the node runs in simnet mode: an in-memory datastore,
// mock registry and ledger clients, and no journal.
func New(ctx context.Context, cfg *config.Marketplace, opts ...Option) (api.Marketplace, StopFunc, error) {
	s := settings{
		ds:      dssync.MutexWrap(datastore.NewMapDatastore()),
		journal: journal.NilJournal(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.registry == nil {
		log.Warnw("no asset registry client configured, using simnet mock")
		s.registry = mock.NewRegistry()
	}
	if s.ledger == nil {
		s.ledger = mock.NewLedger()
	}

	addrs, err := governanceAddrs(cfg)
	if err != nil {
		return nil, nil, err
	}

	var out api.Marketplace

	app := fx.New(
		fx.NopLogger,

		fx.Provide(func() datastore.Batching { return s.ds }),
		fx.Provide(func() journal.Journal { return s.journal }),
		fx.Provide(func() market.AssetRegistry { return s.registry }),
		fx.Provide(func() market.ValueLedger { return s.ledger }),
		fx.Provide(func() market.Addresses { return addrs }),

		fx.Provide(market.NewStore),
		fx.Provide(market.NewEngine),
		fx.Provide(func(a impl.MarketplaceAPI) api.Marketplace { return &a }),

		fx.Invoke(func(lc fx.Lifecycle, j journal.Journal) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return j.Close()
				},
			})
		}),

		fx.Populate(&out),
	)

	if err := app.Start(ctx); err != nil {
		return nil, nil, xerrors.Errorf("starting node: %w", err)
	}

	return out, app.Stop, nil
}

func governanceAddrs(cfg *config.Marketplace) (market.Addresses, error) {
	var addrs market.Addresses
	var err error

	if addrs.Owner, err = address.NewFromString(cfg.Market.Owner); err != nil {
		return market.Addresses{}, xerrors.Errorf("parsing Market.Owner: %w", err)
	}
	if addrs.Beneficiary, err = address.NewFromString(cfg.Market.Beneficiary); err != nil {
		return market.Addresses{}, xerrors.Errorf("parsing Market.Beneficiary: %w", err)
	}
	if addrs.Escrow, err = address.NewFromString(cfg.Market.Escrow); err != nil {
		return market.Addresses{}, xerrors.Errorf("parsing Market.Escrow: %w", err)
	}

	return addrs, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/accounts"
	"github.com/forumchain/forumchain/chain/content"
	"github.com/forumchain/forumchain/chain/custom"
	"github.com/forumchain/forumchain/chain/funds"
	"github.com/forumchain/forumchain/chain/market"
	"github.com/forumchain/forumchain/chain/vesting"
	"github.com/forumchain/forumchain/chain/witness"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/keyvaluedb/boltdb"
	"github.com/forumchain/forumchain/mining"
	"github.com/forumchain/forumchain/node"
	"github.com/forumchain/forumchain/types"
)

const (
	flagProducer      = "producer"
	flagMine          = "mine"
	flagMineWorkers   = "mine-workers"
	flagMetricsAddr   = "metrics-addr"
	flagSnapshotEvery = "snapshot-every"
	flagKeepSnapshots = "keep-snapshots"
)

func newRunCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the block-producing node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunFn(cmd.Context(), base, cmd)
		},
	}
	cmd.Flags().String(flagProducer, "", "account producing blocks and receiving work inclusion rewards")
	cmd.Flags().Bool(flagMine, false, "mine proof of work with the producer account")
	cmd.Flags().Int(flagMineWorkers, 0, "mining worker count, 0 uses all CPUs")
	cmd.Flags().String(flagMetricsAddr, "", "serve prometheus metrics on this address, disabled when not set")
	cmd.Flags().Uint32(flagSnapshotEvery, 100, "persist a ledger snapshot every N blocks")
	cmd.Flags().Int(flagKeepSnapshots, 3, "number of persisted snapshots to keep")
	_ = cmd.MarkFlagRequired(flagProducer)
	return cmd
}

func runRunFn(ctx context.Context, base *baseConfiguration, cmd *cobra.Command) error {
	producerName, err := cmd.Flags().GetString(flagProducer)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagProducer, err)
	}
	mine, err := cmd.Flags().GetBool(flagMine)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagMine, err)
	}
	mineWorkers, err := cmd.Flags().GetInt(flagMineWorkers)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagMineWorkers, err)
	}
	metricsAddr, err := cmd.Flags().GetString(flagMetricsAddr)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagMetricsAddr, err)
	}
	snapshotEvery, err := cmd.Flags().GetUint32(flagSnapshotEvery)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagSnapshotEvery, err)
	}
	keepSnapshots, err := cmd.Flags().GetInt(flagKeepSnapshots)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagKeepSnapshots, err)
	}

	db, err := boltdb.New(base.dbPath())
	if err != nil {
		return fmt.Errorf("opening chain database: %w", err)
	}
	defer func() { _ = db.Close() }()

	snapshots := node.NewSnapshotStore(db)
	store, head, err := snapshots.LoadLatest()
	if err != nil {
		return fmt.Errorf("loading chain state (did you run genesis?): %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	hub := chain.NewNotificationHub(base.observe.Logger(), registry)

	engine, err := chain.NewEngine(store, genesisSchedule(), chainModules(), hub, base.observe)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	var miner *mining.Miner
	if mine {
		miner = mining.New(mineWorkers, base.observe.Logger())
	}
	producer, err := node.NewProducer(node.ProducerConfig{
		Engine:        engine,
		Store:         store,
		Snapshots:     snapshots,
		Account:       types.AccountName(producerName),
		Miner:         miner,
		SnapshotEvery: snapshotEvery,
		KeepSnapshots: keepSnapshots,
	}, base.observe.Logger())
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:    metricsAddr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{MaxRequestsInFlight: 2}),
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error { return producer.Run(ctx, *head) })
	return g.Wait()
}

func chainModules() []chain.Module {
	return []chain.Module{
		accounts.NewModule(),
		funds.NewModule(),
		vesting.NewModule(),
		witness.NewModule(),
		content.NewModule(),
		market.NewModule(),
		custom.NewModule(),
	}
}

// genesisSchedule activates every known hardfork from chain start: a
// fresh chain runs the latest rules from its first block.
func genesisSchedule() *hardfork.Schedule {
	return hardfork.NewSchedule(make([]types.Time, hardfork.Latest))
}

// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakemesh/stakemesh/eventdb"
	"github.com/stakemesh/stakemesh/log"
	"github.com/stakemesh/stakemesh/lvldb"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/metrics"
	"github.com/stakemesh/stakemesh/staking"
	"github.com/stakemesh/stakemesh/staking/types"
)

func initLogger(ctx *cli.Context) {
	log.SetVerbosity(slog.Level(ctx.Int(verbosityFlag.Name)))
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetDefault(log.New(log.NewTextHandler(os.Stderr)))
	} else {
		log.SetDefault(log.New(log.NewJSONHandler(os.Stderr)))
	}
}

// openDatabases opens the state store and history journal under dataDir,
// in-memory variants when dataDir is empty.
func openDatabases(dataDir string) (*lvldb.LevelDB, *eventdb.EventDB, error) {
	if dataDir == "" {
		db, err := lvldb.NewMem()
		if err != nil {
			return nil, nil, err
		}
		journal, err := eventdb.NewMem()
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, journal, nil
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, nil, err
	}
	db, err := lvldb.New(filepath.Join(dataDir, "state.db"), lvldb.Options{})
	if err != nil {
		return nil, nil, err
	}
	journal, err := eventdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, journal, nil
}

func printStartupMessage(ctx *cli.Context, cfg *types.Config, admin mesh.Address) {
	fmt.Printf(`Starting %v
    Version     %v
    Admin       %v
    Bond token  %v
    Tiers       %v
    API portal  http://%v/staking
`,
		"stakemesh",
		fullVersion(),
		admin,
		cfg.BondToken,
		cfg.Tiers,
		ctx.String(apiAddrFlag.Name))
}

// runServices runs the api server, the optional metrics server and the
// distribution loop until an exit signal arrives.
func runServices(ctx *cli.Context, staker *staking.Staker, handler http.HandlerFunc, persist func() error) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(rootCtx)

	apiSrv := &http.Server{Addr: ctx.String(apiAddrFlag.Name), Handler: handler}
	group.Go(func() error {
		logger.Info("api server started", "addr", apiSrv.Addr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping api server...")
		return apiSrv.Shutdown(context.Background())
	})

	if metricsAddr := ctx.String(metricsAddrFlag.Name); metricsAddr != "" {
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: metrics.HTTPHandler()}
		group.Go(func() error {
			logger.Info("metrics server started", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			logger.Info("stopping metrics server...")
			return metricsSrv.Shutdown(context.Background())
		})
	}

	if interval := ctx.Uint64(distributeIntervalFlag.Name); interval > 0 {
		group.Go(func() error {
			return distributeLoop(gctx, staker, persist, time.Duration(interval)*time.Second)
		})
	}

	return group.Wait()
}

// distributeLoop periodically releases unlocked funds of every flow so
// withdrawable balances keep advancing without client traffic.
func distributeLoop(ctx context.Context, staker *staking.Staker, persist func() error, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := uint64(time.Now().Unix())
			assets, err := staker.Flows()
			if err != nil {
				logger.Warn("listing flows failed", "err", err)
				continue
			}
			for _, asset := range assets {
				released, err := staker.DistributeFunds(asset, now)
				if err != nil {
					logger.Warn("distribution failed", "asset", asset, "err", err)
					continue
				}
				if released.Sign() > 0 {
					logger.Info("funds distributed", "asset", asset, "released", released)
				}
			}
			if err := persist(); err != nil {
				logger.Error("state commit failed", "err", err)
				return err
			}
		}
	}
}

// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakemesh/stakemesh/api"
	"github.com/stakemesh/stakemesh/log"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/metrics"
	"github.com/stakemesh/stakemesh/staking"
	"github.com/stakemesh/stakemesh/state"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")

	// ledgerAddr roots the ledger's storage namespace.
	ledgerAddr = mesh.BytesToAddress([]byte("stakemesh-ledger"))
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "stakemesh",
		Usage:   "staking ledger daemon",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			metricsAddrFlag,
			pprofFlag,
			distributeIntervalFlag,
			verbosityFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)

	cfg, admin, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	db, journal, err := openDatabases(ctx.String(dataDirFlag.Name))
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing state database..."); db.Close() }()
	defer func() { logger.Info("closing history database..."); journal.Close() }()

	st := state.New(db)
	staker, err := staking.New(ledgerAddr, st, admin, cfg)
	if err != nil {
		return err
	}

	metricsAddr := ctx.String(metricsAddrFlag.Name)
	if metricsAddr != "" {
		metrics.InitializePrometheusMetrics()
	}

	// Commits hold the ledger lock so they never interleave with an
	// operation in flight.
	persist := func() error {
		return staker.Exclusive(func() error { return st.Commit(db) })
	}

	handler := api.New(staker, journal, nil, persist, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		PprofOn:        ctx.Bool(pprofFlag.Name),
		EnableMetrics:  metricsAddr != "",
	})

	printStartupMessage(ctx, cfg, admin)

	return runServices(ctx, staker, handler, persist)
}

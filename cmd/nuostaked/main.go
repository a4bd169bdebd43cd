// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/nuonetwork/staking/api"
	"github.com/nuonetwork/staking/ledger"
	"github.com/nuonetwork/staking/log"
	"github.com/nuonetwork/staking/metrics"
	"github.com/nuonetwork/staking/nuo"
	"github.com/nuonetwork/staking/staking"
	"github.com/nuonetwork/staking/token"
	"github.com/nuonetwork/staking/vault"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
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
		Version:   fullVersion(),
		Name:      "NuoStaked",
		Usage:     "Token staking ledger daemon",
		Copyright: "2025 NuoNetwork",
		Flags: []cli.Flag{
			dataDirFlag,
			configFlag,
			apiAddrFlag,
			apiCorsFlag,
			enableAPILogsFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
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

	cfg := defaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := loadConfig(path)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	custodyAddr, err := nuo.ParseAddress(cfg.Custody)
	if err != nil {
		fatal(fmt.Sprintf("custody address: %v", err))
	}
	reserveAddr, err := nuo.ParseAddress(cfg.Reserve)
	if err != nil {
		fatal(fmt.Sprintf("reserve address: %v", err))
	}

	vaults, err := cfg.buildVaults()
	if err != nil {
		fatal(err)
	}
	reg, err := vault.NewRegistry(vaults)
	if err != nil {
		fatal(err)
	}

	dataDir := makeDataDir(ctx)
	db := openLedgerDB(dataDir)
	defer func() { logger.Info("closing ledger database..."); db.Close() }()

	led, err := ledger.New(reg, db)
	if err != nil {
		fatal(fmt.Sprintf("replay ledger: %v", err))
	}

	book := token.NewBook()
	for holder, amount := range cfg.Balances {
		addr, err := nuo.ParseAddress(holder)
		if err != nil {
			fatal(fmt.Sprintf("balance holder %q: %v", holder, err))
		}
		n, err := parseAmount(amount)
		if err != nil {
			fatal(fmt.Sprintf("balance of %q: %v", holder, err))
		}
		book.Mint(*addr, n)
	}

	opts := staking.Options{
		HarvestBonusPercent: cfg.HarvestBonusPercent,
		CliffGatesClaim:     cfg.CliffGatesClaim,
	}
	if cfg.MinHarvest != "" {
		n, err := parseAmount(cfg.MinHarvest)
		if err != nil {
			fatal(fmt.Sprintf("minHarvest: %v", err))
		}
		opts.MinHarvest = n
	}

	engine := staking.New(reg, led, token.NewCustody(book, *custodyAddr), *reserveAddr, opts)

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			fatal(fmt.Sprintf("start metrics server: %v", err))
		}
		logger.Info("metrics server started", "url", url)
		defer func() { logger.Info("stopping metrics server..."); closeFunc() }()
	}

	apiHandler := api.New(engine, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	apiURL, closeAPI := startAPIServer(ctx, apiHandler)
	defer func() { logger.Info("stopping API server..."); closeAPI() }()

	printStartupMessage(cfg, dataDir, apiURL, led)

	handleExitSignal()
	return nil
}

func printStartupMessage(cfg *Config, dataDir string, apiURL string, led *ledger.Ledger) {
	fmt.Printf(`Starting %v
    Version      [ %v ]
    Vaults       [ %v ]
    Harvest      [ +%v%% bonus ]
    Stakes       [ %v recorded ]
    Data dir     [ %v ]
    API portal   [ %v ]
`,
		"NuoStaked",
		fullVersion(),
		len(cfg.Vaults),
		cfg.HarvestBonusPercent,
		led.TotalStakes(),
		dataDir,
		apiURL)
}

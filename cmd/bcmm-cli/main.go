package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bcmm/config"
	"bcmm/native/curve"
	"bcmm/observability"
	"bcmm/observability/logging"
	"bcmm/observability/otel"
	statecurve "bcmm/state/curve"
	"bcmm/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	configPath := "bcmm.toml"
	if len(args) >= 2 && args[0] == "--config" {
		configPath = args[1]
		args = args[2:]
	}
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	logger := logging.Setup("bcmm-cli", cfg.Environment)

	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		shutdown, err := otel.Init(context.Background(), "bcmm-cli", cfg.Environment, cfg.Telemetry)
		if err != nil {
			fmt.Fprintf(stderr, "Error initialising telemetry: %v\n", err)
			return 1
		}
		defer shutdown(context.Background())
	}

	db, err := openDatabase(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return 1
	}
	defer db.Close()

	mover := newLedgerMover(db)
	engine := curve.NewEngine()
	engine.SetState(statecurve.NewStore(db))
	engine.SetMover(mover)
	engine.SetEmitter(observability.NewRelay(logger))

	env := &cliEnv{cfg: cfg, db: db, engine: engine, mover: mover}
	switch args[0] {
	case "init-config":
		return runInitConfig(env, args[1:], stdout, stderr)
	case "update-config":
		return runUpdateConfig(env, args[1:], stdout, stderr)
	case "create-pool":
		return runCreatePool(env, args[1:], stdout, stderr)
	case "open-account":
		return runOpenAccount(env, args[1:], stdout, stderr)
	case "close-account":
		return runCloseAccount(env, args[1:], stdout, stderr)
	case "buy":
		return runBuy(env, args[1:], stdout, stderr)
	case "sell":
		return runSell(env, args[1:], stdout, stderr)
	case "burn":
		return runBurn(env, args[1:], stdout, stderr)
	case "topup":
		return runTopup(env, args[1:], stdout, stderr)
	case "claim":
		return runClaim(env, args[1:], stdout, stderr)
	case "allowance":
		return runAllowance(env, args[1:], stdout, stderr)
	case "fund":
		return runFund(env, args[1:], stdout, stderr)
	case "balance":
		return runBalance(env, args[1:], stdout, stderr)
	case "pool":
		return runInspectPool(env, args[1:], stdout, stderr)
	case "platform":
		return runInspectPlatform(env, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

type cliEnv struct {
	cfg    *config.Config
	db     storage.Database
	engine *curve.Engine
	mover  *ledgerMover
}

func openDatabase(dataDir string) (storage.Database, error) {
	if strings.TrimSpace(dataDir) == "" || dataDir == ":memory:" {
		return storage.NewMemDB(), nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return storage.NewLevelDB(filepath.Join(dataDir, "curve"))
}

func usage() string {
	return strings.TrimSpace(`
Usage: bcmm-cli [--config <path>] <command>
Commands:
  init-config     Create a platform configuration
  update-config   Patch an existing platform configuration
  create-pool     Open a pool against a configuration
  open-account    Open a virtual token account in a pool
  close-account   Close an emptied virtual token account
  buy             Swap quote for base tokens
  sell            Swap base tokens back to quote
  burn            Request a rate-limited supply burn
  topup           Run the solvency routine on a pool
  claim           Pay out accrued creator or platform fees
  allowance       Mint or close a burn allowance
  fund            Credit a local quote balance (testing ledger)
  balance         Show a local quote balance
  pool            Inspect a pool record
  platform        Inspect a platform configuration`)
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bcmm/core/types"
	"bcmm/native/curve"
	statecurve "bcmm/state/curve"
)

// tierFlags collects repeated --tier values of the form
// role:burnBpX100[:maxDaily[:authority]] where role is anyone, creator, or
// address.
type tierFlags []curve.BurnTier

func (t *tierFlags) String() string { return fmt.Sprintf("%d tiers", len(*t)) }

func (t *tierFlags) Set(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return fmt.Errorf("tier %q: want role:burnBpX100[:maxDaily[:authority]]", value)
	}
	var tier curve.BurnTier
	switch parts[0] {
	case "anyone":
		tier.Role = curve.BurnRoleAnyone
	case "creator":
		tier.Role = curve.BurnRolePoolCreator
	case "address":
		tier.Role = curve.BurnRoleSpecificAddress
	default:
		return fmt.Errorf("tier %q: unknown role %q", value, parts[0])
	}
	size, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return fmt.Errorf("tier %q: %w", value, err)
	}
	tier.BurnBpX100 = uint32(size)
	if len(parts) >= 3 && parts[2] != "" {
		daily, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return fmt.Errorf("tier %q: %w", value, err)
		}
		tier.MaxDailyBurns = uint16(daily)
	}
	if len(parts) >= 4 && parts[3] != "" {
		authority, err := types.ParseAddress(parts[3])
		if err != nil {
			return fmt.Errorf("tier %q: %w", value, err)
		}
		tier.Authority = authority
	}
	*t = append(*t, tier)
	return nil
}

func printJSON(stdout io.Writer, value interface{}) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fmt.Fprintf(stdout, "%+v\n", value)
		return
	}
	fmt.Fprintln(stdout, string(encoded))
}

func runInitConfig(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		admin     = fs.String("admin", "", "platform admin address (hex)")
		creator   = fs.String("creator", "", "platform creator address (hex)")
		quoteMint = fs.String("quote-mint", "", "quote asset address (hex)")
		creatorBp = fs.Uint("creator-fee-bp", 0, "creator fee in basis points")
		buybackBp = fs.Uint("buyback-fee-bp", 0, "buyback fee in basis points")
		platBp    = fs.Uint("platform-fee-bp", 0, "platform fee in basis points")
		limit     = fs.Uint64("burn-limit", 0, "burn soft limit, x100 bp")
		minBurn   = fs.Uint64("burn-min", 0, "minimum burn, x100 bp")
		decay     = fs.Uint64("burn-decay", 0, "limiter decay per second, x100 bp")
		salt      = fs.Uint64("salt", 0, "configuration derivation salt")
		tiers     tierFlags
	)
	fs.Var(&tiers, "tier", "burn tier (repeatable): role:burnBpX100[:maxDaily[:authority]]")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	adminAddr, err := types.ParseAddress(*admin)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --admin: %v\n", err)
		return 1
	}
	creatorAddr, err := types.ParseAddress(*creator)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --creator: %v\n", err)
		return 1
	}
	mintAddr, err := types.ParseAddress(*quoteMint)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --quote-mint: %v\n", err)
		return 1
	}

	id := statecurve.DeriveConfigID(adminAddr, *salt)
	rate := curve.BurnRateConfig{LimitBpX100: *limit, MinBurnBpX100: *minBurn, DecayRatePerSecBpX100: *decay}
	cfg, err := env.engine.InitPlatformConfig(id, adminAddr, creatorAddr, mintAddr,
		uint16(*creatorBp), uint16(*buybackBp), uint16(*platBp), rate, tiers)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating configuration: %v\n", err)
		return 1
	}
	printJSON(stdout, map[string]interface{}{"configId": cfg.ID.Hex(), "burnTiersUpdatedAt": cfg.BurnTiersUpdatedAt})
	return 0
}

func runUpdateConfig(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("update-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configID  = fs.String("config", "", "configuration id (hex)")
		caller    = fs.String("caller", "", "admin address (hex)")
		creatorBp = fs.Int("creator-fee-bp", -1, "new creator fee in basis points")
		buybackBp = fs.Int("buyback-fee-bp", -1, "new buyback fee in basis points")
		platBp    = fs.Int("platform-fee-bp", -1, "new platform fee in basis points")
		limit     = fs.Uint64("burn-limit", 0, "new burn soft limit, x100 bp (with burn-min and burn-decay)")
		minBurn   = fs.Uint64("burn-min", 0, "new minimum burn, x100 bp")
		decay     = fs.Uint64("burn-decay", 0, "new limiter decay per second, x100 bp")
		tiers     tierFlags
	)
	fs.Var(&tiers, "tier", "replacement burn tier (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	id, err := types.ParseRecordID(*configID)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --config: %v\n", err)
		return 1
	}
	callerAddr, err := types.ParseAddress(*caller)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --caller: %v\n", err)
		return 1
	}

	update := curve.PlatformConfigUpdate{}
	if *creatorBp >= 0 {
		fee := uint16(*creatorBp)
		update.CreatorFeeBp = &fee
	}
	if *buybackBp >= 0 {
		fee := uint16(*buybackBp)
		update.BuybackFeeBp = &fee
	}
	if *platBp >= 0 {
		fee := uint16(*platBp)
		update.PlatformFeeBp = &fee
	}
	if *limit > 0 {
		update.BurnRate = &curve.BurnRateConfig{LimitBpX100: *limit, MinBurnBpX100: *minBurn, DecayRatePerSecBpX100: *decay}
	}
	if len(tiers) > 0 {
		update.BurnTiers = tiers
	}

	cfg, err := env.engine.UpdatePlatformConfig(callerAddr, id, update)
	if err != nil {
		fmt.Fprintf(stderr, "Error updating configuration: %v\n", err)
		return 1
	}
	printJSON(stdout, cfg)
	return 0
}

func runCreatePool(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("create-pool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configID = fs.String("config", "", "configuration id (hex)")
		creator  = fs.String("creator", "", "pool creator address (hex)")
		virtual  = fs.Uint64("virtual", 0, "starting quote virtual reserve")
		salt     = fs.Uint64("salt", 0, "pool derivation salt")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	id, err := types.ParseRecordID(*configID)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --config: %v\n", err)
		return 1
	}
	creatorAddr, err := types.ParseAddress(*creator)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --creator: %v\n", err)
		return 1
	}

	poolID := statecurve.DerivePoolID(id, creatorAddr, *salt)
	pool, err := env.engine.CreatePool(poolID, creatorAddr, id, *virtual)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating pool: %v\n", err)
		return 1
	}
	printJSON(stdout, map[string]interface{}{"poolId": pool.ID.Hex(), "virtualReserve": pool.QuoteVirtualReserve})
	return 0
}

func parsePoolAndOwner(fs *flag.FlagSet, args []string, stderr io.Writer) (types.RecordID, types.Address, bool) {
	pool := fs.String("pool", "", "pool id (hex)")
	owner := fs.String("owner", "", "account owner address (hex)")
	if err := fs.Parse(args); err != nil {
		return types.RecordID{}, types.Address{}, false
	}
	id, err := types.ParseRecordID(*pool)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --pool: %v\n", err)
		return types.RecordID{}, types.Address{}, false
	}
	addr, err := types.ParseAddress(*owner)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --owner: %v\n", err)
		return types.RecordID{}, types.Address{}, false
	}
	return id, addr, true
}

func runOpenAccount(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("open-account", flag.ContinueOnError)
	fs.SetOutput(stderr)
	poolID, owner, ok := parsePoolAndOwner(fs, args, stderr)
	if !ok {
		return 1
	}
	if _, err := env.engine.InitVirtualAccount(poolID, owner); err != nil {
		fmt.Fprintf(stderr, "Error opening account: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Account opened")
	return 0
}

func runCloseAccount(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("close-account", flag.ContinueOnError)
	fs.SetOutput(stderr)
	poolID, owner, ok := parsePoolAndOwner(fs, args, stderr)
	if !ok {
		return 1
	}
	if err := env.engine.CloseVirtualAccount(poolID, owner); err != nil {
		fmt.Fprintf(stderr, "Error closing account: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Account closed")
	return 0
}

func runBuy(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		amount = fs.Uint64("amount", 0, "gross quote amount in")
		minOut = fs.Uint64("min-out", 0, "minimum base tokens out")
	)
	poolID, buyer, ok := parsePoolAndOwner(fs, args, stderr)
	if !ok {
		return 1
	}
	receipt, err := env.engine.Buy(buyer, poolID, *amount, *minOut)
	if err != nil {
		fmt.Fprintf(stderr, "Error buying: %v\n", err)
		return 1
	}
	printJSON(stdout, receipt)
	return 0
}

func runSell(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		amount = fs.Uint64("amount", 0, "base tokens in")
		minOut = fs.Uint64("min-out", 0, "minimum net quote out")
	)
	poolID, seller, ok := parsePoolAndOwner(fs, args, stderr)
	if !ok {
		return 1
	}
	receipt, err := env.engine.Sell(seller, poolID, *amount, *minOut)
	if err != nil {
		fmt.Fprintf(stderr, "Error selling: %v\n", err)
		return 1
	}
	printJSON(stdout, receipt)
	return 0
}

func runBurn(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("burn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	tier := fs.Uint("tier", 0, "burn tier index")
	poolID, caller, ok := parsePoolAndOwner(fs, args, stderr)
	if !ok {
		return 1
	}
	result, err := env.engine.Burn(caller, poolID, uint8(*tier))
	if err != nil {
		fmt.Fprintf(stderr, "Error burning: %v\n", err)
		return 1
	}
	printJSON(stdout, result)
	return 0
}

func runTopup(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("topup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pool := fs.String("pool", "", "pool id (hex)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	poolID, err := types.ParseRecordID(*pool)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --pool: %v\n", err)
		return 1
	}
	pulled, err := env.engine.Topup(poolID)
	if err != nil {
		fmt.Fprintf(stderr, "Error topping up: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Pulled %d quote into the reserve\n", pulled)
	return 0
}

func runClaim(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		leg  = fs.String("leg", "creator", "fee leg: creator or platform")
		to   = fs.String("to", "", "payout destination address (hex)")
		pool = fs.String("pool", "", "pool id (hex)")
		from = fs.String("caller", "", "claimer address (hex)")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	poolID, err := types.ParseRecordID(*pool)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --pool: %v\n", err)
		return 1
	}
	callerAddr, err := types.ParseAddress(*from)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --caller: %v\n", err)
		return 1
	}
	toAddr, err := types.ParseAddress(*to)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --to: %v\n", err)
		return 1
	}

	var amount uint64
	switch *leg {
	case "creator":
		amount, err = env.engine.ClaimCreatorFees(callerAddr, poolID, toAddr)
	case "platform":
		amount, err = env.engine.ClaimPlatformFees(callerAddr, poolID, toAddr)
	default:
		fmt.Fprintf(stderr, "Unknown fee leg %q\n", *leg)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error claiming fees: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Claimed %d quote\n", amount)
	return 0
}

func runAllowance(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: bcmm-cli allowance <init|close> ...")
		return 1
	}
	fs := flag.NewFlagSet("allowance "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		payer    = fs.String("payer", "", "paying address (hex)")
		owner    = fs.String("owner", "", "allowance owner address (hex)")
		configID = fs.String("config", "", "configuration id (hex)")
		tier     = fs.Uint("tier", 0, "burn tier index")
		pool     = fs.String("pool", "", "pool id (hex), required for creator tiers")
	)
	mode := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	ownerAddr, err := types.ParseAddress(*owner)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --owner: %v\n", err)
		return 1
	}
	id, err := types.ParseRecordID(*configID)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --config: %v\n", err)
		return 1
	}

	switch mode {
	case "init":
		payerAddr, err := types.ParseAddress(*payer)
		if err != nil {
			fmt.Fprintf(stderr, "Error parsing --payer: %v\n", err)
			return 1
		}
		var poolID types.RecordID
		if *pool != "" {
			if poolID, err = types.ParseRecordID(*pool); err != nil {
				fmt.Fprintf(stderr, "Error parsing --pool: %v\n", err)
				return 1
			}
		}
		allowance, err := env.engine.InitBurnAllowance(payerAddr, ownerAddr, id, uint8(*tier), poolID)
		if err != nil {
			fmt.Fprintf(stderr, "Error minting allowance: %v\n", err)
			return 1
		}
		printJSON(stdout, allowance)
		return 0
	case "close":
		payerAddr, err := types.ParseAddress(*payer)
		if err != nil {
			fmt.Fprintf(stderr, "Error parsing --payer: %v\n", err)
			return 1
		}
		if err := env.engine.CloseBurnAllowance(payerAddr, ownerAddr, id, uint8(*tier)); err != nil {
			fmt.Fprintf(stderr, "Error closing allowance: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "Allowance closed")
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown allowance subcommand: %s\n", mode)
		return 1
	}
}

func runFund(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fund", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		addr   = fs.String("addr", "", "address to credit (hex)")
		amount = fs.Uint64("amount", 0, "quote amount to credit")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	target, err := types.ParseAddress(*addr)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --addr: %v\n", err)
		return 1
	}
	if err := env.mover.credit(target, *amount); err != nil {
		fmt.Fprintf(stderr, "Error funding: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Credited %d quote to %s\n", *amount, target.Hex())
	return 0
}

func runBalance(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "address to inspect (hex)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	target, err := types.ParseAddress(*addr)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --addr: %v\n", err)
		return 1
	}
	balance, err := env.mover.balance(addressBalanceKey(target))
	if err != nil {
		fmt.Fprintf(stderr, "Error reading balance: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%d\n", balance)
	return 0
}

func runInspectPool(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pool := fs.String("pool", "", "pool id (hex)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	poolID, err := types.ParseRecordID(*pool)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --pool: %v\n", err)
		return 1
	}
	record, ok, err := statecurve.NewStore(env.db).PoolGet(poolID)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading pool: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stderr, "Pool not found")
		return 1
	}
	printJSON(stdout, record)
	return 0
}

func runInspectPlatform(env *cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("platform", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configID := fs.String("config", "", "configuration id (hex)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, err := types.ParseRecordID(*configID)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --config: %v\n", err)
		return 1
	}
	record, ok, err := statecurve.NewStore(env.db).PlatformConfigGet(id)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading configuration: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stderr, "Configuration not found")
		return 1
	}
	printJSON(stdout, record)
	return 0
}

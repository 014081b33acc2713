// Command matching-engine replays a JSON-described scenario against a
// single in-process Engine wired to ledger.InMemory and
// messaging/coseattest, and reports the resulting balances, auction
// states, and emitted events. Flag handling follows the teacher's
// validation/cmd/auction-validator convention.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/matchingengine/auctionconfig"
	"github.com/cloudx-io/matchingengine/auctionstore"
	"github.com/cloudx-io/matchingengine/engine"
	"github.com/cloudx-io/matchingengine/events"
	"github.com/cloudx-io/matchingengine/ledger"
	"github.com/cloudx-io/matchingengine/messaging/coseattest"
	"github.com/cloudx-io/matchingengine/registry"
	"github.com/cloudx-io/matchingengine/wire"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "Path to a JSON scenario file")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)
	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}
	if *scenarioPath == "" {
		showUsage()
		fmt.Fprintln(os.Stderr, "\nError: --scenario is required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading scenario: %v\n", err)
		os.Exit(2)
	}

	var scenario scenarioFile
	if err := json.Unmarshal(raw, &scenario); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing scenario: %v\n", err)
		os.Exit(2)
	}

	runID := uuid.New().String()
	report, err := run(&scenario, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing scenario: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(report)
	} else {
		outputText(report)
	}

	if report.UnexpectedFailures > 0 {
		os.Exit(1)
	}
	os.Exit(0)
}

// --- scenario input shape ---

type scenarioFile struct {
	LocalChain   wire.Chain            `json:"local_chain"`
	SelfAddress  string                `json:"self_address"`
	FeeRecipient string                `json:"fee_recipient"`
	Config       configInput           `json:"config"`
	Endpoints    []endpointInput       `json:"endpoints"`
	Funding      []fundingInput        `json:"funding"`
	Orders       map[string]orderInput `json:"orders"`
	Calls        []callInput           `json:"calls"`
}

type configInput struct {
	AuctionDuration      uint64 `json:"auction_duration"`
	AuctionGracePeriod   uint64 `json:"auction_grace_period"`
	PenaltyBlocks        uint64 `json:"penalty_blocks"`
	UserPenaltyRewardBps uint32 `json:"user_penalty_reward_bps"`
	InitialPenaltyBps    uint32 `json:"initial_penalty_bps"`
}

type endpointInput struct {
	Chain  wire.Chain `json:"chain"`
	Router string     `json:"router"`
}

type fundingInput struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type slowBurnInput struct {
	EmitterChain   wire.Chain `json:"emitter_chain"`
	EmitterAddress string     `json:"emitter_address"`
	BaseFee        string     `json:"base_fee"`
}

type orderInput struct {
	SourceChain     wire.Chain     `json:"source_chain"`
	SourceRouter    string         `json:"source_router"`
	AmountIn        string         `json:"amount_in"`
	MinAmountOut    string         `json:"min_amount_out"`
	TargetChain     wire.Chain     `json:"target_chain"`
	Redeemer        string         `json:"redeemer"`
	Sender          string         `json:"sender"`
	RefundAddress   string         `json:"refund_address"`
	SlowEmitter     string         `json:"slow_emitter"`
	MaxFee          string         `json:"max_fee"`
	InitAuctionFee  string         `json:"init_auction_fee"`
	Deadline        uint32         `json:"deadline"`
	RedeemerMessage string         `json:"redeemer_message"`
	SlowBurn        *slowBurnInput `json:"slow_burn"`
}

type callInput struct {
	Op          string     `json:"op"`
	Order       string     `json:"order"`
	Caller      string     `json:"caller"`
	CallerChain wire.Chain `json:"caller_chain"`
	Block       uint64     `json:"block"`
	FeeBid      string     `json:"fee_bid"`
	ExpectError bool       `json:"expect_error"`
}

// --- report shape ---

type callResult struct {
	Op          string `json:"op"`
	Order       string `json:"order"`
	Error       string `json:"error,omitempty"`
	ExpectError bool   `json:"expect_error"`
	Unexpected  bool   `json:"unexpected"`
	Sequence    uint64 `json:"sequence,omitempty"`
}

type auctionReport struct {
	Order  string `json:"order"`
	Digest string `json:"digest"`
	Status string `json:"status"`
}

type report struct {
	RunID              string            `json:"run_id"`
	Calls              []callResult      `json:"calls"`
	Balances           map[string]string `json:"balances"`
	Auctions           []auctionReport   `json:"auctions"`
	Started            int               `json:"auction_started_events"`
	Bids               int               `json:"new_bid_events"`
	Liquidations       int               `json:"liquidation_events"`
	UnexpectedFailures int               `json:"-"`
}

func run(s *scenarioFile, runID string) (*report, error) {
	ctx := context.Background()

	selfAddr, err := parseBytes32(s.SelfAddress)
	if err != nil {
		return nil, fmt.Errorf("self_address: %w", err)
	}

	reg := registry.New()
	for _, ep := range s.Endpoints {
		router, err := parseBytes32(ep.Router)
		if err != nil {
			return nil, fmt.Errorf("endpoint %d: %w", ep.Chain, err)
		}
		if err := reg.AddEndpoint(ep.Chain, router); err != nil {
			return nil, fmt.Errorf("endpoint %d: %w", ep.Chain, err)
		}
	}

	cfgStore := auctionconfig.New(0)
	cfg := auctionconfig.Config{
		AuctionDuration:      s.Config.AuctionDuration,
		AuctionGracePeriod:   s.Config.AuctionGracePeriod,
		PenaltyBlocks:        s.Config.PenaltyBlocks,
		UserPenaltyRewardBps: auctionconfig.Bps(s.Config.UserPenaltyRewardBps),
		InitialPenaltyBps:    auctionconfig.Bps(s.Config.InitialPenaltyBps),
	}
	if err := cfgStore.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	mintLedger := ledger.NewInMemory()
	verifier, err := coseattest.New(0)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}
	const custody ledger.Account = "engine:custody"
	transport := coseattest.NewTransport(verifier, mintLedger, custody, s.LocalChain)

	store := auctionstore.NewInMemory()
	recorder := events.NewRecorder()
	eng := engine.New(s.LocalChain, selfAddr, reg, cfgStore, store, mintLedger, verifier, transport, engine.WithSink(recorder))
	if s.FeeRecipient != "" {
		eng.UpdateFeeRecipient(ledger.Account(s.FeeRecipient))
	}

	touched := map[ledger.Account]struct{}{custody: {}}
	for _, f := range s.Funding {
		amount, err := parseU128(f.Amount)
		if err != nil {
			return nil, fmt.Errorf("funding %s: %w", f.Account, err)
		}
		if err := mintLedger.Credit(ctx, ledger.Account(f.Account), amount); err != nil {
			return nil, fmt.Errorf("funding %s: %w", f.Account, err)
		}
		touched[ledger.Account(f.Account)] = struct{}{}
	}
	if s.FeeRecipient != "" {
		touched[ledger.Account(s.FeeRecipient)] = struct{}{}
	}

	type preparedOrder struct {
		order    wire.FastMarketOrder
		attested []byte
		digest   wire.Digest
		burn     []byte
	}
	prepared := make(map[string]*preparedOrder, len(s.Orders))
	for name, in := range s.Orders {
		order, err := buildOrder(in)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", name, err)
		}

		var burnBytes []byte
		if in.SlowBurn != nil {
			emitterAddr, err := parseBytes32(in.SlowBurn.EmitterAddress)
			if err != nil {
				return nil, fmt.Errorf("order %s slow_burn: %w", name, err)
			}
			baseFee, err := parseU128(in.SlowBurn.BaseFee)
			if err != nil {
				return nil, fmt.Errorf("order %s slow_burn: %w", name, err)
			}
			payload := wire.SlowOrderResponse{BaseFee: baseFee}.Encode()
			burn, seq, err := transport.SignForeignBurn(ctx, in.SlowBurn.EmitterChain, emitterAddr, order.AmountIn, payload)
			if err != nil {
				return nil, fmt.Errorf("order %s slow_burn: %w", name, err)
			}
			order.SlowSequence = seq
			burnBytes = burn
		}

		var sourceRouter wire.Bytes32
		if in.SourceRouter != "" {
			sourceRouter, err = parseBytes32(in.SourceRouter)
			if err != nil {
				return nil, fmt.Errorf("order %s: %w", name, err)
			}
		} else {
			router, ok := reg.EndpointOf(in.SourceChain)
			if !ok {
				return nil, fmt.Errorf("order %s: no registered router for source_chain %d", name, in.SourceChain)
			}
			sourceRouter = router
		}

		attested, _, err := verifier.Emit(ctx, in.SourceChain, sourceRouter, order.Encode())
		if err != nil {
			return nil, fmt.Errorf("order %s: sign: %w", name, err)
		}
		digest := sha256Digest(order.Encode())

		prepared[name] = &preparedOrder{order: order, attested: attested, digest: digest, burn: burnBytes}
	}

	rep := &report{RunID: runID}
	fastFillSeq := make(map[string]uint64)

	for _, call := range s.Calls {
		po := prepared[call.Order]
		res := callResult{Op: call.Op, Order: call.Order, ExpectError: call.ExpectError}

		var callErr error
		switch call.Op {
		case "place_initial_bid":
			feeBid, err := parseU128(call.FeeBid)
			if err != nil {
				callErr = err
				break
			}
			touched[ledger.Account(call.Caller)] = struct{}{}
			callErr = eng.PlaceInitialBid(ctx, ledger.Account(call.Caller), call.Block, po.attested, feeBid)

		case "improve_bid":
			feeBid, err := parseU128(call.FeeBid)
			if err != nil {
				callErr = err
				break
			}
			touched[ledger.Account(call.Caller)] = struct{}{}
			callErr = eng.ImproveBid(ctx, ledger.Account(call.Caller), po.digest, call.Block, feeBid)

		case "execute_fast_order":
			touched[ledger.Account(call.Caller)] = struct{}{}
			var seq uint64
			seq, callErr = eng.ExecuteFastOrder(ctx, ledger.Account(call.Caller), call.Block, po.attested)
			if callErr == nil {
				res.Sequence = seq
				if po.order.TargetChain == s.LocalChain {
					fastFillSeq[call.Order] = seq
				}
			}

		case "execute_slow_and_reconcile":
			touched[ledger.Account(call.Caller)] = struct{}{}
			callErr = eng.ExecuteSlowAndReconcile(ctx, ledger.Account(call.Caller), call.Block, po.attested, po.burn)

		case "redeem_fast_fill":
			router, ok := eng.EndpointOf(call.CallerChain)
			if !ok {
				callErr = fmt.Errorf("no registered router for caller_chain %d", call.CallerChain)
				break
			}
			seq, ok := fastFillSeq[call.Order]
			if !ok {
				callErr = fmt.Errorf("no fast fill recorded for order %s", call.Order)
				break
			}
			fillBytes, ok := verifier.Emitted(seq)
			if !ok {
				callErr = fmt.Errorf("no emitted message for sequence %d", seq)
				break
			}
			touched[ledger.Account(router.String())] = struct{}{}
			_, callErr = eng.RedeemFastFill(ctx, router, fillBytes)

		default:
			callErr = fmt.Errorf("unknown op %q", call.Op)
		}

		if callErr != nil {
			res.Error = callErr.Error()
			if !call.ExpectError {
				res.Unexpected = true
				rep.UnexpectedFailures++
			}
		} else if call.ExpectError {
			res.Unexpected = true
			res.Error = "expected an error but the call succeeded"
			rep.UnexpectedFailures++
		}
		rep.Calls = append(rep.Calls, res)
	}

	balances := make(map[string]string)
	for acct := range touched {
		bal, err := mintLedger.BalanceOf(ctx, acct)
		if err != nil {
			return nil, err
		}
		balances[string(acct)] = bal.String()
	}
	rep.Balances = balances

	names := make([]string, 0, len(prepared))
	for name := range prepared {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		po := prepared[name]
		record, err := store.Get(po.digest)
		status := "None"
		if err == nil {
			status = record.Status.String()
		}
		rep.Auctions = append(rep.Auctions, auctionReport{Order: name, Digest: hex.EncodeToString(po.digest[:]), Status: status})
	}

	rep.Started = len(recorder.Started)
	rep.Bids = len(recorder.Bids)
	rep.Liquidations = len(recorder.Liquidations)
	return rep, nil
}

func buildOrder(in orderInput) (wire.FastMarketOrder, error) {
	var order wire.FastMarketOrder
	var err error

	if order.AmountIn, err = parseU128(in.AmountIn); err != nil {
		return order, fmt.Errorf("amount_in: %w", err)
	}
	if order.MinAmountOut, err = parseU128(in.MinAmountOut); err != nil {
		return order, fmt.Errorf("min_amount_out: %w", err)
	}
	order.TargetChain = in.TargetChain
	if order.Redeemer, err = parseBytes32(in.Redeemer); err != nil {
		return order, fmt.Errorf("redeemer: %w", err)
	}
	if order.Sender, err = parseBytes32(in.Sender); err != nil {
		return order, fmt.Errorf("sender: %w", err)
	}
	if order.RefundAddress, err = parseBytes32(in.RefundAddress); err != nil {
		return order, fmt.Errorf("refund_address: %w", err)
	}
	if order.SlowEmitter, err = parseBytes32(in.SlowEmitter); err != nil {
		return order, fmt.Errorf("slow_emitter: %w", err)
	}
	if order.MaxFee, err = parseU128(in.MaxFee); err != nil {
		return order, fmt.Errorf("max_fee: %w", err)
	}
	if order.InitAuctionFee, err = parseU128(in.InitAuctionFee); err != nil {
		return order, fmt.Errorf("init_auction_fee: %w", err)
	}
	order.Deadline = in.Deadline
	if in.RedeemerMessage != "" {
		msg, err := hex.DecodeString(in.RedeemerMessage)
		if err != nil {
			return order, fmt.Errorf("redeemer_message: %w", err)
		}
		order.RedeemerMessage = msg
	}
	return order, nil
}

func parseU128(s string) (wire.U128, error) {
	if s == "" {
		return wire.ZeroU128(), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return wire.U128{}, fmt.Errorf("invalid integer %q", s)
	}
	return wire.NewU128FromBigInt(v)
}

func parseBytes32(s string) (wire.Bytes32, error) {
	var b wire.Bytes32
	if s == "" {
		return b, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return b, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	if len(raw) != 32 {
		return b, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(b[:], raw)
	return b, nil
}

// sha256Digest mirrors the digest the reference verifier reports
// (sha256 of the encoded payload), so the CLI can label auction records
// by the same key the engine keys the store by without importing the
// coseattest package's internal envelope type.
func sha256Digest(payload []byte) wire.Digest {
	return sha256.Sum256(payload)
}

func outputText(r *report) {
	fmt.Println("Matching Engine Simulator")
	fmt.Println("==========================")
	fmt.Printf("run_id: %s\n\n", r.RunID)

	fmt.Println("Calls:")
	for _, c := range r.Calls {
		status := "ok"
		if c.Error != "" {
			status = "error: " + c.Error
		}
		marker := " "
		if c.Unexpected {
			marker = "!"
		}
		fmt.Printf("  %s [%s/%s] %s\n", marker, c.Op, c.Order, status)
	}

	fmt.Println("\nAuctions:")
	for _, a := range r.Auctions {
		fmt.Printf("  %s digest=%s status=%s\n", a.Order, a.Digest, a.Status)
	}

	fmt.Println("\nBalances:")
	names := make([]string, 0, len(r.Balances))
	for name := range r.Balances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		raw := r.Balances[name]
		scaled, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Printf("  %s: %s\n", name, raw)
			continue
		}
		human := scaled.Div(decimal.New(1, 6))
		fmt.Printf("  %s: %s (%s raw)\n", name, human.String(), raw)
	}

	fmt.Printf("\nEvents: %d started, %d bids, %d liquidations\n", r.Started, r.Bids, r.Liquidations)

	if r.UnexpectedFailures > 0 {
		fmt.Printf("\n%d call(s) failed unexpectedly. Exit code: 1\n", r.UnexpectedFailures)
	} else {
		fmt.Println("\nExit code: 0")
	}
}

func outputJSON(r *report) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

func showUsage() {
	fmt.Println("Matching Engine Simulator")
	fmt.Println()
	fmt.Println("Replays a JSON scenario against a single in-process Engine and reports")
	fmt.Println("the resulting balances, auction states, and emitted events.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  matching-engine --scenario <path> [--format text|json]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --scenario <path>   JSON scenario file (required)")
	fmt.Println("  --format <fmt>      Output format: text (default) or json")
	fmt.Println("  --help              Show this help message")
	fmt.Println()
	fmt.Println("Scenario shape:")
	fmt.Println(`  {"local_chain":2,"self_address":"<64 hex>","config":{...},`)
	fmt.Println(`   "endpoints":[{"chain":1,"router":"<64 hex>"}],`)
	fmt.Println(`   "funding":[{"account":"alice","amount":"50001000000"}],`)
	fmt.Println(`   "orders":{"name":{"source_chain":1,"amount_in":"...", ...}},`)
	fmt.Println(`   "calls":[{"op":"place_initial_bid","order":"name","caller":"alice","block":100,"fee_bid":"500000"}]}`)
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - every call behaved as expected")
	fmt.Println("  1 - a scenario call returned an engine error the scenario did not expect")
	fmt.Println("  2 - malformed input")
}

// Command auctionstore-inspect reads a Badger-backed auction store and
// reports the auction records it holds. It never writes to the database —
// the second, narrowly-scoped binary in this repository, mirroring the
// teacher's key-validator.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/cloudx-io/matchingengine/auctionstore"
	"github.com/cloudx-io/matchingengine/wire"
)

func main() {
	var (
		dbPath       = flag.String("db", "", "Path to a Badger directory written by auctionstore.Badger")
		digestFilter = flag.String("digest", "", "Hex-encoded digest to filter on (optional)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)
	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}
	if *dbPath == "" {
		showUsage()
		fmt.Fprintln(os.Stderr, "\nError: --db is required")
		os.Exit(2)
	}

	var want *wire.Digest
	if *digestFilter != "" {
		raw, err := hex.DecodeString(*digestFilter)
		if err != nil || len(raw) != 32 {
			fmt.Fprintf(os.Stderr, "Error: --digest must be 64 hex characters: %v\n", err)
			os.Exit(2)
		}
		var d wire.Digest
		copy(d[:], raw)
		want = &d
	}

	store, err := auctionstore.OpenBadger(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(2)
	}
	defer store.Close()

	records, err := collect(store, want)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading store: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(records)
	} else {
		outputText(records)
	}
	os.Exit(0)
}

type record struct {
	Digest           string `json:"digest"`
	Status           string `json:"status"`
	StartBlock       uint64 `json:"start_block"`
	InitialBidder    string `json:"initial_bidder"`
	HighestBidder    string `json:"highest_bidder"`
	Amount           string `json:"amount"`
	SecurityDeposit  string `json:"security_deposit"`
	BidPrice         string `json:"bid_price"`
	FastFillRedeemed bool   `json:"fast_fill_redeemed"`
}

func collect(store *auctionstore.Badger, want *wire.Digest) ([]record, error) {
	var out []record
	err := store.ForEachAuction(func(digest wire.Digest, data auctionstore.LiveAuctionData) error {
		if want != nil && digest != *want {
			return nil
		}
		redeemed, err := store.IsFastFillRedeemed(digest)
		if err != nil {
			return err
		}
		out = append(out, record{
			Digest:           digest.String(),
			Status:           data.Status.String(),
			StartBlock:       data.StartBlock,
			InitialBidder:    data.InitialBidder,
			HighestBidder:    data.HighestBidder,
			Amount:           data.Amount.String(),
			SecurityDeposit:  data.SecurityDeposit.String(),
			BidPrice:         data.BidPrice.String(),
			FastFillRedeemed: redeemed,
		})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Digest < out[j].Digest })
	return out, err
}

func outputText(records []record) {
	fmt.Println("Matching Engine Auction Store")
	fmt.Println("=============================")
	fmt.Println()
	if len(records) == 0 {
		fmt.Println("(no records)")
		return
	}
	for _, r := range records {
		fmt.Printf("digest=%s status=%s start_block=%d\n", r.Digest, r.Status, r.StartBlock)
		fmt.Printf("  initial_bidder=%s highest_bidder=%s\n", r.InitialBidder, r.HighestBidder)
		fmt.Printf("  amount=%s security_deposit=%s bid_price=%s\n", r.Amount, r.SecurityDeposit, r.BidPrice)
		fmt.Printf("  fast_fill_redeemed=%v\n", r.FastFillRedeemed)
		fmt.Println()
	}
}

func outputJSON(records []record) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

func showUsage() {
	fmt.Println("Matching Engine Auction Store Inspector")
	fmt.Println()
	fmt.Println("Reads a Badger-backed auction store and reports its records. Read-only.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  auctionstore-inspect --db <path> [--digest <hex>] [--format text|json]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --db <path>       Path to a Badger directory (required)")
	fmt.Println("  --digest <hex>    Filter to a single 32-byte digest, hex-encoded")
	fmt.Println("  --format <fmt>    Output format: text (default) or json")
	fmt.Println("  --help            Show this help message")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - success")
	fmt.Println("  2 - invalid input or runtime error")
}

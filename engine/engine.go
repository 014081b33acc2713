// Package engine implements the auction state machine: PlaceInitialBid,
// ImproveBid, ExecuteFastOrder, ExecuteSlowAndReconcile, RedeemFastFill,
// and the admin entry points that sit alongside them. This is the core
// spec.md §4.4 describes as ~55% of the hand-written engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudx-io/matchingengine/auctionconfig"
	"github.com/cloudx-io/matchingengine/auctionstore"
	"github.com/cloudx-io/matchingengine/events"
	"github.com/cloudx-io/matchingengine/ledger"
	"github.com/cloudx-io/matchingengine/messaging"
	"github.com/cloudx-io/matchingengine/registry"
	"github.com/cloudx-io/matchingengine/wire"
)

// Clock returns the wall-clock time used for deadline checks (spec.md §5:
// "deadline (unix seconds) uses the block's wall-clock timestamp"). Tests
// override it the way the teacher injects core.RandSource into
// RankCoreBids, for determinism.
type Clock func() time.Time

// custodyAccount is the single ledger account the engine holds every
// in-flight auction's amount+security_deposit in while Active (spec.md
// §3 invariant T1).
const custodyAccount ledger.Account = "engine:custody"

// Engine is the auction state machine. It is constructed with its
// collaborators — registry, auctionconfig, auctionstore, ledger, and the
// messaging substrate/transport — following the teacher's
// dependency-injection idiom (core.RandSource threaded into
// RankCoreBids). Every auction entry point (PlaceInitialBid, ImproveBid,
// ExecuteFastOrder, ExecuteSlowAndReconcile, RedeemFastFill) takes a
// context.Context as its first argument even though the in-memory reference collaborators never
// block, matching the teacher's and pack's convention of threading
// context through any call that could cross a process boundary.
type Engine struct {
	registry  *registry.Registry
	config    *auctionconfig.Store
	store     auctionstore.Store
	ledger    ledger.Ledger
	verifier  messaging.Verifier
	transport messaging.Transport
	sink      events.Sink

	localChainID wire.Chain
	selfAddress  wire.Bytes32
	feeRecipient ledger.Account

	clock Clock
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithSink overrides the event sink (default events.NopSink).
func WithSink(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithClock overrides the wall clock used for deadline checks (default
// time.Now).
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// New constructs an Engine. localChainID and selfAddress identify this
// engine instance on the attested messaging substrate: selfAddress is
// the "self_universal_addr" spec.md §4.4.5 checks FastFill emitters
// against, and is also the identity Emit signs local FastFill messages
// as.
func New(
	localChainID wire.Chain,
	selfAddress wire.Bytes32,
	reg *registry.Registry,
	config *auctionconfig.Store,
	store auctionstore.Store,
	led ledger.Ledger,
	verifier messaging.Verifier,
	transport messaging.Transport,
	opts ...Option,
) *Engine {
	e := &Engine{
		registry:     reg,
		config:       config,
		store:        store,
		ledger:       led,
		verifier:     verifier,
		transport:    transport,
		sink:         events.NopSink{},
		localChainID: localChainID,
		selfAddress:  selfAddress,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// authenticatedOrder is the decoded-and-verified shape PlaceInitialBid
// and ExecuteFastOrder both need before they touch the auction store.
type authenticatedOrder struct {
	digest wire.Digest
	chain  wire.Chain // emitter chain
	addr   wire.Bytes32
	order  wire.FastMarketOrder
}

// verifyFastMarketOrder verifies attested, decodes its payload as a
// FastMarketOrder, and authenticates its source router (spec.md §4.4.1
// steps 1-3 / §4.4.3 step 1 prefix). ErrReplaySuspected from the
// verifier is a non-fatal observability hint (SPEC_FULL.md §4.8) and is
// swallowed here; every other verification error becomes
// ErrInvalidMessage.
func (e *Engine) verifyFastMarketOrder(ctx context.Context, attested []byte) (authenticatedOrder, error) {
	verified, err := e.verifier.Verify(ctx, attested)
	if err != nil && !errors.Is(err, messaging.ErrReplaySuspected) {
		return authenticatedOrder{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	disc, decoded, err := wire.DecodePayload(verified.Payload)
	if err != nil {
		return authenticatedOrder{}, err
	}
	order, ok := decoded.(wire.FastMarketOrder)
	if !ok || disc != wire.DiscriminantFastMarketOrder {
		return authenticatedOrder{}, ErrNotFastMarketOrder
	}

	router, ok := e.registry.EndpointOf(verified.EmitterChain)
	if !ok || router != verified.EmitterAddress {
		return authenticatedOrder{}, ErrInvalidSourceRouter
	}
	if _, ok := e.registry.EndpointOf(order.TargetChain); !ok {
		return authenticatedOrder{}, ErrInvalidTargetRouter
	}

	return authenticatedOrder{
		digest: verified.Digest,
		chain:  verified.EmitterChain,
		addr:   verified.EmitterAddress,
		order:  order,
	}, nil
}

// PlaceInitialBid implements spec.md §4.4.1. If an auction already
// exists for the message's digest, the call is rerouted to ImproveBid
// (step 4 — "racing relayers must not waste gas") and never creates a
// second record (T3).
func (e *Engine) PlaceInitialBid(ctx context.Context, caller ledger.Account, currentBlock uint64, fastMessageBytes []byte, feeBid wire.U128) error {
	ao, err := e.verifyFastMarketOrder(ctx, fastMessageBytes)
	if err != nil {
		return err
	}

	e.store.Lock(ao.digest)
	defer e.store.Unlock(ao.digest)

	auction, getErr := e.store.Get(ao.digest)
	exists := !errors.Is(getErr, auctionstore.ErrNotFound)
	if getErr != nil && exists {
		return wrapErr("PlaceInitialBid", ao.digest, getErr)
	}
	if exists && auction.Status != auctionstore.StatusNone {
		return e.improveBidLocked(ctx, caller, ao.digest, currentBlock, feeBid, auction)
	}

	if ao.order.Deadline != 0 {
		nowSeconds := uint64(e.clock().Unix())
		if nowSeconds >= uint64(ao.order.Deadline) {
			return wrapErr("PlaceInitialBid", ao.digest, ErrDeadlineExceeded)
		}
	}
	if feeBid.GreaterThan(ao.order.MaxFee) {
		return wrapErr("PlaceInitialBid", ao.digest, ErrBidPriceTooHigh)
	}

	pull, err := ao.order.AmountIn.Add(ao.order.MaxFee)
	if err != nil {
		return wrapErr("PlaceInitialBid", ao.digest, err)
	}
	if err := e.ledger.TransferFrom(ctx, caller, custodyAccount, pull); err != nil {
		return wrapErr("PlaceInitialBid", ao.digest, err)
	}

	if err := requireTransition(auctionstore.StatusNone, auctionstore.StatusActive); err != nil {
		return wrapErr("PlaceInitialBid", ao.digest, err)
	}
	record := auctionstore.LiveAuctionData{
		Status:          auctionstore.StatusActive,
		StartBlock:      currentBlock,
		InitialBidder:   string(caller),
		HighestBidder:   string(caller),
		Amount:          ao.order.AmountIn,
		SecurityDeposit: ao.order.MaxFee,
		BidPrice:        feeBid,
	}
	if err := e.store.Put(ao.digest, record); err != nil {
		return wrapErr("PlaceInitialBid", ao.digest, err)
	}

	e.sink.AuctionStarted(events.AuctionStarted{
		Digest: ao.digest,
		Amount: ao.order.AmountIn,
		FeeBid: feeBid,
		Bidder: string(caller),
	})
	return nil
}

// ImproveBid implements spec.md §4.4.2.
func (e *Engine) ImproveBid(ctx context.Context, caller ledger.Account, digest wire.Digest, currentBlock uint64, feeBid wire.U128) error {
	e.store.Lock(digest)
	defer e.store.Unlock(digest)

	auction, err := e.store.Get(digest)
	if errors.Is(err, auctionstore.ErrNotFound) {
		return wrapErr("ImproveBid", digest, ErrAuctionNotActive)
	}
	if err != nil {
		return wrapErr("ImproveBid", digest, err)
	}
	return e.improveBidLocked(ctx, caller, digest, currentBlock, feeBid, auction)
}

// improveBidLocked performs spec.md §4.4.2 steps 1-6. Callers must hold
// the per-digest lock and have already loaded auction.
func (e *Engine) improveBidLocked(ctx context.Context, caller ledger.Account, digest wire.Digest, currentBlock uint64, feeBid wire.U128, auction auctionstore.LiveAuctionData) error {
	if auction.Status != auctionstore.StatusActive {
		return wrapErr("ImproveBid", digest, ErrAuctionNotActive)
	}

	cfg, err := e.config.GetConfig()
	if err != nil {
		return wrapErr("ImproveBid", digest, err)
	}
	if currentBlock-auction.StartBlock > cfg.AuctionDuration {
		return wrapErr("ImproveBid", digest, ErrAuctionPeriodExpired)
	}
	if !feeBid.LessThan(auction.BidPrice) {
		return wrapErr("ImproveBid", digest, ErrOfferPriceNotImproved)
	}

	total, err := auction.Amount.Add(auction.SecurityDeposit)
	if err != nil {
		return wrapErr("ImproveBid", digest, err)
	}
	if err := e.ledger.TransferFrom(ctx, caller, ledger.Account(auction.HighestBidder), total); err != nil {
		return wrapErr("ImproveBid", digest, err)
	}

	oldBid := auction.BidPrice
	auction.BidPrice = feeBid
	auction.HighestBidder = string(caller)
	if err := e.store.Put(digest, auction); err != nil {
		return wrapErr("ImproveBid", digest, err)
	}

	e.sink.NewBid(events.NewBid{Digest: digest, NewBid: feeBid, OldBid: oldBid, Bidder: string(caller)})
	return nil
}

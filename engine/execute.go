package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudx-io/matchingengine/auctionstore"
	"github.com/cloudx-io/matchingengine/events"
	"github.com/cloudx-io/matchingengine/ledger"
	"github.com/cloudx-io/matchingengine/messaging"
	"github.com/cloudx-io/matchingengine/penalty"
	"github.com/cloudx-io/matchingengine/wire"
)

// destinationAccount is the ledger stand-in for "the mint recipient on
// targetChain": since the in-memory Ledger only models this chain's
// balances, a cross-chain payout is modeled as a credit to a
// deterministic account keyed by chain and recipient, standing in for
// the mint the real burn-and-mint transport would perform on the other
// side. It lets tests assert T5 (settlement completeness) by summing
// ledger balances instead of only inspecting emitted messages.
func destinationAccount(chain wire.Chain, recipient wire.Bytes32) ledger.Account {
	return ledger.Account(fmt.Sprintf("dest:%d:%s", chain, recipient))
}

// forwardToDestination implements spec.md §4.6: if the order targets
// this engine's own chain, emit a local FastFill message and leave the
// amount in custody for RedeemFastFill to claim later; otherwise debit
// custody to the cross-chain destination account and invoke the
// burn-and-mint transport. Exactly one such message is emitted per call,
// matching §4.6's "the engine must emit exactly one such message per
// fast execution."
func (e *Engine) forwardToDestination(ctx context.Context, order wire.FastMarketOrder, amount wire.U128) (uint64, error) {
	fill := wire.Fill{
		SourceChain:     e.localChainID,
		OrderSender:     order.Sender,
		Redeemer:        order.Redeemer,
		RedeemerMessage: order.RedeemerMessage,
	}

	if order.TargetChain == e.localChainID {
		fastFill := wire.FastFill{Fill: fill, FillAmount: amount}
		_, seq, err := e.verifier.Emit(ctx, e.localChainID, e.selfAddress, fastFill.Encode())
		if err != nil {
			return 0, fmt.Errorf("emit fast fill: %w", err)
		}
		return seq, nil
	}

	mintRecipient, ok := e.registry.EndpointOf(order.TargetChain)
	if !ok {
		return 0, ErrInvalidTargetRouter
	}
	if err := e.ledger.TransferFrom(ctx, custodyAccount, destinationAccount(order.TargetChain, mintRecipient), amount); err != nil {
		return 0, err
	}
	seq, err := e.transport.Transfer(ctx, "stable", amount, order.TargetChain, mintRecipient, fill.Encode())
	if err != nil {
		return 0, fmt.Errorf("transport transfer: %w", err)
	}
	return seq, nil
}

// ExecuteFastOrder implements spec.md §4.4.3.
func (e *Engine) ExecuteFastOrder(ctx context.Context, caller ledger.Account, currentBlock uint64, fastMessageBytes []byte) (uint64, error) {
	ao, err := e.verifyFastMarketOrder(ctx, fastMessageBytes)
	if err != nil {
		return 0, err
	}

	e.store.Lock(ao.digest)
	defer e.store.Unlock(ao.digest)

	auction, err := e.store.Get(ao.digest)
	if errors.Is(err, auctionstore.ErrNotFound) {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, ErrAuctionNotActive)
	}
	if err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}
	if auction.Status != auctionstore.StatusActive {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, ErrAuctionNotActive)
	}

	cfg, err := e.config.GetConfig()
	if err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}

	blocksElapsed := currentBlock - auction.StartBlock
	if blocksElapsed <= cfg.AuctionDuration {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, ErrAuctionPeriodNotExpired)
	}

	var winnerPayout, userReward wire.U128
	var liquidationPenalty wire.U128
	highestBidder := ledger.Account(auction.HighestBidder)

	if blocksElapsed <= cfg.AuctionGracePeriod {
		if caller != highestBidder {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, ErrNotHighestBidder)
		}
		winnerPayout, err = auction.BidPrice.Add(auction.SecurityDeposit)
		if err != nil {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
		}
		userReward = wire.ZeroU128()
	} else {
		result, err := penalty.Calculate(cfg, auction.SecurityDeposit, blocksElapsed)
		if err != nil {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
		}
		liquidationPenalty, userReward = result.Penalty, result.UserReward

		bidPlusDeposit, err := auction.BidPrice.Add(auction.SecurityDeposit)
		if err != nil {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
		}
		slashed, err := bidPlusDeposit.Sub(liquidationPenalty)
		if err != nil {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
		}
		winnerPayout, err = slashed.Sub(userReward)
		if err != nil {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
		}

		if err := e.ledger.TransferFrom(ctx, custodyAccount, caller, liquidationPenalty); err != nil {
			return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
		}
		e.sink.AuctionLiquidated(events.AuctionLiquidated{
			Digest:     ao.digest,
			Liquidator: string(caller),
			Penalty:    liquidationPenalty,
			UserReward: userReward,
		})
	}

	if err := e.ledger.TransferFrom(ctx, custodyAccount, highestBidder, winnerPayout); err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}

	userAmount, err := auction.Amount.Sub(auction.BidPrice)
	if err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}
	userAmount, err = userAmount.Sub(ao.order.InitAuctionFee)
	if err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}
	userAmount, err = userAmount.Add(userReward)
	if err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}

	sequence, err := e.forwardToDestination(ctx, ao.order, userAmount)
	if err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}

	if err := e.ledger.TransferFrom(ctx, custodyAccount, ledger.Account(auction.InitialBidder), ao.order.InitAuctionFee); err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}

	if err := requireTransition(auction.Status, auctionstore.StatusCompleted); err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}
	auction.Status = auctionstore.StatusCompleted
	if err := e.store.Put(ao.digest, auction); err != nil {
		return 0, wrapErr("ExecuteFastOrder", ao.digest, err)
	}

	return sequence, nil
}

// ExecuteSlowAndReconcile implements spec.md §4.4.4.
func (e *Engine) ExecuteSlowAndReconcile(ctx context.Context, caller ledger.Account, currentBlock uint64, fastMessageBytes, attestedBurn []byte) error {
	fastVerified, err := e.verifier.Verify(ctx, fastMessageBytes)
	if err != nil && !errors.Is(err, messaging.ErrReplaySuspected) {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	_, decodedFast, err := wire.DecodePayload(fastVerified.Payload)
	if err != nil {
		return err
	}
	order, ok := decodedFast.(wire.FastMarketOrder)
	if !ok {
		return ErrNotFastMarketOrder
	}
	digest := fastVerified.Digest

	redeemed, err := e.transport.Redeem(ctx, attestedBurn)
	if err != nil {
		return wrapErr("ExecuteSlowAndReconcile", digest, err)
	}

	if fastVerified.EmitterChain != redeemed.SourceChain ||
		order.SlowEmitter != redeemed.SourceEmitter ||
		order.SlowSequence != redeemed.Sequence {
		return wrapErr("ExecuteSlowAndReconcile", digest, ErrVaaMismatch)
	}

	slowResponse, err := wire.DecodeSlowOrderResponse(stripDiscriminant(redeemed.Payload, wire.DiscriminantSlowOrderResponse))
	if err != nil {
		return wrapErr("ExecuteSlowAndReconcile", digest, err)
	}
	baseFee := slowResponse.BaseFee

	e.store.Lock(digest)
	defer e.store.Unlock(digest)

	auction, getErr := e.store.Get(digest)
	exists := !errors.Is(getErr, auctionstore.ErrNotFound)
	if getErr != nil && exists {
		return wrapErr("ExecuteSlowAndReconcile", digest, getErr)
	}

	status := auctionstore.StatusNone
	if exists {
		status = auction.Status
	}

	switch status {
	case auctionstore.StatusNone:
		if err := requireTransition(status, auctionstore.StatusSettled); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		router, ok := e.registry.EndpointOf(fastVerified.EmitterChain)
		if !ok || router != fastVerified.EmitterAddress {
			return wrapErr("ExecuteSlowAndReconcile", digest, ErrInvalidSourceRouter)
		}
		if _, ok := e.registry.EndpointOf(order.TargetChain); !ok {
			return wrapErr("ExecuteSlowAndReconcile", digest, ErrInvalidTargetRouter)
		}

		toDestination, err := order.AmountIn.Sub(baseFee)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		if _, err := e.forwardToDestination(ctx, order, toDestination); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		if err := e.payFeeRecipient(ctx, baseFee); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}

		return e.store.Put(digest, auctionstore.LiveAuctionData{Status: auctionstore.StatusSettled})

	case auctionstore.StatusActive:
		if err := requireTransition(status, auctionstore.StatusSettled); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		cfg, err := e.config.GetConfig()
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		result, err := penalty.Calculate(cfg, auction.SecurityDeposit, currentBlock-auction.StartBlock)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}

		callerPayout, err := result.Penalty.Add(baseFee)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		if err := e.ledger.TransferFrom(ctx, custodyAccount, caller, callerPayout); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}

		total, err := auction.Amount.Add(auction.SecurityDeposit)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		total, err = total.Sub(result.Penalty)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		winnerPayout, err := total.Sub(result.UserReward)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		if err := e.ledger.TransferFrom(ctx, custodyAccount, ledger.Account(auction.HighestBidder), winnerPayout); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}

		toDestination, err := auction.Amount.Sub(baseFee)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		toDestination, err = toDestination.Add(result.UserReward)
		if err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		if _, err := e.forwardToDestination(ctx, order, toDestination); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}

		if !result.Penalty.IsZero() || !result.UserReward.IsZero() {
			e.sink.AuctionLiquidated(events.AuctionLiquidated{
				Digest:     digest,
				Liquidator: string(caller),
				Penalty:    result.Penalty,
				UserReward: result.UserReward,
			})
		}

		auction.Status = auctionstore.StatusSettled
		return e.store.Put(digest, auction)

	case auctionstore.StatusCompleted:
		if err := requireTransition(status, auctionstore.StatusSettled); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		if err := e.ledger.TransferFrom(ctx, custodyAccount, ledger.Account(auction.HighestBidder), auction.Amount); err != nil {
			return wrapErr("ExecuteSlowAndReconcile", digest, err)
		}
		// Design Note (b): advance Completed -> Settled to close the key
		// permanently rather than leaving it Completed (SPEC_FULL.md §9,
		// DESIGN.md Open Question b).
		auction.Status = auctionstore.StatusSettled
		return e.store.Put(digest, auction)

	default:
		return wrapErr("ExecuteSlowAndReconcile", digest, ErrInvalidAuctionStatus)
	}
}

func (e *Engine) payFeeRecipient(ctx context.Context, amount wire.U128) error {
	if e.feeRecipient == "" {
		return ErrNoFeeRecipient
	}
	return e.ledger.TransferFrom(ctx, custodyAccount, e.feeRecipient, amount)
}

// stripDiscriminant drops a leading discriminant byte if present and
// matches want, for payloads the messaging substrate hands back already
// framed with wire's one-byte discriminant convention.
func stripDiscriminant(payload []byte, want wire.Discriminant) []byte {
	if len(payload) > 0 && wire.Discriminant(payload[0]) == want {
		return payload[1:]
	}
	return payload
}

// RedeemFastFill implements spec.md §4.4.5. caller is the local peer
// router's address on the attested messaging substrate — the same
// identity spec.md's registry stores for the local chain.
func (e *Engine) RedeemFastFill(ctx context.Context, caller wire.Bytes32, fastFillMessageBytes []byte) (wire.FastFill, error) {
	verified, err := e.verifier.Verify(ctx, fastFillMessageBytes)
	if err != nil && !errors.Is(err, messaging.ErrReplaySuspected) {
		return wire.FastFill{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if verified.EmitterChain != e.localChainID || verified.EmitterAddress != e.selfAddress {
		return wire.FastFill{}, ErrInvalidEmitterForFastFill
	}

	digest := verified.Digest
	e.store.Lock(digest)
	defer e.store.Unlock(digest)

	alreadyRedeemed, err := e.store.IsFastFillRedeemed(digest)
	if err != nil {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, err)
	}
	if alreadyRedeemed {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, ErrFastFillAlreadyRedeemed)
	}
	if err := e.store.MarkFastFillRedeemed(digest); err != nil {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, err)
	}

	router, ok := e.registry.EndpointOf(e.localChainID)
	if !ok || router != caller {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, ErrInvalidSourceRouter)
	}

	disc, decoded, err := wire.DecodePayload(verified.Payload)
	if err != nil {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, err)
	}
	fastFill, ok := decoded.(wire.FastFill)
	if !ok || disc != wire.DiscriminantFastFill {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, fmt.Errorf("%w: expected FastFill payload", ErrInvalidMessage))
	}

	recipient := ledger.Account(caller.String())
	if err := e.ledger.TransferFrom(ctx, custodyAccount, recipient, fastFill.FillAmount); err != nil {
		return wire.FastFill{}, wrapErr("RedeemFastFill", digest, err)
	}

	return fastFill, nil
}

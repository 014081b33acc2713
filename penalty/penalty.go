// Package penalty implements the pure penalty-curve calculation from
// spec.md §4.5: given the auction config, the security deposit, and blocks
// elapsed since the auction started, compute the slash applied to a tardy
// winner and the portion of it rebated to the end user.
package penalty

import (
	"github.com/cloudx-io/matchingengine/auctionconfig"
	"github.com/cloudx-io/matchingengine/wire"
)

// Result is the (penalty, user_reward) pair spec.md §4.5 returns.
// Guarantee (T4): Penalty + UserReward <= the deposit it was computed from.
type Result struct {
	Penalty    wire.U128
	UserReward wire.U128
}

// Calculate implements spec.md §4.5 exactly:
//
//	G = auction_duration + auction_grace_period
//	blocks_elapsed <= G            => (0, 0)
//	over = blocks_elapsed - G
//	over >= penalty_blocks         => scaled_bps = 1_000_000
//	otherwise                      => scaled_bps = initial_penalty_bps +
//	                                   (1_000_000 - initial_penalty_bps) * over / penalty_blocks
//	total = deposit * scaled_bps / 1_000_000
//	user_reward = total * user_penalty_reward_bps / 1_000_000
//	penalty = total - user_reward
//
// All division is integer division rounding toward zero, matching the
// fixed-point bps convention: compute total first, then split, to avoid
// double-rounding drift between the two halves (see spec.md §9).
func Calculate(cfg auctionconfig.Config, deposit wire.U128, blocksElapsed uint64) (Result, error) {
	graceCutoff := cfg.GraceCutoff()
	if blocksElapsed <= graceCutoff {
		return Result{Penalty: wire.ZeroU128(), UserReward: wire.ZeroU128()}, nil
	}

	over := blocksElapsed - graceCutoff

	var scaledBps uint64
	if cfg.PenaltyBlocks == 0 || over >= cfg.PenaltyBlocks {
		scaledBps = uint64(auctionconfig.MaxBps)
	} else {
		span := uint64(auctionconfig.MaxBps) - uint64(cfg.InitialPenaltyBps)
		scaledBps = uint64(cfg.InitialPenaltyBps) + (span*over)/cfg.PenaltyBlocks
	}

	total, err := deposit.MulDiv(scaledBps, uint64(auctionconfig.MaxBps))
	if err != nil {
		return Result{}, err
	}

	userReward, err := total.MulDiv(uint64(cfg.UserPenaltyRewardBps), uint64(auctionconfig.MaxBps))
	if err != nil {
		return Result{}, err
	}

	penaltyAmount, err := total.Sub(userReward)
	if err != nil {
		return Result{}, err
	}

	return Result{Penalty: penaltyAmount, UserReward: userReward}, nil
}

package penalty

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/matchingengine/auctionconfig"
	"github.com/cloudx-io/matchingengine/wire"
)

func scenarioConfig() auctionconfig.Config {
	return auctionconfig.Config{
		AuctionDuration:      2,
		AuctionGracePeriod:   5,
		PenaltyBlocks:        10,
		InitialPenaltyBps:    250_000,
		UserPenaltyRewardBps: 250_000,
	}
}

func TestCalculateWithinGraceIsZero(t *testing.T) {
	cfg := scenarioConfig()
	deposit := wire.NewU128FromUint64(1_000_000)

	for elapsed := uint64(0); elapsed <= cfg.GraceCutoff(); elapsed++ {
		res, err := Calculate(cfg, deposit, elapsed)
		check.Nil(t, err)
		check.True(t, res.Penalty.IsZero())
		check.True(t, res.UserReward.IsZero())
	}
}

func TestCalculateScenario2GracePeriodLiquidation(t *testing.T) {
	// spec.md §8 scenario 2: elapsed=9, over=2, deposit=1_000_000.
	cfg := scenarioConfig()
	deposit := wire.NewU128FromUint64(1_000_000)

	res, err := Calculate(cfg, deposit, 9)
	check.Nil(t, err)
	check.Equal(t, "300000", res.Penalty.String())
	check.Equal(t, "100000", res.UserReward.String())
}

func TestCalculateScenario3FullPenaltyLiquidation(t *testing.T) {
	// spec.md §8 scenario 3: elapsed=20, over=13 >= penalty_blocks.
	cfg := scenarioConfig()
	deposit := wire.NewU128FromUint64(1_000_000)

	res, err := Calculate(cfg, deposit, 20)
	check.Nil(t, err)
	check.Equal(t, "750000", res.Penalty.String())
	check.Equal(t, "250000", res.UserReward.String())
}

func TestCalculateFullPenaltyAtExactBoundary(t *testing.T) {
	cfg := scenarioConfig()
	deposit := wire.NewU128FromUint64(1_000_000)

	boundary := cfg.GraceCutoff() + cfg.PenaltyBlocks
	res, err := Calculate(cfg, deposit, boundary)
	check.Nil(t, err)
	total, err := res.Penalty.Add(res.UserReward)
	check.Nil(t, err)
	check.Equal(t, deposit.String(), total.String())
}

// TestPenaltyBoundT4 sweeps blocksElapsed across the whole curve and
// asserts the T4 invariant from spec.md §8: penalty+userReward never
// exceeds the deposit, and the sum is monotone nondecreasing.
func TestPenaltyBoundT4(t *testing.T) {
	cfg := scenarioConfig()
	deposit := wire.NewU128FromUint64(1_000_000)

	maxElapsed := 3 * (cfg.AuctionDuration + cfg.AuctionGracePeriod + cfg.PenaltyBlocks)
	var prevTotal wire.U128

	for elapsed := uint64(0); elapsed <= maxElapsed; elapsed++ {
		res, err := Calculate(cfg, deposit, elapsed)
		check.Nil(t, err)

		total, err := res.Penalty.Add(res.UserReward)
		check.Nil(t, err)

		check.True(t, total.Cmp(deposit) <= 0)
		check.True(t, total.Cmp(prevTotal) >= 0)
		prevTotal = total
	}

	// At 3x the duration+grace+penalty window, penalty should have saturated.
	final, err := Calculate(cfg, deposit, maxElapsed)
	check.Nil(t, err)
	finalTotal, err := final.Penalty.Add(final.UserReward)
	check.Nil(t, err)
	check.Equal(t, deposit.String(), finalTotal.String())
}

func TestCalculateZeroPenaltyBlocksSaturatesImmediately(t *testing.T) {
	cfg := scenarioConfig()
	cfg.PenaltyBlocks = 0
	deposit := wire.NewU128FromUint64(1_000_000)

	res, err := Calculate(cfg, deposit, cfg.GraceCutoff()+1)
	check.Nil(t, err)
	total, err := res.Penalty.Add(res.UserReward)
	check.Nil(t, err)
	check.Equal(t, deposit.String(), total.String())
}

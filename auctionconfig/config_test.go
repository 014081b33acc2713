package auctionconfig

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func scenarioConfig() Config {
	// Values from spec.md §8 scenarios.
	return Config{
		AuctionDuration:      2,
		AuctionGracePeriod:   5,
		PenaltyBlocks:        10,
		InitialPenaltyBps:    250_000,
		UserPenaltyRewardBps: 250_000,
	}
}

func TestConfigValidate(t *testing.T) {
	check.Nil(t, scenarioConfig().Validate())
}

func TestConfigValidateRejectsZeroDuration(t *testing.T) {
	c := scenarioConfig()
	c.AuctionDuration = 0
	err := c.Validate()
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrInvalidAuctionDuration))
}

func TestConfigValidateRejectsGraceNotGreaterThanDuration(t *testing.T) {
	c := scenarioConfig()
	c.AuctionGracePeriod = c.AuctionDuration
	err := c.Validate()
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrInvalidAuctionGracePeriod))
}

func TestConfigValidateRejectsOversizedBps(t *testing.T) {
	c := scenarioConfig()
	c.UserPenaltyRewardBps = MaxBps + 1
	err := c.Validate()
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrUserPenaltyTooLarge))

	c = scenarioConfig()
	c.InitialPenaltyBps = MaxBps + 1
	err = c.Validate()
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrInitialPenaltyTooLarge))
}

func TestGraceCutoff(t *testing.T) {
	c := scenarioConfig()
	check.Equal(t, uint64(7), c.GraceCutoff())
}

func TestSetAndGetConfig(t *testing.T) {
	s := New(0)
	_, err := s.GetConfig()
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrNoConfig))

	check.Nil(t, s.SetConfig(scenarioConfig()))
	got, err := s.GetConfig()
	check.Nil(t, err)
	check.Equal(t, scenarioConfig(), got)
}

func TestSetConfigRejectsInvalid(t *testing.T) {
	s := New(0)
	bad := scenarioConfig()
	bad.AuctionDuration = 0
	err := s.SetConfig(bad)
	check.NotNil(t, err)

	_, getErr := s.GetConfig()
	check.NotNil(t, getErr)
}

func TestProposeAndEnactConfig(t *testing.T) {
	s := New(100)
	p, err := s.ProposeConfig(scenarioConfig(), 10, "alice")
	check.Nil(t, err)
	check.Equal(t, uint64(0), p.ID)
	check.Equal(t, uint64(110), p.EnactByBlock)

	err = s.EnactConfig(p.ID, 50)
	check.Nil(t, err)

	got, err := s.GetConfig()
	check.Nil(t, err)
	check.Equal(t, scenarioConfig(), got)

	_, stillPending := s.PendingProposal(p.ID)
	check.True(t, !stillPending)
}

func TestEnactConfigExpired(t *testing.T) {
	s := New(10)
	p, err := s.ProposeConfig(scenarioConfig(), 0, "alice")
	check.Nil(t, err)

	err = s.EnactConfig(p.ID, 11)
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrProposalExpired))

	_, _ = s.GetConfig()
}

func TestEnactConfigNotFound(t *testing.T) {
	s := New(10)
	err := s.EnactConfig(999, 0)
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrProposalNotFound))
}

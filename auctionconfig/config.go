// Package auctionconfig holds the tunable AuctionConfig singleton: auction
// duration, grace period, penalty curve coefficients, and the propose/enact
// flow used for non-bootstrap parameter changes (see SPEC_FULL.md §3).
package auctionconfig

import (
	"errors"
	"fmt"
	"sync"
)

// Bps is a fixed-point basis-points value where 1_000_000 == 100%.
type Bps uint32

// MaxBps is the fixed-point ceiling: 1_000_000 == 100%.
const MaxBps Bps = 1_000_000

var (
	// ErrInvalidAuctionDuration is returned when auction_duration is zero.
	ErrInvalidAuctionDuration = errors.New("auctionconfig: auction_duration must be > 0")
	// ErrInvalidAuctionGracePeriod is returned when the grace period does
	// not exceed the auction duration.
	ErrInvalidAuctionGracePeriod = errors.New("auctionconfig: auction_grace_period must be > auction_duration")
	// ErrUserPenaltyTooLarge is returned when user_penalty_reward_bps exceeds MaxBps.
	ErrUserPenaltyTooLarge = errors.New("auctionconfig: user_penalty_reward_bps exceeds 1_000_000")
	// ErrInitialPenaltyTooLarge is returned when initial_penalty_bps exceeds MaxBps.
	ErrInitialPenaltyTooLarge = errors.New("auctionconfig: initial_penalty_bps exceeds 1_000_000")
	// ErrNoConfig is returned by GetConfig before any config has been set.
	ErrNoConfig = errors.New("auctionconfig: no config has been set")
	// ErrProposalNotFound is returned when EnactConfig cannot find the proposal.
	ErrProposalNotFound = errors.New("auctionconfig: proposal not found")
	// ErrProposalExpired is returned when EnactConfig runs after the proposal's window.
	ErrProposalExpired = errors.New("auctionconfig: proposal window has elapsed")
)

// Config is the singleton auction parameter set (spec.md §3).
type Config struct {
	AuctionDuration      uint64 // blocks during which bids are accepted
	AuctionGracePeriod   uint64 // blocks (inclusive of duration) for penalty-free execution
	PenaltyBlocks        uint64 // blocks over which the penalty ramps to 100%
	UserPenaltyRewardBps Bps
	InitialPenaltyBps    Bps
}

// Validate checks the invariants from spec.md §3.
func (c Config) Validate() error {
	if c.AuctionDuration == 0 {
		return ErrInvalidAuctionDuration
	}
	if c.AuctionGracePeriod <= c.AuctionDuration {
		return ErrInvalidAuctionGracePeriod
	}
	if c.UserPenaltyRewardBps > MaxBps {
		return ErrUserPenaltyTooLarge
	}
	if c.InitialPenaltyBps > MaxBps {
		return ErrInitialPenaltyTooLarge
	}
	return nil
}

// GraceCutoff returns auction_duration + auction_grace_period, the "G"
// term in the penalty formula (spec.md §4.5).
func (c Config) GraceCutoff() uint64 {
	return c.AuctionDuration + c.AuctionGracePeriod
}

// Proposal is a pending, not-yet-enacted configuration change (supplemental,
// see SPEC_FULL.md §3; grounded on the original program's propose/enact
// admin flow).
type Proposal struct {
	ID           uint64
	Config       Config
	ProposedAt   uint64
	EnactByBlock uint64
	By           string
}

// Store is the atomically-replaceable AuctionConfig singleton plus its
// propose/enact queue.
type Store struct {
	mu             sync.RWMutex
	config         *Config
	nextProposalID uint64
	proposals      map[uint64]Proposal
	proposalWindow uint64
}

// DefaultProposalWindowBlocks mirrors the original program's
// "slots per epoch" review window, expressed here as a configurable block
// count rather than a chain-specific epoch length.
const DefaultProposalWindowBlocks uint64 = 432_000

// New returns an empty Store. proposalWindow is the number of blocks a
// proposal remains enactable after it is proposed; pass 0 to use
// DefaultProposalWindowBlocks.
func New(proposalWindow uint64) *Store {
	if proposalWindow == 0 {
		proposalWindow = DefaultProposalWindowBlocks
	}
	return &Store{
		proposals:      make(map[uint64]Proposal),
		proposalWindow: proposalWindow,
	}
}

// SetConfig validates and atomically replaces the config. This is the
// direct, immediate-effect path spec.md §4.3 describes.
func (s *Store) SetConfig(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.config = &cp
	return nil
}

// GetConfig returns the current config.
func (s *Store) GetConfig() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return Config{}, ErrNoConfig
	}
	return *s.config, nil
}

// ProposeConfig validates c and queues it for enactment at or before
// currentBlock + proposalWindow.
func (s *Store) ProposeConfig(c Config, currentBlock uint64, by string) (Proposal, error) {
	if err := c.Validate(); err != nil {
		return Proposal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextProposalID
	s.nextProposalID++

	p := Proposal{
		ID:           id,
		Config:       c,
		ProposedAt:   currentBlock,
		EnactByBlock: currentBlock + s.proposalWindow,
		By:           by,
	}
	s.proposals[id] = p
	return p, nil
}

// EnactConfig applies a previously proposed config if currentBlock is
// still within its window, then removes the proposal.
func (s *Store) EnactConfig(proposalID uint64, currentBlock uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	if currentBlock > p.EnactByBlock {
		delete(s.proposals, proposalID)
		return fmt.Errorf("%w: enact_by=%d, current=%d", ErrProposalExpired, p.EnactByBlock, currentBlock)
	}

	cp := p.Config
	s.config = &cp
	delete(s.proposals, proposalID)
	return nil
}

// PendingProposal returns the queued proposal for inspection (e.g. by a
// CLI or test), and whether it exists.
func (s *Store) PendingProposal(proposalID uint64) (Proposal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[proposalID]
	return p, ok
}

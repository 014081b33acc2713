package engine

import (
	"errors"

	"github.com/cloudx-io/matchingengine/auctionstore"
)

// Error kinds from spec.md §7, as package-level sentinels. Sentinels
// already owned by a narrower collaborator package (registry's
// ErrChainNotAllowed/ErrInvalidEndpoint, auctionconfig's
// ErrInvalidAuctionDuration/ErrInvalidAuctionGracePeriod/
// ErrUserPenaltyTooLarge/ErrInitialPenaltyTooLarge, wire's
// ErrMalformedPayload) are not redeclared here; callers branch on those
// with errors.Is against the owning package.
var (
	ErrInvalidMessage            = errors.New("engine: invalid message")
	ErrNotFastMarketOrder        = errors.New("engine: payload is not a FastMarketOrder")
	ErrInvalidSourceRouter       = errors.New("engine: emitter is not the registered source router")
	ErrInvalidTargetRouter       = errors.New("engine: target chain has no registered router")
	ErrAuctionAlreadyStarted     = errors.New("engine: auction already started") // unused: racing bids route to ImproveBid, see PlaceInitialBid
	ErrAuctionNotActive          = errors.New("engine: auction is not active")
	ErrAuctionPeriodExpired      = errors.New("engine: auction bidding period has expired")
	ErrAuctionPeriodNotExpired   = errors.New("engine: auction bidding period has not yet expired")
	ErrDeadlineExceeded          = errors.New("engine: order deadline has passed")
	ErrBidPriceTooHigh           = errors.New("engine: fee bid exceeds order max_fee")
	ErrOfferPriceNotImproved     = errors.New("engine: fee bid does not strictly improve the current best")
	ErrNotHighestBidder          = errors.New("engine: caller is not the highest bidder")
	ErrVaaMismatch               = errors.New("engine: slow transfer does not match the fast order's pairing fields")
	ErrInvalidAuctionStatus      = errors.New("engine: auction is in an unexpected status for this call")
	ErrFastFillAlreadyRedeemed   = errors.New("engine: fast fill has already been redeemed for this digest")
	ErrInvalidEmitterForFastFill = errors.New("engine: fast fill message was not emitted by the local peer router")
	ErrInvalidStatusTransition   = errors.New("engine: illegal auction status transition")

	// ErrNoFeeRecipient is supplemental: UpdateFeeRecipient has never
	// been called and ExecuteSlowAndReconcile's None-status branch needs
	// somewhere to pay base_fee.
	ErrNoFeeRecipient = errors.New("engine: no fee recipient configured")
)

// Error wraps a sentinel error kind with the digest and method name it
// occurred in, so logs and the simulator CLI's JSON output can report
// structured failures without string-parsing — mirroring the teacher's
// AuctionValidationResult/KeyValidationResult structured result types
// rather than bare error strings (SPEC_FULL.md §7).
type Error struct {
	Method string
	Digest [32]byte
	Err    error
}

func (e *Error) Error() string {
	return e.Method + ": digest " + hexDigest(e.Digest) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// requireTransition enforces the auctionstore.Status state machine
// (spec.md §3) at every point the engine moves a record from one status
// to another, instead of trusting the surrounding control flow alone.
func requireTransition(current, next auctionstore.Status) error {
	if !current.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	return nil
}

func wrapErr(method string, digest [32]byte, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Method: method, Digest: digest, Err: err}
}

func hexDigest(d [32]byte) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 0; i < 4; i++ {
		buf[i*2] = hexDigits[d[i]>>4]
		buf[i*2+1] = hexDigits[d[i]&0xF]
	}
	return string(buf) + "..."
}

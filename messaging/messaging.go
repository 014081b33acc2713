// Package messaging models the two collaborators spec.md §1 places out of
// scope as production integrations: the attested messaging substrate
// (verifies signed cross-chain payloads) and the canonical burn-and-mint
// transport (moves the settlement asset between chains). Both are narrow
// interfaces at the engine's boundary; messaging/coseattest ships a
// reference implementation of both so the engine is runnable end to end.
package messaging

import (
	"context"
	"errors"

	"github.com/cloudx-io/matchingengine/wire"
)

// ErrReplaySuspected is a non-authoritative hint a Verifier may wrap into
// the error it returns alongside an otherwise-valid VerifiedMessage when
// it has independently noticed the message's digest before. It never
// gates correctness — auctionstore remains the actual source of truth for
// single-auction-per-digest — so callers that only care about
// authenticity should unwrap for it and proceed rather than failing the
// call outright, as the engine does.
var ErrReplaySuspected = errors.New("messaging: digest already seen (replay suspected)")

// VerifiedMessage is what the attested messaging substrate hands back
// after authenticating a signed cross-chain payload: spec.md §1's
// "(emitter_chain, emitter_address, digest, sequence, payload)".
type VerifiedMessage struct {
	EmitterChain   wire.Chain
	EmitterAddress wire.Bytes32
	Digest         wire.Digest
	Sequence       uint64
	Payload        []byte
}

// Verifier authenticates attested cross-chain messages and, for the local
// same-chain case, emits them. spec.md §4.6 calls the emit half "a local
// same-chain fast fill message emitter"; bundling both onto one interface
// matches the fact that the real substrate both verifies and is the
// vehicle the engine uses to publish outbound attested messages.
type Verifier interface {
	// Verify authenticates raw attested bytes and returns the decoded
	// envelope. Returns a non-nil error (wrapping ErrInvalidMessage in
	// callers that need to distinguish it) if authentication fails.
	Verify(ctx context.Context, attested []byte) (VerifiedMessage, error)

	// Emit produces a new attested message from this substrate, signed
	// as the given emitter, and returns its encoded bytes plus the
	// sequence number assigned to it.
	Emit(ctx context.Context, emitterChain wire.Chain, emitterAddress wire.Bytes32, payload []byte) (attested []byte, sequence uint64, err error)
}

// RedeemedBurn is what the burn-and-mint transport hands back from
// Transport.Redeem: spec.md §4.4.4 step 2's
// "(source_domain, sender, payload)", plus the sequence needed for the
// pair check in step 3 and the minted amount credited to engine custody.
type RedeemedBurn struct {
	SourceChain   wire.Chain
	SourceEmitter wire.Bytes32
	Sequence      uint64
	Payload       []byte
	MintedAmount  wire.U128
}

// Transport models the canonical burn-and-mint transport spec.md §1
// describes: "burns a stablecoin on this chain and produces an attested
// message that mints on a target chain". The engine calls Transfer to
// move the settlement asset out to another chain and Redeem to claim a
// burn attested on a remote chain and landing here.
type Transport interface {
	// Transfer burns amount of token on this chain and initiates a
	// mint of amount on targetChain to mintRecipient, carrying
	// auxPayload (the encoded Fill) alongside it. Returns the sequence
	// number assigned to the resulting attested burn message.
	Transfer(ctx context.Context, token string, amount wire.U128, targetChain wire.Chain, mintRecipient wire.Bytes32, auxPayload []byte) (sequence uint64, err error)

	// Redeem claims a previously attested burn, crediting its minted
	// amount to the caller's custody and returning the burn's
	// provenance for the engine's pair check (spec.md §4.4.4 step 3).
	Redeem(ctx context.Context, attestedBurn []byte) (RedeemedBurn, error)
}

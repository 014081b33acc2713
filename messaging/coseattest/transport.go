package coseattest

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/matchingengine/ledger"
	"github.com/cloudx-io/matchingengine/messaging"
	"github.com/cloudx-io/matchingengine/wire"
)

// localChainAddress is the fixed emitter identity this reference
// Transport signs burn announcements as. A real burn-and-mint transport
// (e.g. Circle's CCTP) has its own chain-specific emitter per domain;
// this stand-in only ever needs one, since Transfer and Redeem are
// always called against the same Transport instance in tests and the
// simulator.
var localChainAddress = wire.Bytes32{0xBB}

// Transport is the reference messaging.Transport used by engine tests
// and the simulator CLI. It models a burn-and-mint bridge by signing a
// COSE envelope carrying the burned amount and aux payload in place of
// an actual on-chain burn, and crediting a ledger.Ledger account on
// Redeem in place of an actual mint. This is not a production burn-and-
// mint integration — spec.md §1 places that out of scope — only enough
// of its shape to drive ExecuteSlowAndReconcile end to end.
type Transport struct {
	verifier *Verifier
	mint     ledger.Ledger
	custody  ledger.Account
	chain    wire.Chain
}

// burnPayload is what Transfer signs and Redeem decodes: the burned
// amount, destination, and aux payload spec.md §4.4.3 step 5 passes to
// the transport.
type burnPayload struct {
	Amount        []byte `cbor:"1,keyasint"`
	TargetChain   uint16 `cbor:"2,keyasint"`
	MintRecipient []byte `cbor:"3,keyasint"`
	Aux           []byte `cbor:"4,keyasint"`
}

// NewTransport builds a Transport that signs/verifies through verifier
// and credits custody on every Redeem; engine tests and the simulator
// pass the same ledger account the engine holds its custody in.
func NewTransport(verifier *Verifier, mint ledger.Ledger, custody ledger.Account, sourceChain wire.Chain) *Transport {
	return &Transport{verifier: verifier, mint: mint, custody: custody, chain: sourceChain}
}

// Transfer implements messaging.Transport.Transfer: it signs a burn
// announcement for amount, targetChain, mintRecipient, and auxPayload
// and returns the sequence assigned to it. It does not itself move any
// balance — this reference implementation's "burn" is the act of
// emitting the attested message; the corresponding "mint" only happens
// when Redeem claims it, exactly mirroring the real bridge's two-sided
// settlement.
func (t *Transport) Transfer(ctx context.Context, _ string, amount wire.U128, targetChain wire.Chain, mintRecipient wire.Bytes32, auxPayload []byte) (uint64, error) {
	amt := amount.MarshalBE()
	payload, err := cbor.Marshal(burnPayload{
		Amount:        amt[:],
		TargetChain:   uint16(targetChain),
		MintRecipient: mintRecipient[:],
		Aux:           auxPayload,
	})
	if err != nil {
		return 0, fmt.Errorf("coseattest: transfer: encode burn payload: %w", err)
	}
	_, seq, err := t.verifier.Emit(ctx, t.chain, localChainAddress, payload)
	if err != nil {
		return 0, fmt.Errorf("coseattest: transfer: %w", err)
	}
	return seq, nil
}

// SignForeignBurn builds a signed burn attestation as though emitted by a
// remote chain's own burn-and-mint infrastructure, for constructing the
// slow-path attested_burn that ExecuteSlowAndReconcile redeems. A real burn
// on the source chain is signed by that chain's transport, not this one;
// this reference Transport stands in for both sides of the bridge, so
// tests and the simulator pass the foreign emitter identity explicitly
// instead of the fixed localChainAddress Transfer always signs as.
func (t *Transport) SignForeignBurn(ctx context.Context, emitterChain wire.Chain, emitterAddress wire.Bytes32, amount wire.U128, auxPayload []byte) ([]byte, uint64, error) {
	amt := amount.MarshalBE()
	payload, err := cbor.Marshal(burnPayload{Amount: amt[:], Aux: auxPayload})
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: sign foreign burn: encode burn payload: %w", err)
	}
	attested, seq, err := t.verifier.Emit(ctx, emitterChain, emitterAddress, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: sign foreign burn: %w", err)
	}
	return attested, seq, nil
}

// Redeem implements messaging.Transport.Redeem: it verifies attestedBurn
// against this Transport's own verifier, decodes the burn payload, and
// credits the minted amount to the custody account.
func (t *Transport) Redeem(ctx context.Context, attestedBurn []byte) (messaging.RedeemedBurn, error) {
	msg, err := t.verifier.Verify(ctx, attestedBurn)
	if err != nil {
		return messaging.RedeemedBurn{}, fmt.Errorf("coseattest: redeem: %w", err)
	}

	var bp burnPayload
	if err := cbor.Unmarshal(msg.Payload, &bp); err != nil {
		return messaging.RedeemedBurn{}, fmt.Errorf("coseattest: redeem: decode burn payload: %w", err)
	}
	amount, err := wire.UnmarshalBE(bp.Amount)
	if err != nil {
		return messaging.RedeemedBurn{}, fmt.Errorf("coseattest: redeem: decode amount: %w", err)
	}

	if err := t.mint.Credit(ctx, t.custody, amount); err != nil {
		return messaging.RedeemedBurn{}, fmt.Errorf("coseattest: redeem: credit custody: %w", err)
	}

	return messaging.RedeemedBurn{
		SourceChain:   msg.EmitterChain,
		SourceEmitter: msg.EmitterAddress,
		Sequence:      msg.Sequence,
		Payload:       bp.Aux,
		MintedAmount:  amount,
	}, nil
}
